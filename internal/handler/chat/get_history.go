package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spurline/internal/pkg/id"
)

// HistoryResponse 对话历史响应
type HistoryResponse struct {
	SessionID string        `json:"sessionId"` // 会话ID
	Messages  []MessageInfo `json:"messages"`  // 消息列表（按时间升序）
}

// GetHistory 查询对话历史
// @Summary      查询对话历史
// @Description  返回指定会话的全部消息，按时间升序排列。
// @Tags         对话
// @Produce      json
// @Param        session_id  path      string  true  "会话ID"
// @Success      200         {object}  HistoryResponse  "成功响应"
// @Failure      400         {object}  ErrorResponse  "请求参数错误"
// @Failure      404         {object}  ErrorResponse  "会话不存在"
// @Router       /api/chat/{session_id} [get]
func (h *Handler) GetHistory(c *gin.Context) {
	sessionID := c.Param("session_id")
	if !id.IsValid(sessionID) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid session id",
		})
		return
	}

	messages, err := h.chatService.GetConversationHistory(c.Request.Context(), sessionID)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{
		SessionID: sessionID,
		Messages:  toMessageInfoList(messages),
	})
}
