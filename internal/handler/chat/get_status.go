package chat

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"spurline/internal/pkg/id"
)

// StatusResponse 对话状态响应
type StatusResponse struct {
	SessionID     string `json:"sessionId"`               // 会话ID
	MessageCount  int64  `json:"messageCount"`            // 消息总数
	IsTyping      bool   `json:"isTyping"`                // AI 是否正在生成回复
	LastMessageAt string `json:"lastMessageAt,omitempty"` // 最后一条消息时间
}

// GetStatus 查询对话状态
// @Summary      查询对话状态
// @Description  返回消息总数、AI 输入状态和最后一条消息时间。
// @Tags         对话
// @Produce      json
// @Param        session_id  path      string  true  "会话ID"
// @Success      200         {object}  StatusResponse  "成功响应"
// @Failure      400         {object}  ErrorResponse  "请求参数错误"
// @Failure      404         {object}  ErrorResponse  "会话不存在"
// @Router       /api/chat/{session_id}/status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	sessionID := c.Param("session_id")
	if !id.IsValid(sessionID) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid session id",
		})
		return
	}

	status, err := h.chatService.GetStatus(c.Request.Context(), sessionID)
	if err != nil {
		renderError(c, err)
		return
	}

	resp := StatusResponse{
		SessionID:    status.ConversationID,
		MessageCount: status.MessageCount,
		IsTyping:     status.IsTyping,
	}
	if status.LastMessageAt != nil {
		resp.LastMessageAt = status.LastMessageAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, resp)
}
