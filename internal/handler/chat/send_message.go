package chat

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"spurline/internal/pkg/id"
	"spurline/internal/pkg/sanitize"
)

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	SessionID string `json:"sessionId"`                  // 会话ID（可选，缺省时新建对话）
	Message   string `json:"message" binding:"required"` // 用户消息内容（必填）
}

// SendMessageResponse 发送消息响应
type SendMessageResponse struct {
	SessionID   string   `json:"sessionId"`   // 会话ID
	MessageID   string   `json:"messageId"`   // 助手消息ID
	Reply       string   `json:"reply"`       // 助手回复全文
	Suggestions []string `json:"suggestions"` // 推荐追问
	CreatedAt   string   `json:"createdAt"`   // 回复时间
}

// SendMessage 发送用户消息并等待 AI 回复
// @Summary      发送消息
// @Description  保存用户消息，流式生成 AI 回复（过程经 WebSocket 推送），返回最终回复。
// @Tags         对话
// @Accept       json
// @Produce      json
// @Param        request  body      SendMessageRequest  true  "发送消息请求"
// @Success      200      {object}  SendMessageResponse  "成功响应"
// @Failure      400      {object}  ErrorResponse  "请求参数错误"
// @Failure      429      {object}  ErrorResponse  "请求过于频繁"
// @Failure      500      {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/chat/message [post]
func (h *Handler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Message is required",
			Detail:  err.Error(),
		})
		return
	}

	content := sanitize.Clean(req.Message)
	if !sanitize.HasContent(content) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Message is required",
		})
		return
	}
	if len([]rune(content)) > maxMessageLength {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Message exceeds maximum length",
		})
		return
	}
	if req.SessionID != "" && !id.IsValid(req.SessionID) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid session id",
		})
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), req.SessionID, content)
	if err != nil {
		renderError(c, err)
		return
	}

	suggestions := result.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	c.JSON(http.StatusOK, SendMessageResponse{
		SessionID:   result.ConversationID,
		MessageID:   result.MessageID,
		Reply:       result.Reply,
		Suggestions: suggestions,
		CreatedAt:   result.CreatedAt.Format(time.RFC3339),
	})
}
