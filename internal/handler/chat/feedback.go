package chat

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"spurline/internal/model/chat"
	"spurline/internal/pkg/id"
)

// FeedbackRequest 消息反馈请求
type FeedbackRequest struct {
	MessageID string `json:"messageId" binding:"required"` // 消息ID（必填）
	Rating    string `json:"rating" binding:"required"`    // 评价: up / down（必填）
}

// FeedbackResponse 消息反馈响应
type FeedbackResponse struct {
	SessionID string `json:"sessionId"` // 会话ID
	MessageID string `json:"messageId"` // 消息ID
	Rating    string `json:"rating"`    // 评价
	CreatedAt string `json:"createdAt"` // 首次提交时间
}

// SubmitFeedback 提交消息反馈
// @Summary      提交消息反馈
// @Description  对某条助手消息评价 up/down，同一消息重复提交会覆盖旧评价。
// @Tags         对话
// @Accept       json
// @Produce      json
// @Param        session_id  path      string           true  "会话ID"
// @Param        request     body      FeedbackRequest  true  "反馈请求"
// @Success      200         {object}  FeedbackResponse  "成功响应"
// @Failure      400         {object}  ErrorResponse  "请求参数错误"
// @Failure      404         {object}  ErrorResponse  "会话不存在"
// @Router       /api/chat/{session_id}/feedback [post]
func (h *Handler) SubmitFeedback(c *gin.Context) {
	sessionID := c.Param("session_id")
	if !id.IsValid(sessionID) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid session id",
		})
		return
	}

	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "messageId and rating are required",
			Detail:  err.Error(),
		})
		return
	}

	rating := chat.FeedbackRating(req.Rating)
	if !rating.IsValid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Rating must be 'up' or 'down'",
		})
		return
	}
	if !id.IsValid(req.MessageID) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid message id",
		})
		return
	}

	fb, err := h.chatService.SubmitFeedback(c.Request.Context(), sessionID, req.MessageID, rating)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, FeedbackResponse{
		SessionID: fb.ConversationID,
		MessageID: fb.MessageID,
		Rating:    string(fb.Rating),
		CreatedAt: fb.CreatedAt.Format(time.RFC3339),
	})
}
