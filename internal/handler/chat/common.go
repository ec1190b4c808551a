package chat

import (
	"time"

	"github.com/gin-gonic/gin"

	"spurline/internal/model/chat"
	"spurline/internal/pkg/apperr"
	httputil "spurline/internal/pkg/http"
)

// ErrorResponse 错误响应类型别名（使用共用的 http.ErrorResponse）
type ErrorResponse = httputil.ErrorResponse

// 用户消息长度上限（字符数）
const maxMessageLength = 2000

// MessageInfo 消息 DTO
type MessageInfo struct {
	ID        string `json:"id"`        // 消息ID
	Sender    string `json:"sender"`    // 发送方: user / assistant
	Content   string `json:"content"`   // 消息内容
	CreatedAt string `json:"createdAt"` // 创建时间
}

// toMessageInfo 将 Message 实体转换为 MessageInfo DTO
func toMessageInfo(messageEntity *chat.Message) MessageInfo {
	return MessageInfo{
		ID:        messageEntity.ID,
		Sender:    string(messageEntity.Sender),
		Content:   messageEntity.Content,
		CreatedAt: messageEntity.CreatedAt.Format(time.RFC3339),
	}
}

// toMessageInfoList 将 Message 实体列表转换为 MessageInfo DTO 列表
func toMessageInfoList(messages []*chat.Message) []MessageInfo {
	list := make([]MessageInfo, len(messages))
	for i, message := range messages {
		list[i] = toMessageInfo(message)
	}
	return list
}

// renderError 按业务错误码输出统一错误响应
func renderError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	c.JSON(appErr.Status, httputil.NewErrorResponse(appErr.Code, appErr.Message))
}
