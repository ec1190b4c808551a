package chat

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sender 消息发送方
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// IsValid 校验发送方取值
func (s Sender) IsValid() bool {
	return s == SenderUser || s == SenderAssistant
}

// Message 消息实体
//
// 用户消息一次性创建且内容不再变更。
// 助手消息先以占位形式创建（content 为空），流式生成结束后一次性
// 写入最终内容（Pending -> Final），期间历史查询始终能看到稳定的行。
// 同一对话内消息按 created_at 排序，相同时间戳按插入顺序（_id）排序。
type Message struct {
	ID             string    `bson:"id" json:"id"` // 消息ID（UUID）
	ConversationID string    `bson:"conversation_id" json:"conversation_id"`
	Sender         Sender    `bson:"sender" json:"sender"`
	Content        string    `bson:"content" json:"content"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`

	// 推荐追问（仅助手消息，随响应/推送下发，不持久化）
	Suggestions []string `bson:"-" json:"suggestions,omitempty"`
}

// IsPlaceholder 是否为尚未定稿的占位消息
func (m *Message) IsPlaceholder() bool {
	return m.Sender == SenderAssistant && m.Content == ""
}

// Collection 返回集合名称
func (m *Message) Collection() string { return "messages" }

// EnsureIndexes 创建和维护索引
func (m *Message) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(m.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_conv_created"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
