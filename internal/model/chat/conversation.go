package chat

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Channel 对话来源渠道
type Channel string

const (
	ChannelWeb       Channel = "web"
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelInstagram Channel = "instagram"
)

// IsValid 校验渠道取值
func (c Channel) IsValid() bool {
	switch c {
	case ChannelWeb, ChannelWhatsApp, ChannelInstagram:
		return true
	}
	return false
}

// Conversation 对话实体
// ID 全局唯一且不可变，创建后本服务不会删除对话
type Conversation struct {
	ID        string         `bson:"id" json:"id"` // 对话ID（UUID），同时作为客户端的 sessionId
	Channel   Channel        `bson:"channel" json:"channel"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"` // 自由键值对，可空
}

// Collection 返回集合名称
func (c *Conversation) Collection() string { return "conversations" }

// EnsureIndexes 创建和维护索引
func (c *Conversation) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(c.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_created"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
