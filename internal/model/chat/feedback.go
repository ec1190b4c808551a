package chat

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FeedbackRating 反馈评价
type FeedbackRating string

const (
	RatingUp   FeedbackRating = "up"
	RatingDown FeedbackRating = "down"
)

// IsValid 校验评价取值
func (r FeedbackRating) IsValid() bool {
	return r == RatingUp || r == RatingDown
}

// Feedback 消息反馈实体（每条消息至多一条，重复提交覆盖）
type Feedback struct {
	ID             string         `bson:"id" json:"id"`
	MessageID      string         `bson:"message_id" json:"message_id"`
	ConversationID string         `bson:"conversation_id" json:"conversation_id"`
	Rating         FeedbackRating `bson:"rating" json:"rating"`
	CreatedAt      time.Time      `bson:"created_at" json:"created_at"`
}

// Collection 返回集合名称
func (f *Feedback) Collection() string { return "feedback" }

// EnsureIndexes 创建和维护索引
func (f *Feedback) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(f.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "message_id", Value: 1}},
			Options: options.Index().SetName("idx_message_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}},
			Options: options.Index().SetName("idx_conversation_id"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
