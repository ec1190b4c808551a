package chat

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spurline/internal/model/chat"
	"spurline/internal/pkg/id"
)

// FeedbackRepository 消息反馈仓库接口
type FeedbackRepository interface {
	Upsert(ctx context.Context, conversationID, messageID string, rating chat.FeedbackRating) (*chat.Feedback, error)
	FindByMessageID(ctx context.Context, messageID string) (*chat.Feedback, error)
	Delete(ctx context.Context, messageID string) error
}

// FeedbackRepo 消息反馈仓库
type FeedbackRepo struct {
	coll *mongo.Collection
}

// NewFeedbackRepo 创建反馈仓库
func NewFeedbackRepo(db *mongo.Database) *FeedbackRepo {
	var f chat.Feedback
	return &FeedbackRepo{coll: db.Collection(f.Collection())}
}

// Upsert 写入或覆盖某条消息的反馈，一条消息只保留最新一份评价
func (r *FeedbackRepo) Upsert(ctx context.Context, conversationID, messageID string, rating chat.FeedbackRating) (*chat.Feedback, error) {
	filter := bson.M{"message_id": messageID}
	update := bson.M{
		"$set": bson.M{
			"rating":          rating,
			"conversation_id": conversationID,
		},
		"$setOnInsert": bson.M{
			"id":         id.New(),
			"message_id": messageID,
			"created_at": time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var fb chat.Feedback
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&fb); err != nil {
		return nil, err
	}
	return &fb, nil
}

// FindByMessageID 查询某条消息的反馈，不存在时返回 (nil, nil)
func (r *FeedbackRepo) FindByMessageID(ctx context.Context, messageID string) (*chat.Feedback, error) {
	var fb chat.Feedback
	err := r.coll.FindOne(ctx, bson.M{"message_id": messageID}).Decode(&fb)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

// Delete 删除某条消息的反馈
func (r *FeedbackRepo) Delete(ctx context.Context, messageID string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"message_id": messageID})
	return err
}
