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

// ErrPlaceholderGone 占位消息不存在或已被写入
var ErrPlaceholderGone = errors.New("assistant placeholder missing or already finalized")

// MessageRepository 消息仓库接口
type MessageRepository interface {
	Create(ctx context.Context, conversationID, content string, sender chat.Sender) (*chat.Message, error)
	CreatePlaceholder(ctx context.Context, conversationID string) (*chat.Message, error)
	UpdatePlaceholder(ctx context.Context, id, content string) (*chat.Message, error)
	FindByConversationID(ctx context.Context, conversationID string, limit int64) ([]*chat.Message, error)
	CountByConversationID(ctx context.Context, conversationID string) (int64, error)
	FindLatest(ctx context.Context, conversationID string) (*chat.Message, error)
}

// MessageRepo 消息仓库
type MessageRepo struct {
	coll *mongo.Collection
}

// NewMessageRepo 创建消息仓库
func NewMessageRepo(db *mongo.Database) *MessageRepo {
	var m chat.Message
	return &MessageRepo{coll: db.Collection(m.Collection())}
}

// Create 写入一条消息
func (r *MessageRepo) Create(ctx context.Context, conversationID, content string, sender chat.Sender) (*chat.Message, error) {
	msg := &chat.Message{
		ID:             id.New(),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}

	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// CreatePlaceholder 创建空内容的助手占位消息，流式生成完成后再写入最终内容
func (r *MessageRepo) CreatePlaceholder(ctx context.Context, conversationID string) (*chat.Message, error) {
	msg := &chat.Message{
		ID:             id.New(),
		ConversationID: conversationID,
		Sender:         chat.SenderAssistant,
		Content:        "",
		CreatedAt:      time.Now().UTC(),
	}

	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// UpdatePlaceholder 将最终回复写入占位消息并返回更新后的文档
// 过滤条件限定 content 为空，保证同一占位只会被写入一次
func (r *MessageRepo) UpdatePlaceholder(ctx context.Context, id, content string) (*chat.Message, error) {
	filter := bson.M{
		"id":      id,
		"sender":  chat.SenderAssistant,
		"content": "",
	}
	update := bson.M{"$set": bson.M{"content": content}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var msg chat.Message
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrPlaceholderGone
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindByConversationID 查询对话消息，按时间升序返回
// limit > 0 时只取最近的 limit 条（先倒序取再翻转，保证窗口始终是最新的）
func (r *MessageRepo) FindByConversationID(ctx context.Context, conversationID string, limit int64) ([]*chat.Message, error) {
	filter := bson.M{"conversation_id": conversationID}

	if limit <= 0 {
		opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
		return r.findAll(ctx, filter, opts)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	msgs, err := r.findAll(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// CountByConversationID 统计对话消息数
func (r *MessageRepo) CountByConversationID(ctx context.Context, conversationID string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"conversation_id": conversationID})
}

// FindLatest 查询对话中最新的一条消息，不存在时返回 (nil, nil)
func (r *MessageRepo) FindLatest(ctx context.Context, conversationID string) (*chat.Message, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	var msg chat.Message
	err := r.coll.FindOne(ctx, bson.M{"conversation_id": conversationID}, opts).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepo) findAll(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*chat.Message, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []*chat.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
