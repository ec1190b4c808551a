package chat

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"spurline/internal/model/chat"
	"spurline/internal/pkg/id"
)

// ConversationRepository 对话仓库接口（供 service 层依赖）
type ConversationRepository interface {
	Create(ctx context.Context, channel chat.Channel, metadata map[string]any) (*chat.Conversation, error)
	FindByID(ctx context.Context, id string) (*chat.Conversation, error)
	Exists(ctx context.Context, id string) (bool, error)
	GetOrCreate(ctx context.Context, sessionID string) (*chat.Conversation, error)
}

// ConversationRepo 对话仓库
type ConversationRepo struct {
	coll *mongo.Collection
}

// NewConversationRepo 创建对话仓库
func NewConversationRepo(db *mongo.Database) *ConversationRepo {
	var c chat.Conversation
	return &ConversationRepo{coll: db.Collection(c.Collection())}
}

// Create 创建对话，渠道非法时回落到 web
func (r *ConversationRepo) Create(ctx context.Context, channel chat.Channel, metadata map[string]any) (*chat.Conversation, error) {
	if !channel.IsValid() {
		channel = chat.ChannelWeb
	}

	conv := &chat.Conversation{
		ID:        id.New(),
		Channel:   channel,
		CreatedAt: time.Now().UTC(),
		Metadata:  metadata,
	}

	if _, err := r.coll.InsertOne(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// FindByID 根据 ID 查询，不存在时返回 (nil, nil)
func (r *ConversationRepo) FindByID(ctx context.Context, id string) (*chat.Conversation, error) {
	var conv chat.Conversation
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Exists 检查对话是否存在
func (r *ConversationRepo) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"id": id})
	return n > 0, err
}

// GetOrCreate 解析对话: sessionID 对应的对话存在则复用，否则新建
// 用已存在的 ID 重复调用不会创建第二个对话
func (r *ConversationRepo) GetOrCreate(ctx context.Context, sessionID string) (*chat.Conversation, error) {
	if sessionID != "" {
		conv, err := r.FindByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if conv != nil {
			return conv, nil
		}
	}

	return r.Create(ctx, chat.ChannelWeb, nil)
}
