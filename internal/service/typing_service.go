package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"spurline/internal/pkg/cache"
)

// TypingStore 输入状态存储抽象（Redis 实现见 pkg/cache）
type TypingStore interface {
	SetString(ctx context.Context, key, value string, expiration time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
}

// TypingService 会话输入状态服务
// 标记带 TTL，进程崩溃后自动过期，不会出现卡死的"正在输入"
type TypingService struct {
	store TypingStore
	ttl   time.Duration
}

// NewTypingService 创建输入状态服务
func NewTypingService(store TypingStore, ttl time.Duration) *TypingService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &TypingService{store: store, ttl: ttl}
}

// Set 标记 AI 正在为该对话生成回复
// 存储故障只记日志不阻断主流程
func (s *TypingService) Set(ctx context.Context, conversationID string) {
	if err := s.store.SetString(ctx, cache.TypingKey(conversationID), "1", s.ttl); err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("set typing flag failed")
	}
}

// Clear 清除输入状态标记
func (s *TypingService) Clear(ctx context.Context, conversationID string) {
	if err := s.store.Delete(ctx, cache.TypingKey(conversationID)); err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("clear typing flag failed")
	}
}

// IsTyping 查询输入状态，存储不可用时按未输入处理
func (s *TypingService) IsTyping(ctx context.Context, conversationID string) bool {
	_, err := s.store.GetString(ctx, cache.TypingKey(conversationID))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("conversation_id", conversationID).Msg("read typing flag failed")
		}
		return false
	}
	return true
}
