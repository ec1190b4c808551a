package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"spurline/internal/ai"
	"spurline/internal/model/chat"
	"spurline/internal/pkg/apperr"
	repo "spurline/internal/repository/chat"
)

// Broadcaster 实时推送抽象（WebSocket Hub 实现见 internal/realtime）
type Broadcaster interface {
	TypingStart(conversationID string)
	TypingStop(conversationID string)
	StreamStart(conversationID, messageID string)
	StreamChunk(conversationID, messageID, chunk string)
	StreamEnd(conversationID, messageID string, suggestions []string)
	MessageReceived(conversationID string, data map[string]any)
}

// SendResult 消息处理结果
type SendResult struct {
	ConversationID string
	MessageID      string
	Reply          string
	Suggestions    []string
	CreatedAt      time.Time
}

// ConversationStatus 对话状态
type ConversationStatus struct {
	ConversationID string
	MessageCount   int64
	IsTyping       bool
	LastMessageAt  *time.Time
}

// ChatService 对话服务 - 业务逻辑层
// 职责: 编排消息持久化、AI 流式生成和实时推送
type ChatService struct {
	aiClient    ai.Client
	convRepo    repo.ConversationRepository
	msgRepo     repo.MessageRepository
	fbRepo      repo.FeedbackRepository
	typing      *TypingService
	broadcaster Broadcaster
	historyN    int64
}

// NewChatService 创建对话服务
func NewChatService(
	aiClient ai.Client,
	convRepo repo.ConversationRepository,
	msgRepo repo.MessageRepository,
	fbRepo repo.FeedbackRepository,
	typing *TypingService,
	broadcaster Broadcaster,
	historyWindow int,
) *ChatService {
	if historyWindow <= 0 {
		historyWindow = 8
	}
	return &ChatService{
		aiClient:    aiClient,
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		fbRepo:      fbRepo,
		typing:      typing,
		broadcaster: broadcaster,
		historyN:    int64(historyWindow),
	}
}

// SendMessage 处理一条用户消息
// 业务流程: 解析对话 -> 保存用户消息 -> 开启输入状态 -> 创建助手占位 ->
// 流式生成并逐块推送 -> 写入最终回复 -> 关闭输入状态并推送结束事件
func (s *ChatService) SendMessage(ctx context.Context, sessionID, content string) (*SendResult, error) {
	conv, err := s.convRepo.GetOrCreate(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("resolve conversation failed")
		return nil, apperr.Processing(err)
	}

	logger := log.With().Str("conversation_id", conv.ID).Logger()

	// 历史窗口在保存新消息之前读取，当前这条由 userMessage 单独传入
	history, err := s.msgRepo.FindByConversationID(ctx, conv.ID, s.historyN)
	if err != nil {
		logger.Error().Err(err).Msg("load history failed")
		return nil, apperr.Processing(err)
	}

	userMsg, err := s.msgRepo.Create(ctx, conv.ID, content, chat.SenderUser)
	if err != nil {
		logger.Error().Err(err).Msg("save user message failed")
		return nil, apperr.Processing(err)
	}
	s.broadcaster.MessageReceived(conv.ID, map[string]any{
		"messageId": userMsg.ID,
		"sender":    string(userMsg.Sender),
		"content":   userMsg.Content,
		"createdAt": userMsg.CreatedAt,
	})

	s.typing.Set(ctx, conv.ID)
	s.broadcaster.TypingStart(conv.ID)

	placeholder, err := s.msgRepo.CreatePlaceholder(ctx, conv.ID)
	if err != nil {
		logger.Error().Err(err).Msg("create assistant placeholder failed")
		s.stopTyping(ctx, conv.ID)
		return nil, apperr.Processing(err)
	}
	s.broadcaster.StreamStart(conv.ID, placeholder.ID)

	reply, err := s.aiClient.GenerateReplyStream(ctx, history, content, func(chunk string) {
		s.broadcaster.StreamChunk(conv.ID, placeholder.ID, chunk)
	})
	if err != nil {
		logger.Error().Err(err).Str("message_id", placeholder.ID).Msg("generate reply failed")
		s.stopTyping(ctx, conv.ID)
		return nil, apperr.From(err)
	}

	final, err := s.msgRepo.UpdatePlaceholder(ctx, placeholder.ID, reply.Content)
	if err != nil {
		logger.Error().Err(err).Str("message_id", placeholder.ID).Msg("finalize assistant message failed")
		s.stopTyping(ctx, conv.ID)
		return nil, apperr.Processing(err)
	}

	s.stopTyping(ctx, conv.ID)
	s.broadcaster.StreamEnd(conv.ID, final.ID, reply.Suggestions)

	logger.Info().
		Str("message_id", final.ID).
		Int("reply_length", len(final.Content)).
		Int("suggestions", len(reply.Suggestions)).
		Msg("message processed")

	return &SendResult{
		ConversationID: conv.ID,
		MessageID:      final.ID,
		Reply:          final.Content,
		Suggestions:    reply.Suggestions,
		CreatedAt:      final.CreatedAt,
	}, nil
}

// GetConversationHistory 查询对话全部消息，按时间升序
func (s *ChatService) GetConversationHistory(ctx context.Context, conversationID string) ([]*chat.Message, error) {
	if err := s.ensureConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	msgs, err := s.msgRepo.FindByConversationID(ctx, conversationID, 0)
	if err != nil {
		return nil, apperr.Processing(err)
	}
	return msgs, nil
}

// GetStatus 查询对话状态（消息数、AI 是否正在输入、最后一条消息时间）
func (s *ChatService) GetStatus(ctx context.Context, conversationID string) (*ConversationStatus, error) {
	if err := s.ensureConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	count, err := s.msgRepo.CountByConversationID(ctx, conversationID)
	if err != nil {
		return nil, apperr.Processing(err)
	}

	status := &ConversationStatus{
		ConversationID: conversationID,
		MessageCount:   count,
		IsTyping:       s.typing.IsTyping(ctx, conversationID),
	}

	if latest, err := s.msgRepo.FindLatest(ctx, conversationID); err == nil && latest != nil {
		t := latest.CreatedAt
		status.LastMessageAt = &t
	}
	return status, nil
}

// SubmitFeedback 提交消息反馈，重复提交覆盖旧评价
func (s *ChatService) SubmitFeedback(ctx context.Context, conversationID, messageID string, rating chat.FeedbackRating) (*chat.Feedback, error) {
	if err := s.ensureConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	fb, err := s.fbRepo.Upsert(ctx, conversationID, messageID, rating)
	if err != nil {
		return nil, apperr.Processing(err)
	}
	return fb, nil
}

func (s *ChatService) ensureConversation(ctx context.Context, conversationID string) error {
	conv, err := s.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return apperr.Processing(err)
	}
	if conv == nil {
		return apperr.NotFound("Conversation not found")
	}
	return nil
}

// stopTyping 关闭输入状态标记并推送停止事件，成功和失败路径都会走到
func (s *ChatService) stopTyping(ctx context.Context, conversationID string) {
	s.typing.Clear(ctx, conversationID)
	s.broadcaster.TypingStop(conversationID)
}
