// Package tests 对话流程集成测试（仓库层 + 服务层，走真实 MongoDB）
package tests

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"spurline/internal/ai"
	"spurline/internal/model/chat"
	chatRepo "spurline/internal/repository/chat"
	"spurline/internal/service"
)

// scriptedAI 固定回复的 AI 客户端，集成测试不依赖真实 LLM
type scriptedAI struct {
	chunks      []string
	suggestions []string
}

func (c *scriptedAI) GenerateReply(ctx context.Context, history []*chat.Message, userMessage string) (string, error) {
	reply, err := c.GenerateReplyStream(ctx, history, userMessage, func(string) {})
	if err != nil {
		return "", err
	}
	return reply.Content, nil
}

func (c *scriptedAI) GenerateReplyStream(ctx context.Context, history []*chat.Message, userMessage string, onChunk func(string)) (*ai.Reply, error) {
	var content string
	for _, chunk := range c.chunks {
		content += chunk
		onChunk(chunk)
	}
	return &ai.Reply{Content: content, Suggestions: c.suggestions}, nil
}

// memTypingStore 内存输入状态存储，替代 Redis
type memTypingStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemTypingStore() *memTypingStore {
	return &memTypingStore{keys: make(map[string]string)}
}

func (s *memTypingStore) SetString(ctx context.Context, key, value string, expiration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = value
	return nil
}

func (s *memTypingStore) GetString(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.keys[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("key not found: %s", key)
}

func (s *memTypingStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.keys, k)
	}
	return nil
}

// noopBroadcaster 集成测试不关心推送
type noopBroadcaster struct{}

func (noopBroadcaster) TypingStart(string)                     {}
func (noopBroadcaster) TypingStop(string)                      {}
func (noopBroadcaster) StreamStart(string, string)             {}
func (noopBroadcaster) StreamChunk(string, string, string)     {}
func (noopBroadcaster) StreamEnd(string, string, []string)     {}
func (noopBroadcaster) MessageReceived(string, map[string]any) {}

func TestConversationRepo(t *testing.T) {
	Convey("ConversationRepo 对话仓库", t, func() {
		repo := chatRepo.NewConversationRepo(testDB)

		Convey("GetOrCreate 空 sessionID 新建对话", func() {
			conv, err := repo.GetOrCreate(testCtx, "")
			So(err, ShouldBeNil)
			So(conv.ID, ShouldNotBeEmpty)
			So(conv.Channel, ShouldEqual, chat.ChannelWeb)
		})

		Convey("GetOrCreate 已有 sessionID 复用对话", func() {
			first, err := repo.GetOrCreate(testCtx, "")
			So(err, ShouldBeNil)

			second, err := repo.GetOrCreate(testCtx, first.ID)
			So(err, ShouldBeNil)
			So(second.ID, ShouldEqual, first.ID)

			// 重复调用不会产生第二个对话
			exists, err := repo.Exists(testCtx, first.ID)
			So(err, ShouldBeNil)
			So(exists, ShouldBeTrue)
		})

		Convey("FindByID 未知 ID 返回 nil", func() {
			conv, err := repo.FindByID(testCtx, "00000000-0000-0000-0000-000000000000")
			So(err, ShouldBeNil)
			So(conv, ShouldBeNil)
		})
	})
}

func TestMessageRepo(t *testing.T) {
	Convey("MessageRepo 消息仓库", t, func() {
		convRepo := chatRepo.NewConversationRepo(testDB)
		msgRepo := chatRepo.NewMessageRepo(testDB)

		conv, err := convRepo.Create(testCtx, chat.ChannelWeb, nil)
		So(err, ShouldBeNil)

		Convey("消息按时间升序返回", func() {
			for i := 0; i < 5; i++ {
				_, err := msgRepo.Create(testCtx, conv.ID, fmt.Sprintf("m%d", i), chat.SenderUser)
				So(err, ShouldBeNil)
			}

			msgs, err := msgRepo.FindByConversationID(testCtx, conv.ID, 0)
			So(err, ShouldBeNil)
			So(len(msgs), ShouldEqual, 5)
			So(msgs[0].Content, ShouldEqual, "m0")
			So(msgs[4].Content, ShouldEqual, "m4")
		})

		Convey("带 limit 时返回最近的几条且仍为升序", func() {
			for i := 0; i < 6; i++ {
				_, err := msgRepo.Create(testCtx, conv.ID, fmt.Sprintf("w%d", i), chat.SenderUser)
				So(err, ShouldBeNil)
			}

			msgs, err := msgRepo.FindByConversationID(testCtx, conv.ID, 3)
			So(err, ShouldBeNil)
			So(len(msgs), ShouldEqual, 3)
			So(msgs[0].Content, ShouldEqual, "w3")
			So(msgs[2].Content, ShouldEqual, "w5")
		})

		Convey("占位消息只能被写入一次", func() {
			placeholder, err := msgRepo.CreatePlaceholder(testCtx, conv.ID)
			So(err, ShouldBeNil)
			So(placeholder.Content, ShouldEqual, "")

			final, err := msgRepo.UpdatePlaceholder(testCtx, placeholder.ID, "final reply")
			So(err, ShouldBeNil)
			So(final.Content, ShouldEqual, "final reply")

			// 第二次写入失败，内容不会被覆盖
			_, err = msgRepo.UpdatePlaceholder(testCtx, placeholder.ID, "other reply")
			So(err, ShouldEqual, chatRepo.ErrPlaceholderGone)
		})

		Convey("用户消息不能被当作占位写入", func() {
			userMsg, err := msgRepo.Create(testCtx, conv.ID, "", chat.SenderUser)
			So(err, ShouldBeNil)

			_, err = msgRepo.UpdatePlaceholder(testCtx, userMsg.ID, "hijack")
			So(err, ShouldEqual, chatRepo.ErrPlaceholderGone)
		})
	})
}

func TestFeedbackRepo(t *testing.T) {
	Convey("FeedbackRepo 反馈仓库", t, func() {
		repo := chatRepo.NewFeedbackRepo(testDB)

		Convey("重复提交覆盖旧评价，且只保留一条", func() {
			convID := "conv-feedback"
			msgID := "msg-feedback-1"

			first, err := repo.Upsert(testCtx, convID, msgID, chat.RatingUp)
			So(err, ShouldBeNil)
			So(first.Rating, ShouldEqual, chat.RatingUp)

			second, err := repo.Upsert(testCtx, convID, msgID, chat.RatingDown)
			So(err, ShouldBeNil)
			So(second.Rating, ShouldEqual, chat.RatingDown)
			So(second.ID, ShouldEqual, first.ID)

			found, err := repo.FindByMessageID(testCtx, msgID)
			So(err, ShouldBeNil)
			So(found.Rating, ShouldEqual, chat.RatingDown)
		})

		Convey("Delete 后查询返回 nil", func() {
			msgID := "msg-feedback-2"
			_, err := repo.Upsert(testCtx, "conv-feedback", msgID, chat.RatingUp)
			So(err, ShouldBeNil)

			So(repo.Delete(testCtx, msgID), ShouldBeNil)

			found, err := repo.FindByMessageID(testCtx, msgID)
			So(err, ShouldBeNil)
			So(found, ShouldBeNil)
		})
	})
}

func TestChatFlow(t *testing.T) {
	Convey("端到端消息处理流程（真实 MongoDB）", t, func() {
		convRepo := chatRepo.NewConversationRepo(testDB)
		msgRepo := chatRepo.NewMessageRepo(testDB)
		fbRepo := chatRepo.NewFeedbackRepo(testDB)
		typing := service.NewTypingService(newMemTypingStore(), 30*time.Second)

		aiClient := &scriptedAI{
			chunks:      []string{"Your order ", "ships in 5-7 days."},
			suggestions: []string{"Track my order?"},
		}
		svc := service.NewChatService(aiClient, convRepo, msgRepo, fbRepo, typing, noopBroadcaster{}, 8)

		Convey("一轮完整对话", func() {
			result, err := svc.SendMessage(testCtx, "", "When does my order ship?")
			So(err, ShouldBeNil)
			So(result.Reply, ShouldEqual, "Your order ships in 5-7 days.")

			Convey("历史包含用户消息和最终回复", func() {
				msgs, err := svc.GetConversationHistory(testCtx, result.ConversationID)
				So(err, ShouldBeNil)
				So(len(msgs), ShouldEqual, 2)
				So(msgs[0].Sender, ShouldEqual, chat.SenderUser)
				So(msgs[1].Sender, ShouldEqual, chat.SenderAssistant)
				So(msgs[1].Content, ShouldEqual, result.Reply)
			})

			Convey("状态接口返回消息数", func() {
				status, err := svc.GetStatus(testCtx, result.ConversationID)
				So(err, ShouldBeNil)
				So(status.MessageCount, ShouldEqual, 2)
				So(status.IsTyping, ShouldBeFalse)
			})

			Convey("第二轮落在同一对话", func() {
				second, err := svc.SendMessage(testCtx, result.ConversationID, "And returns?")
				So(err, ShouldBeNil)
				So(second.ConversationID, ShouldEqual, result.ConversationID)

				msgs, _ := svc.GetConversationHistory(testCtx, result.ConversationID)
				So(len(msgs), ShouldEqual, 4)
			})

			Convey("对回复提交反馈", func() {
				fb, err := svc.SubmitFeedback(testCtx, result.ConversationID, result.MessageID, chat.RatingUp)
				So(err, ShouldBeNil)
				So(fb.MessageID, ShouldEqual, result.MessageID)
			})
		})
	})
}
