package realtime

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// 推送事件名（与前端约定）
const (
	// client -> server
	EventJoin       = "join_conversation"
	EventLeave      = "leave_conversation"
	EventUserTyping = "user_typing"

	// server -> client
	EventAITyping        = "ai_typing"
	EventStreamStart     = "ai_stream_start"
	EventStreamChunk     = "ai_stream_chunk"
	EventStreamEnd       = "ai_stream_end"
	EventMessageReceived = "message_received"
)

// Envelope WebSocket 下发的 JSON 消息
type Envelope struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
	TS    int64          `json:"ts"` // Unix 毫秒
}

// Hub 按对话维护订阅组，提供 fire-and-forget 的推送原语
// 所有推送都不保证送达（没有活跃连接时静默丢弃），
// 完整数据始终由 HTTP 同步响应兜底
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Join 订阅对话
func (h *Hub) Join(c *Client, conversationID string) {
	if conversationID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[conversationID] = room
	}
	room[c] = struct{}{}

	log.Debug().Str("conversation_id", conversationID).Msg("client joined conversation")
}

// Leave 退订对话
func (h *Hub) Leave(c *Client, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, conversationID)
}

// Remove 连接断开时清理该连接的所有订阅
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id := range h.rooms {
		h.leaveLocked(c, id)
	}
}

func (h *Hub) leaveLocked(c *Client, conversationID string) {
	room, ok := h.rooms[conversationID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
}

// broadcast 向对话订阅者非阻塞投递
// 订阅者缓冲满时丢弃该条消息，绝不阻塞发送方
func (h *Hub) broadcast(conversationID, event string, data map[string]any, exclude *Client) {
	msg := Envelope{
		Event: event,
		Data:  data,
		TS:    time.Now().UnixMilli(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[conversationID] {
		if c == exclude {
			continue
		}
		select {
		case c.send <- msg:
		default:
			log.Warn().
				Str("event", event).
				Str("conversation_id", conversationID).
				Msg("dropped realtime event (buffer full)")
		}
	}
}

// TypingStart 广播"助手正在输入"
func (h *Hub) TypingStart(conversationID string) {
	h.broadcast(conversationID, EventAITyping, map[string]any{"isTyping": true}, nil)
}

// TypingStop 广播"助手停止输入"
func (h *Hub) TypingStop(conversationID string) {
	h.broadcast(conversationID, EventAITyping, map[string]any{"isTyping": false}, nil)
}

// StreamStart 广播流式回复开始（携带占位消息 id，便于订阅方预留位置）
func (h *Hub) StreamStart(conversationID, messageID string) {
	h.broadcast(conversationID, EventStreamStart, map[string]any{"messageId": messageID}, nil)
}

// StreamChunk 广播一个文本增量，顺序与供应商下发一致
func (h *Hub) StreamChunk(conversationID, messageID, chunk string) {
	h.broadcast(conversationID, EventStreamChunk, map[string]any{
		"messageId": messageID,
		"chunk":     chunk,
	}, nil)
}

// StreamEnd 广播流式回复结束
func (h *Hub) StreamEnd(conversationID, messageID string, suggestions []string) {
	if suggestions == nil {
		suggestions = []string{}
	}
	h.broadcast(conversationID, EventStreamEnd, map[string]any{
		"messageId":   messageID,
		"suggestions": suggestions,
	}, nil)
}

// MessageReceived 广播完整消息（非流式场景）
func (h *Hub) MessageReceived(conversationID string, data map[string]any) {
	h.broadcast(conversationID, EventMessageReceived, data, nil)
}

// RelayUserTyping 把用户输入中事件转发给同对话的其他订阅者
func (h *Hub) RelayUserTyping(conversationID string, from *Client) {
	h.broadcast(conversationID, EventUserTyping, nil, from)
}

// SubscriberCount 返回对话当前订阅数（测试与诊断用）
func (h *Hub) SubscriberCount(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}
