package realtime

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	sendBufferSize = 64
	maxMessageSize = 4096
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	writeWait      = 5 * time.Second
)

// clientMessage 客户端上行消息
type clientMessage struct {
	Event          string `json:"event"`
	ConversationID string `json:"conversation_id"`
}

// Client 一条 WebSocket 连接
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Envelope
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan Envelope, sendBufferSize),
	}
}

// readPump 消费上行消息（join/leave/user_typing），同时维持读超时
// 连接断开时清理所有订阅
func (c *Client) readPump() {
	defer func() {
		c.hub.Remove(c)
		c.conn.Close()
		close(c.send)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			// 畸形消息跳过，不断开连接
			log.Debug().Err(err).Msg("ignoring malformed ws message")
			continue
		}

		switch msg.Event {
		case EventJoin:
			c.hub.Join(c, msg.ConversationID)
		case EventLeave:
			c.hub.Leave(c, msg.ConversationID)
		case EventUserTyping:
			c.hub.RelayUserTyping(msg.ConversationID, c)
		}
	}
}

// writePump 下发广播消息并定期发 ping
// 写失败只终止当前连接，错误不向广播方传播
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("ws write failed, closing connection")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
