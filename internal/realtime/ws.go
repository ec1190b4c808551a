package realtime

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSHandler WebSocket 接入处理器
type WSHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewWSHandler 创建 WebSocket 处理器
func NewWSHandler(hub *Hub) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle WebSocket 升级入口
// 客户端连接后通过 join_conversation / leave_conversation 管理订阅
func (h *WSHandler) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Debug().Err(err).Msg("ws upgrade failed")
		return
	}

	client := newClient(h.hub, conn)
	go client.writePump()
	client.readPump()
}
