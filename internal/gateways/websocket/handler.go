package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorw("Failed to upgrade connection",
			"client_ip", c.ClientIP(),
			"error", err,
		)
		return
	}
	defer conn.Close()

	client := &Client{
		hub:  h,
		conn: conn,
		ID:   generateClientID(),
	}

	h.logger.Infow("WebSocket connection established",
		"client_id", client.ID,
		"client_ip", c.ClientIP(),
		"user_agent", c.GetHeader("User-Agent"),
	)

	h.register <- client

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
	h.unregister <- client
}
