package websocket

import (
	"crypto/rand"
	"encoding/base64"

	"backend/internal/utils"

	"go.uber.org/zap"
)

type Client struct {
	hub  *Hub
	conn ClientConn
	ID   string
}

type ClientConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	Close() error
}

func generateClientID() string {
	bytes := make([]byte, 6)
	if _, err := rand.Read(bytes); err != nil {
		return "xxxxx"
	}
	return base64.URLEncoding.EncodeToString(bytes)
}

// Hub fans stats_updated events from the in-process bus out to connected
// dashboard clients. Clients are read-only; inbound frames are drained and
// ignored.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	eventBus   *utils.EventBus
	logger     *zap.SugaredLogger
}

func NewHub(logger *zap.Logger, eventBus *utils.EventBus) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		eventBus:   eventBus,
		logger:     logger.Sugar(),
	}
}

func (h *Hub) Run() {
	h.logger.Info("WebSocket Hub started")

	events := h.eventBus.SubscribeCh()

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Infow("Dashboard client connected",
				"client_id", client.ID,
				"clients_count", len(h.clients),
			)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				h.logger.Infow("Dashboard client disconnected",
					"client_id", client.ID,
					"clients_count", len(h.clients),
				)
			}

		case event := <-events:
			h.broadcast(event)
		}
	}
}

func (h *Hub) broadcast(event utils.Event) {
	for client := range h.clients {
		if err := client.conn.WriteJSON(event); err != nil {
			h.logger.Warnw("Failed to push event to client",
				"client_id", client.ID,
				"event", event.Event,
				"error", err,
			)
			delete(h.clients, client)
			client.conn.Close()
		}
	}
}
