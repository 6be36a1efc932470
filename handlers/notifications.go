// handlers/notifications.go - Live unlock/claim feed over WebSocket
package handlers

import (
	"encoding/json"
	"log"
	"sync"

	"studytrack/services"

	"github.com/gofiber/websocket/v2"
)

const sendBufferSize = 16

type wsClient struct {
	userID uint
	send   chan []byte
}

// Hub fans engine events out to each user's open sockets. It implements
// services.Notifier; the engine handles de-duplication, the hub only
// delivers.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*wsClient]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uint]map[*wsClient]struct{})}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*wsClient]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
}

// broadcast sends an event to every socket of one user. Slow consumers are
// skipped rather than blocking the engine.
func (h *Hub) broadcast(userID uint, event string, data interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"type": event,
		"data": data,
	})
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- payload:
		default:
		}
	}
}

// AchievementUnlocked implements services.Notifier.
func (h *Hub) AchievementUnlocked(userID uint, ev services.UnlockEvent) {
	h.broadcast(userID, "achievement_unlocked", ev)
}

// ClaimSucceeded implements services.Notifier.
func (h *Hub) ClaimSucceeded(userID uint, ev services.UnlockEvent) {
	h.broadcast(userID, "claim_succeeded", ev)
}

// ServeNotifications upgrades to WebSocket and streams engine events.
// GET /ws/notifications (token via header or ?token=)
func ServeNotifications(hub *Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		var userID uint
		switch v := conn.Locals("userId").(type) {
		case float64:
			userID = uint(v)
		case uint:
			userID = v
		default:
			conn.Close()
			return
		}

		client := &wsClient{userID: userID, send: make(chan []byte, sendBufferSize)}
		hub.register(client)
		defer hub.unregister(client)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case payload := <-client.send:
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					conn.Close()
					<-done
					return
				}
			case <-done:
				return
			}
		}
	}
}
