package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"socialnet/internal/middleware"

	"github.com/gofiber/websocket/v2"
)

const maxConnsPerUser = 12

// Event types sent to WebSocket clients.
const (
	EventMessage    = "message"
	EventConnected  = "connected"
	EventShutdown   = "server_shutdown"
	EventDropNotice = "messages_dropped"
)

// ErrConnectionLimit is returned when a user already has maxConnsPerUser sockets.
var ErrConnectionLimit = errors.New("user connection limit reached")

// ChatMessage is the envelope pushed to clients and carried over pub/sub.
type ChatMessage struct {
	Type           string   `json:"type"`
	ConversationID string   `json:"conversation_id,omitempty"`
	Participants   []string `json:"participants,omitempty"`
	Payload        any      `json:"payload,omitempty"`
}

// ChatHub tracks WebSocket clients per user and delivers conversation events
// to the connections of both participants.
type ChatHub struct {
	mu sync.RWMutex

	// userID -> set of active clients (multi-device)
	userConns map[string]map[*Client]bool
}

// Name returns a human-readable identifier for this hub.
func (h *ChatHub) Name() string { return "chat hub" }

func NewChatHub() *ChatHub {
	return &ChatHub{userConns: make(map[string]map[*Client]bool)}
}

// Register adds a connection for userID.
func (h *ChatHub) Register(userID string, conn *websocket.Conn) (*Client, error) {
	client := NewClient(h, conn, userID)
	if err := h.add(client); err != nil {
		return nil, err
	}

	if b, err := json.Marshal(ChatMessage{Type: EventConnected, Payload: map[string]string{"user_id": userID}}); err == nil {
		client.TrySend(b)
	}
	return client, nil
}

func (h *ChatHub) add(client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.userConns[client.UserID] == nil {
		h.userConns[client.UserID] = make(map[*Client]bool)
	}
	if len(h.userConns[client.UserID]) >= maxConnsPerUser {
		return ErrConnectionLimit
	}
	h.userConns[client.UserID][client] = true
	middleware.ActiveWebSockets.Inc()
	middleware.Logger.Debug("chat client registered",
		slog.String("user_id", client.UserID),
		slog.Int("clients", len(h.userConns[client.UserID])),
	)
	return nil
}

// UnregisterClient removes one connection. Safe to call twice.
func (h *ChatHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.userConns[client.UserID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.userConns, client.UserID)
	}
	close(client.Send)
	middleware.ActiveWebSockets.Dec()
}

// IsUserOnline returns true when the user has at least one active client.
func (h *ChatHub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID]) > 0
}

// Deliver sends the event to every connection of every participant.
func (h *ChatHub) Deliver(message ChatMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		middleware.Logger.Error("failed to marshal chat event", slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, userID := range message.Participants {
		for client := range h.userConns[userID] {
			client.TrySend(payload)
		}
	}
}

// StartWiring feeds the hub from Redis pub/sub.
func (h *ChatHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartChatSubscriber(ctx, func(channel, payload string) {
		conversationID, ok := conversationIDFromChannel(channel)
		if !ok {
			middleware.Logger.Warn("invalid chat channel", slog.String("channel", channel))
			return
		}

		var message ChatMessage
		if err := json.Unmarshal([]byte(payload), &message); err != nil {
			middleware.Logger.Warn("failed to parse chat event",
				slog.String("channel", channel),
				slog.String("error", err.Error()),
			)
			return
		}
		if message.Type == "" {
			message.Type = EventMessage
		}
		message.ConversationID = conversationID
		h.Deliver(message)
	})
}

// Shutdown tells every client the server is going away and closes the sockets.
func (h *ChatHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	notice, _ := json.Marshal(ChatMessage{Type: EventShutdown, Payload: "Server is shutting down"})
	for userID, clients := range h.userConns {
		for client := range clients {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, notice); err != nil {
				middleware.Logger.Debug("failed to write shutdown notice", slog.String("user_id", userID))
			}
			_ = client.Conn.Close()
		}
		middleware.ActiveWebSockets.Sub(float64(len(clients)))
	}
	h.userConns = make(map[string]map[*Client]bool)
	return nil
}
