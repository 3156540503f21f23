// Package notifications provides real-time delivery of chat messages over
// Redis pub/sub and WebSockets.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"socialnet/internal/middleware"
	"socialnet/internal/models"

	"github.com/redis/go-redis/v9"
)

const conversationChannelPrefix = "chat:conv:"

// ConversationChannel returns the pub/sub channel for a conversation.
func ConversationChannel(conversationID string) string {
	return conversationChannelPrefix + conversationID
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishChatMessage publishes a chat message to a conversation channel
func (n *Notifier) PublishChatMessage(ctx context.Context, conversationID string, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, ConversationChannel(conversationID), payload).Err()
}

// StartChatSubscriber subscribes to chat:conv:* and calls onMessage for each
// incoming message until ctx is cancelled.
func (n *Notifier) StartChatSubscriber(ctx context.Context, onMessage func(channel string, payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, conversationChannelPrefix+"*")
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe chat channels: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in chat subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// ChatPublisher fans stored messages out to WebSocket clients. With Redis the
// event travels through pub/sub so every process's hub sees it; without Redis
// it goes straight to the local hub.
type ChatPublisher struct {
	notifier *Notifier
	hub      *ChatHub
}

func NewChatPublisher(notifier *Notifier, hub *ChatHub) *ChatPublisher {
	return &ChatPublisher{notifier: notifier, hub: hub}
}

func (p *ChatPublisher) PublishMessage(ctx context.Context, conv *models.Conversation, msg models.Message) error {
	event := ChatMessage{
		Type:           EventMessage,
		ConversationID: conv.ID,
		Participants:   []string(conv.Participants),
		Payload:        msg,
	}
	if p.notifier.Enabled() {
		b, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal chat event: %w", err)
		}
		return p.notifier.PublishChatMessage(ctx, conv.ID, string(b))
	}
	if p.hub != nil {
		p.hub.Deliver(event)
	}
	return nil
}

func conversationIDFromChannel(channel string) (string, bool) {
	id, ok := strings.CutPrefix(channel, conversationChannelPrefix)
	return id, ok && id != ""
}
