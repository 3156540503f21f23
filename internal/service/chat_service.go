package service

import (
	"context"
	"log/slog"
	"time"

	"socialnet/internal/middleware"
	"socialnet/internal/models"
	"socialnet/internal/observability"
	"socialnet/internal/repository"
	"socialnet/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// MessagePublisher fans a stored message out to realtime subscribers.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, conv *models.Conversation, msg models.Message) error
}

// ChatService provides conversation and message business logic.
type ChatService struct {
	store     repository.Store
	publisher MessagePublisher
	now       func() time.Time
}

// NewChatService returns a new ChatService. publisher may be nil.
func NewChatService(store repository.Store, publisher MessagePublisher) *ChatService {
	return &ChatService{store: store, publisher: publisher, now: time.Now}
}

// GetOrCreateConversation returns the conversation between actor and target.
// Reusing an existing one is free; creating one costs the actor a credit
// unless they are on the pro plan. The bool reports whether it was created.
func (s *ChatService) GetOrCreateConversation(ctx context.Context, actorID, targetID string) (*models.Conversation, bool, error) {
	if targetID == "" {
		return nil, false, models.NewValidationError("targetId is required")
	}
	if actorID == targetID {
		return nil, false, models.NewValidationError("Cannot start a conversation with yourself")
	}

	ctx, end := observability.StartSpan(ctx, "chat.get_or_create",
		attribute.String("user.id", actorID),
		attribute.String("target.id", targetID),
	)

	conv, created, err := s.getOrCreate(ctx, actorID, targetID)
	end(err)
	return conv, created, err
}

func (s *ChatService) getOrCreate(ctx context.Context, actorID, targetID string) (*models.Conversation, bool, error) {
	if _, err := s.store.Users().GetByID(ctx, targetID); err != nil {
		return nil, false, err
	}

	existing, err := s.store.Conversations().FindByPair(ctx, actorID, targetID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	var (
		conv    *models.Conversation
		created bool
		plan    models.Plan
	)
	err = s.store.Tx(ctx, func(tx repository.Store) error {
		again, err := tx.Conversations().FindByPair(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if again != nil {
			conv = again
			return nil
		}

		actor, err := tx.Users().GetByIDForUpdate(ctx, actorID)
		if err != nil {
			return err
		}
		plan = actor.Plan
		if actor.Plan != models.PlanPro {
			ok, err := tx.Users().DecrementCredit(ctx, actorID)
			if err != nil {
				return err
			}
			if !ok {
				return models.NewInsufficientCreditsError()
			}
		}

		now := s.now().UnixMilli()
		c := &models.Conversation{
			ID:           models.NewID("conv"),
			Participants: models.StringSet{actorID, targetID},
			Messages:     models.Messages{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Conversations().Create(ctx, c); err != nil {
			return err
		}
		conv, created = c, true
		return nil
	})

	if models.ErrorCode(err) == models.CodeDuplicate {
		// A concurrent request created the pair first; our charge was rolled back.
		existing, findErr := s.store.Conversations().FindByPair(ctx, actorID, targetID)
		if findErr != nil {
			return nil, false, findErr
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	if err != nil {
		return nil, false, err
	}

	if created {
		observability.ConversationsStarted.Inc()
		if plan != models.PlanPro {
			observability.CreditsConsumed.WithLabelValues(string(plan)).Inc()
		}
		middleware.Logger.InfoContext(ctx, "conversation started",
			slog.String("conversation_id", conv.ID),
			slog.String("target_id", targetID),
		)
	}
	return conv, created, nil
}

// SendMessage appends a message from a participant and returns every
// message in the conversation.
func (s *ChatService) SendMessage(ctx context.Context, conversationID, senderID, text string) (models.Messages, error) {
	text, err := validation.ValidateText("Message text", text, validation.MaxMessageLength)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	var (
		conv *models.Conversation
		msg  models.Message
	)
	err = s.store.Tx(ctx, func(tx repository.Store) error {
		c, err := tx.Conversations().GetByIDForUpdate(ctx, conversationID)
		if err != nil {
			return err
		}
		if !c.HasParticipant(senderID) {
			return models.NewForbiddenError("You are not a participant in this conversation")
		}
		now := s.now().UnixMilli()
		msg = models.Message{
			ID:        models.NewID("m"),
			SenderID:  senderID,
			Text:      text,
			CreatedAt: now,
		}
		c.Messages = append(c.Messages, msg)
		c.UpdatedAt = now
		if err := tx.Conversations().UpdateColumns(ctx, c, "messages", "updated_at"); err != nil {
			return err
		}
		conv = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.MessagesSent.Inc()
	if s.publisher != nil {
		if err := s.publisher.PublishMessage(ctx, conv, msg); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish chat message",
				slog.String("conversation_id", conv.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return conv.Messages, nil
}

// ListConversations returns every conversation the user takes part in.
func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	return s.store.Conversations().ListForUser(ctx, userID)
}
