package repository

import (
	"context"
	"errors"

	"socialnet/internal/models"

	"gorm.io/gorm"
)

// ConversationRepository defines the interface for conversation data operations
type ConversationRepository interface {
	FindByPair(ctx context.Context, a, b string) (*models.Conversation, error)
	Create(ctx context.Context, conv *models.Conversation) error
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]models.Conversation, error)
	UpdateColumns(ctx context.Context, conv *models.Conversation, columns ...string) error
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// FindByPair returns the conversation between a and b in either order, or nil.
func (r *conversationRepository) FindByPair(ctx context.Context, a, b string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).Where("pair_key = ?", models.PairKeyFor(a, b)).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &conv, nil
}

// Create inserts conv. A second conversation for the same pair is reported
// as a duplicate.
func (r *conversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	if len(conv.Participants) == 2 {
		conv.PairKey = models.PairKeyFor(conv.Participants[0], conv.Participants[1])
	}
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewDuplicateError("Conversation already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.WithContext(ctx).First(&conv, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Conversation", id)
	}
	return &conv, nil
}

func (r *conversationRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := forUpdate(r.db.WithContext(ctx)).First(&conv, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Conversation", id)
	}
	return &conv, nil
}

// ListForUser returns every conversation userID takes part in, most recently
// active first.
func (r *conversationRepository) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.WithContext(ctx).
		Where("participants LIKE ?", `%"`+userID+`"%`).
		Order("updated_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	// The LIKE filter is a prefilter on the JSON text; membership is decided here.
	out := convs[:0]
	for _, c := range convs {
		if c.HasParticipant(userID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *conversationRepository) UpdateColumns(ctx context.Context, conv *models.Conversation, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(conv).Select(columns).Updates(conv).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
