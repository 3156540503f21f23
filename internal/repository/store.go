// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"
	"sync"

	"socialnet/internal/cache"
	"socialnet/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store groups the repositories that share one database handle. Tx runs fn
// against a Store bound to a single transaction.
type Store interface {
	Users() UserRepository
	Posts() PostRepository
	Conversations() ConversationRepository
	Tx(ctx context.Context, fn func(Store) error) error
}

// invalidateFunc drops cache keys after a write.
type invalidateFunc func(ctx context.Context, keys ...string)

// pendingKeys collects the cache keys a transaction dirtied. They are
// dropped once the transaction has committed so readers cannot re-cache
// rows from before the write.
type pendingKeys struct {
	mu   sync.Mutex
	keys []string
}

func (p *pendingKeys) add(_ context.Context, keys ...string) {
	p.mu.Lock()
	p.keys = append(p.keys, keys...)
	p.mu.Unlock()
}

func (p *pendingKeys) flush(ctx context.Context) {
	p.mu.Lock()
	keys := p.keys
	p.keys = nil
	p.mu.Unlock()
	cache.Invalidate(ctx, keys...)
}

type gormStore struct {
	db      *gorm.DB
	pending *pendingKeys
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) invalidate() invalidateFunc {
	if s.pending != nil {
		return s.pending.add
	}
	return cache.Invalidate
}

func (s *gormStore) Users() UserRepository {
	return &userRepository{db: s.db, invalidate: s.invalidate()}
}

func (s *gormStore) Posts() PostRepository {
	return &postRepository{db: s.db, invalidate: s.invalidate()}
}

func (s *gormStore) Conversations() ConversationRepository { return NewConversationRepository(s.db) }

// Tx runs fn in one transaction. Cache invalidations issued inside fn are
// deferred until the outermost transaction commits and dropped on rollback.
func (s *gormStore) Tx(ctx context.Context, fn func(Store) error) error {
	if s.pending != nil {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&gormStore{db: tx, pending: s.pending})
		})
	}

	pending := &pendingKeys{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx, pending: pending})
	})
	if err != nil {
		return err
	}
	pending.flush(ctx)
	return nil
}

// forUpdate adds a row lock. The sqlite dialect drops the clause since the
// database lock already serializes writers.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}

func notFoundOr(err error, resource string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}
