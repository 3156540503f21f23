package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"socialnet/internal/models"
	"socialnet/internal/repository"

	"github.com/redis/go-redis/v9"
)

const (
	checkoutCodePrefix   = "SN-"
	checkoutCodeLength   = 6
	checkoutCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// PendingCheckout is an issued but not yet redeemed upgrade code.
type PendingCheckout struct {
	Code      string      `json:"code"`
	Plan      models.Plan `json:"plan"`
	ExpiresAt int64       `json:"expires_at"`
}

// CodeStore keeps at most one pending checkout per user.
type CodeStore interface {
	Put(ctx context.Context, userID string, pending PendingCheckout, ttl time.Duration) error
	Get(ctx context.Context, userID string) (*PendingCheckout, error)
	Delete(ctx context.Context, userID string) error
}

// NewCodeStore returns a Redis-backed store, or an in-process one when rdb is nil.
func NewCodeStore(rdb *redis.Client) CodeStore {
	if rdb == nil {
		return NewMemoryCodeStore()
	}
	return &redisCodeStore{rdb: rdb}
}

type redisCodeStore struct {
	rdb *redis.Client
}

func checkoutKey(userID string) string {
	return "checkout:" + userID
}

func (s *redisCodeStore) Put(ctx context.Context, userID string, pending PendingCheckout, ttl time.Duration) error {
	b, err := json.Marshal(pending)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, checkoutKey(userID), b, ttl).Err()
}

func (s *redisCodeStore) Get(ctx context.Context, userID string) (*PendingCheckout, error) {
	raw, err := s.rdb.Get(ctx, checkoutKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var pending PendingCheckout
	if err := json.Unmarshal(raw, &pending); err != nil {
		return nil, err
	}
	return &pending, nil
}

func (s *redisCodeStore) Delete(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, checkoutKey(userID)).Err()
}

// MemoryCodeStore is the single-process fallback used without Redis.
type MemoryCodeStore struct {
	mu      sync.Mutex
	pending map[string]PendingCheckout
	now     func() time.Time
}

func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{pending: make(map[string]PendingCheckout), now: time.Now}
}

func (s *MemoryCodeStore) Put(_ context.Context, userID string, pending PendingCheckout, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending.ExpiresAt = s.now().Add(ttl).UnixMilli()
	s.pending[userID] = pending
	return nil
}

func (s *MemoryCodeStore) Get(_ context.Context, userID string) (*PendingCheckout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[userID]
	if !ok {
		return nil, nil
	}
	if s.now().UnixMilli() >= p.ExpiresAt {
		delete(s.pending, userID)
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryCodeStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, userID)
	return nil
}

// CheckoutResult is what the client shows the user before they pay.
type CheckoutResult struct {
	Code         string      `json:"code"`
	Plan         models.Plan `json:"plan"`
	PriceEUR     int         `json:"price"`
	ExpiresAt    int64       `json:"expires_at"`
	Instructions string      `json:"instructions"`
}

// BillingService runs the manual upgrade flow: issue a code, then redeem it.
// No payment is verified.
type BillingService struct {
	store repository.Store
	codes CodeStore
	plans *PlanService
	ttl   time.Duration
	now   func() time.Time
}

func NewBillingService(store repository.Store, codes CodeStore, plans *PlanService, ttl time.Duration) *BillingService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &BillingService{
		store: store,
		codes: codes,
		plans: plans,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Checkout issues a fresh code for a paid plan, replacing any pending one.
func (s *BillingService) Checkout(ctx context.Context, userID string, plan models.Plan) (*CheckoutResult, error) {
	if !plan.Paid() {
		return nil, models.NewValidationError("Checkout requires a paid plan (plus or pro)")
	}
	offer, _ := models.OfferFor(plan)
	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		return nil, err
	}

	code, err := newCheckoutCode()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	pending := PendingCheckout{
		Code:      code,
		Plan:      plan,
		ExpiresAt: s.now().Add(s.ttl).UnixMilli(),
	}
	if err := s.codes.Put(ctx, userID, pending, s.ttl); err != nil {
		return nil, models.NewInternalError(err)
	}

	return &CheckoutResult{
		Code:      code,
		Plan:      plan,
		PriceEUR:  offer.PriceEUR,
		ExpiresAt: pending.ExpiresAt,
		Instructions: fmt.Sprintf(
			"Send %d EUR and quote %s as the payment reference, then confirm the code.",
			offer.PriceEUR, code,
		),
	}, nil
}

// Confirm redeems the caller's pending code and assigns the plan with the
// matching badge.
func (s *BillingService) Confirm(ctx context.Context, userID, code string) (*models.User, error) {
	pending, err := s.codes.Get(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if pending == nil {
		return nil, models.NewNotFoundError("Checkout", userID)
	}
	if !strings.EqualFold(strings.TrimSpace(code), pending.Code) {
		return nil, models.NewValidationError("Confirmation code does not match")
	}

	user, err := s.plans.Assign(ctx, userID, pending.Plan, models.Badge(pending.Plan), SourceCheckout)
	if err != nil {
		return nil, err
	}
	if err := s.codes.Delete(ctx, userID); err != nil {
		return nil, models.NewInternalError(err)
	}
	return user, nil
}

func newCheckoutCode() (string, error) {
	var b strings.Builder
	b.WriteString(checkoutCodePrefix)
	limit := big.NewInt(int64(len(checkoutCodeAlphabet)))
	for i := 0; i < checkoutCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(checkoutCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
