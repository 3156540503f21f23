package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"socialnet/internal/middleware"
	"socialnet/internal/models"
	"socialnet/internal/observability"
	"socialnet/internal/repository"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
)

// Assignment sources recorded on the plan assignment metric.
const (
	SourceAdmin    = "admin"
	SourceCheckout = "checkout"
	SourceCLI      = "cli"
)

// PlanService owns the plan and credit lifecycle: lazy expiry and refill on
// identity reads, plan assignment, and the optional expiry sweep.
type PlanService struct {
	store repository.Store
	now   func() time.Time
}

func NewPlanService(store repository.Store) *PlanService {
	return &PlanService{store: store, now: time.Now}
}

var expiryColumns = []string{"plan", "badge", "credits", "plan_expires"}

func expirePlan(u *models.User, ms int64) bool {
	if u.Plan == models.PlanFree || u.PlanExpires == 0 || ms <= u.PlanExpires {
		return false
	}
	u.Plan = models.PlanFree
	u.Badge = models.BadgeNone
	u.Credits = models.PlanFree.Allotment()
	u.PlanExpires = 0
	return true
}

func refillCredits(u *models.User, ms int64) bool {
	if u.Plan == models.PlanPro || ms-u.LastCreditRefill < models.CreditRefillInterval.Milliseconds() {
		return false
	}
	u.Credits = u.Plan.Allotment()
	u.LastCreditRefill = ms
	return true
}

// ApplyLifecycle runs expiry and then refill against u at now and returns
// the columns it changed. A second call at the same instant changes nothing.
func ApplyLifecycle(u *models.User, now time.Time) (expired, refilled bool, columns []string) {
	ms := now.UnixMilli()

	if expired = expirePlan(u, ms); expired {
		columns = append(columns, expiryColumns...)
	}
	if refilled = refillCredits(u, ms); refilled {
		if !expired {
			columns = append(columns, "credits")
		}
		columns = append(columns, "last_credit_refill")
	}
	return expired, refilled, columns
}

// Refresh loads the user, applies the lifecycle and persists any change.
func (s *PlanService) Refresh(ctx context.Context, userID string) (*models.User, error) {
	ctx, end := observability.StartSpan(ctx, "plan.refresh", attribute.String("user.id", userID))

	var user *models.User
	err := s.store.Tx(ctx, func(tx repository.Store) error {
		u, err := tx.Users().GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		expired, refilled, cols := ApplyLifecycle(u, s.now())
		if len(cols) > 0 {
			if err := tx.Users().UpdateColumns(ctx, u, cols...); err != nil {
				return err
			}
		}
		if expired {
			observability.PlanExpirations.WithLabelValues("read").Inc()
			middleware.Logger.InfoContext(ctx, "plan expired", slog.String("user_id", u.ID))
		}
		if refilled {
			observability.CreditRefills.WithLabelValues(string(u.Plan)).Inc()
		}
		user = u
		return nil
	})
	end(err)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Assign sets plan and badge on a user. Paid plans run for 30 days from now
// with a full allotment; free clears the expiry and resets credits to 5.
func (s *PlanService) Assign(ctx context.Context, userID string, plan models.Plan, badge models.Badge, source string) (*models.User, error) {
	if !plan.Valid() {
		return nil, models.NewValidationError("Unknown plan: " + string(plan))
	}
	if !badge.Valid() {
		return nil, models.NewValidationError("Unknown badge: " + string(badge))
	}

	var user *models.User
	err := s.store.Tx(ctx, func(tx repository.Store) error {
		u, err := tx.Users().GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		u.Plan = plan
		u.Badge = badge
		u.Credits = plan.Allotment()
		if plan.Paid() {
			u.PlanExpires = s.now().Add(models.PlanDuration).UnixMilli()
		} else {
			u.PlanExpires = 0
		}
		if err := tx.Users().UpdateColumns(ctx, u, "plan", "badge", "credits", "plan_expires"); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.PlanAssignments.WithLabelValues(string(plan), source).Inc()
	middleware.Logger.InfoContext(ctx, "plan assigned",
		slog.String("user_id", userID),
		slog.String("plan", string(plan)),
		slog.String("badge", string(badge)),
		slog.String("source", source),
	)
	return user, nil
}

// ExpireDue reverts every paid plan whose expiry has passed and returns how
// many users it changed.
func (s *PlanService) ExpireDue(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.store.Users().ListExpired(ctx, now.UnixMilli())
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range due {
		err := s.store.Tx(ctx, func(tx repository.Store) error {
			u, err := tx.Users().GetByIDForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if !expirePlan(u, now.UnixMilli()) {
				return nil
			}
			if err := tx.Users().UpdateColumns(ctx, u, expiryColumns...); err != nil {
				return err
			}
			expired++
			return nil
		})
		if err != nil {
			if models.ErrorCode(err) == models.CodeNotFound {
				continue
			}
			return expired, err
		}
	}
	if expired > 0 {
		observability.PlanExpirations.WithLabelValues("sweep").Add(float64(expired))
	}
	return expired, nil
}

// RunSweeper calls ExpireDue every interval while enabled reports true.
// It returns when ctx is cancelled.
func (s *PlanService) RunSweeper(ctx context.Context, interval time.Duration, enabled func() bool) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if enabled != nil && !enabled() {
				continue
			}
			s.sweep(ctx)
		}
	}
}

func (s *PlanService) sweep(ctx context.Context) {
	n, err := s.ExpireDue(ctx)
	if err != nil {
		middleware.Logger.Error("plan sweep failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		middleware.Logger.Info("plan sweep expired users", slog.Int("count", n))
	}
}

// ScheduleSweeper runs ExpireDue on a cron schedule (standard five-field
// spec or descriptors such as "@hourly") while enabled reports true. The
// returned cron is already started; stop it on shutdown.
func (s *PlanService) ScheduleSweeper(ctx context.Context, spec string, enabled func() bool) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		if enabled != nil && !enabled() {
			return
		}
		s.sweep(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
