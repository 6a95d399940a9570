package quota

import (
	"context"
	"fmt"

	"server/internal/domain"
)

// Guard enforces per-user generation quotas: rolling 24h daily item
// counts per content kind and a rolling 30-day spend cap. Daily counts
// are reserved before generation; cost is recorded after, so the
// monthly cap can lag by the in-flight generations.
type Guard struct {
	repo   domain.QuotaRepository
	limits domain.QuotaLimits
}

func NewGuard(repo domain.QuotaRepository, limits domain.QuotaLimits) *Guard {
	return &Guard{repo: repo, limits: limits}
}

// CheckAndReserve rolls expired windows, verifies the monthly cost cap,
// and atomically reserves one daily slot for the given kind. A
// *domain.QuotaExceededError is returned when either limit is hit.
func (g *Guard) CheckAndReserve(ctx context.Context, userID string, kind domain.ContentKind) error {
	if err := g.repo.Ensure(ctx, userID); err != nil {
		return fmt.Errorf("ensure quota record: %w", err)
	}
	if err := g.repo.ResetDailyIfElapsed(ctx, userID, domain.DailyQuotaWindow); err != nil {
		return fmt.Errorf("reset daily quota: %w", err)
	}
	if err := g.repo.ResetMonthlyIfElapsed(ctx, userID, domain.MonthlyQuotaWindow); err != nil {
		return fmt.Errorf("reset monthly quota: %w", err)
	}

	rec, err := g.repo.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load quota record: %w", err)
	}
	if rec.MonthlyCostUsed >= g.limits.MonthlyCostCap {
		return &domain.QuotaExceededError{
			Kind:  "cost",
			Limit: g.limits.MonthlyCostCap,
			Used:  rec.MonthlyCostUsed,
		}
	}

	limit := g.dailyLimit(kind)
	used, ok, err := g.repo.ReserveDaily(ctx, userID, kind, limit)
	if err != nil {
		return fmt.Errorf("reserve daily quota: %w", err)
	}
	if !ok {
		// A refused conditional update matches no row and reports no
		// counter; fall back to the record read above.
		if used == 0 {
			used = dailyUsed(rec, kind)
		}
		return &domain.QuotaExceededError{
			Kind:  string(kind),
			Limit: float64(limit),
			Used:  float64(used),
		}
	}
	return nil
}

func dailyUsed(rec *domain.QuotaRecord, kind domain.ContentKind) int {
	if kind == domain.ContentKindImage {
		return rec.DailyImageUsed
	}
	return rec.DailyTextUsed
}

// RecordActualCost adds the realized cost of a finished generation to
// the user's monthly total.
func (g *Guard) RecordActualCost(ctx context.Context, userID string, cost float64) error {
	if cost <= 0 {
		return nil
	}
	if err := g.repo.AddCost(ctx, userID, cost); err != nil {
		return fmt.Errorf("add quota cost: %w", err)
	}
	return nil
}

// Usage returns the user's current quota record alongside the
// configured limits, rolling expired windows first.
func (g *Guard) Usage(ctx context.Context, userID string) (*domain.QuotaRecord, domain.QuotaLimits, error) {
	if err := g.repo.Ensure(ctx, userID); err != nil {
		return nil, g.limits, fmt.Errorf("ensure quota record: %w", err)
	}
	if err := g.repo.ResetDailyIfElapsed(ctx, userID, domain.DailyQuotaWindow); err != nil {
		return nil, g.limits, fmt.Errorf("reset daily quota: %w", err)
	}
	if err := g.repo.ResetMonthlyIfElapsed(ctx, userID, domain.MonthlyQuotaWindow); err != nil {
		return nil, g.limits, fmt.Errorf("reset monthly quota: %w", err)
	}
	rec, err := g.repo.Get(ctx, userID)
	if err != nil {
		return nil, g.limits, fmt.Errorf("load quota record: %w", err)
	}
	return rec, g.limits, nil
}

func (g *Guard) dailyLimit(kind domain.ContentKind) int {
	if kind == domain.ContentKindImage {
		return g.limits.DailyImage
	}
	return g.limits.DailyText
}
