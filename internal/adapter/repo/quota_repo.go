package repo

import (
	"context"
	"fmt"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// QuotaRepositoryPG implements domain.QuotaRepository over PostgreSQL. All
// mutations are single conditional statements so concurrent jobs belonging
// to the same user cannot lose updates.
type QuotaRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewQuotaRepository(sql infra.SQLExecutor) *QuotaRepositoryPG {
	return &QuotaRepositoryPG{sql: sql}
}

func (r *QuotaRepositoryPG) Ensure(ctx context.Context, userID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QEnsureQuotaRecord, userID)
	return err
}

func (r *QuotaRepositoryPG) Get(ctx context.Context, userID string) (*domain.QuotaRecord, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectQuotaRecord, userID)
	var rec domain.QuotaRecord
	if err := row.Scan(
		&rec.UserID,
		&rec.DailyTextUsed,
		&rec.DailyImageUsed,
		&rec.MonthlyCostUsed,
		&rec.LastDailyReset,
		&rec.LastMonthlyReset,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *QuotaRepositoryPG) ResetDailyIfElapsed(ctx context.Context, userID string, window time.Duration) error {
	_, err := r.sql.Exec(ctx, sqlinline.QResetDailyQuota, userID, int(window.Seconds()))
	return err
}

func (r *QuotaRepositoryPG) ResetMonthlyIfElapsed(ctx context.Context, userID string, window time.Duration) error {
	_, err := r.sql.Exec(ctx, sqlinline.QResetMonthlyQuota, userID, int(window.Seconds()))
	return err
}

// ReserveDaily performs the compare-and-increment for the kind's counter.
// When the counter is already at the cap the update matches no row and the
// reservation is refused.
func (r *QuotaRepositoryPG) ReserveDaily(ctx context.Context, userID string, kind domain.ContentKind, limit int) (int, bool, error) {
	var query string
	switch kind {
	case domain.ContentKindText:
		query = sqlinline.QReserveDailyText
	case domain.ContentKindImage:
		query = sqlinline.QReserveDailyImage
	default:
		return 0, false, fmt.Errorf("reserve daily: unsupported kind %q", kind)
	}
	row := r.sql.QueryRow(ctx, query, userID, limit)
	var used int
	if err := row.Scan(&used); err != nil {
		if infra.IsNoRows(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return used, true, nil
}

func (r *QuotaRepositoryPG) AddCost(ctx context.Context, userID string, cost float64) error {
	_, err := r.sql.Exec(ctx, sqlinline.QAddQuotaCost, userID, cost)
	return err
}

var _ domain.QuotaRepository = (*QuotaRepositoryPG)(nil)
