package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"server/internal/domain"
)

type fakeQuotaRepo struct {
	rec          domain.QuotaRecord
	ensured      int
	dailyResets  int
	monthResets  int
	resetDaily   bool
	resetMonthly bool
}

func (f *fakeQuotaRepo) Ensure(ctx context.Context, userID string) error {
	f.ensured++
	f.rec.UserID = userID
	return nil
}

func (f *fakeQuotaRepo) Get(ctx context.Context, userID string) (*domain.QuotaRecord, error) {
	rec := f.rec
	return &rec, nil
}

func (f *fakeQuotaRepo) ResetDailyIfElapsed(ctx context.Context, userID string, window time.Duration) error {
	f.dailyResets++
	if f.resetDaily {
		f.rec.DailyTextUsed = 0
		f.rec.DailyImageUsed = 0
		f.rec.LastDailyReset = time.Now().UTC()
	}
	return nil
}

func (f *fakeQuotaRepo) ResetMonthlyIfElapsed(ctx context.Context, userID string, window time.Duration) error {
	f.monthResets++
	if f.resetMonthly {
		f.rec.MonthlyCostUsed = 0
		f.rec.LastMonthlyReset = time.Now().UTC()
	}
	return nil
}

func (f *fakeQuotaRepo) ReserveDaily(ctx context.Context, userID string, kind domain.ContentKind, limit int) (int, bool, error) {
	used := &f.rec.DailyTextUsed
	if kind == domain.ContentKindImage {
		used = &f.rec.DailyImageUsed
	}
	if *used >= limit {
		return *used, false, nil
	}
	*used++
	return *used, true, nil
}

func (f *fakeQuotaRepo) AddCost(ctx context.Context, userID string, cost float64) error {
	f.rec.MonthlyCostUsed += cost
	return nil
}

var testLimits = domain.QuotaLimits{DailyText: 2, DailyImage: 1, MonthlyCostCap: 10}

func TestCheckAndReserveCountsPerKind(t *testing.T) {
	repo := &fakeQuotaRepo{}
	g := NewGuard(repo, testLimits)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := g.CheckAndReserve(ctx, "u1", domain.ContentKindText); err != nil {
			t.Fatalf("text reservation %d: %v", i+1, err)
		}
	}
	err := g.CheckAndReserve(ctx, "u1", domain.ContentKindText)
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("third text reservation: got %v, want QuotaExceededError", err)
	}
	if qe.Kind != "text" || qe.Limit != 2 {
		t.Fatalf("wrong quota dimension: %+v", qe)
	}

	// Image counter is independent of the exhausted text counter.
	if err := g.CheckAndReserve(ctx, "u1", domain.ContentKindImage); err != nil {
		t.Fatalf("image reservation: %v", err)
	}
	if err := g.CheckAndReserve(ctx, "u1", domain.ContentKindImage); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("second image reservation: got %v, want quota exceeded", err)
	}
}

// conditionalQuotaRepo reserves the way the database does: a refused
// reservation matches no row, so no counter value comes back with it.
type conditionalQuotaRepo struct {
	fakeQuotaRepo
}

func (f *conditionalQuotaRepo) ReserveDaily(ctx context.Context, userID string, kind domain.ContentKind, limit int) (int, bool, error) {
	used := &f.rec.DailyTextUsed
	if kind == domain.ContentKindImage {
		used = &f.rec.DailyImageUsed
	}
	if *used >= limit {
		return 0, false, nil
	}
	*used++
	return *used, true, nil
}

func TestCheckAndReserveReportsRealUsageOnRefusal(t *testing.T) {
	repo := &conditionalQuotaRepo{}
	repo.rec.DailyTextUsed = 2
	g := NewGuard(repo, testLimits)

	err := g.CheckAndReserve(context.Background(), "u1", domain.ContentKindText)
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("got %v, want QuotaExceededError", err)
	}
	if qe.Used != 2 {
		t.Fatalf("used = %v, want the current counter 2", qe.Used)
	}
	if qe.Kind != "text" || qe.Limit != 2 {
		t.Fatalf("wrong quota dimension: %+v", qe)
	}

	repo.rec.DailyImageUsed = 1
	err = g.CheckAndReserve(context.Background(), "u1", domain.ContentKindImage)
	if !errors.As(err, &qe) {
		t.Fatalf("image refusal: got %v, want QuotaExceededError", err)
	}
	if qe.Used != 1 {
		t.Fatalf("image used = %v, want 1", qe.Used)
	}
}

func TestCheckAndReserveMonthlyCostCap(t *testing.T) {
	repo := &fakeQuotaRepo{}
	repo.rec.MonthlyCostUsed = 10
	g := NewGuard(repo, testLimits)

	err := g.CheckAndReserve(context.Background(), "u1", domain.ContentKindText)
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("got %v, want QuotaExceededError", err)
	}
	if qe.Kind != "cost" {
		t.Fatalf("kind = %q, want cost", qe.Kind)
	}
	if repo.rec.DailyTextUsed != 0 {
		t.Fatal("daily counter must not be reserved once the cap is hit")
	}
}

func TestCheckAndReserveRollsWindowsFirst(t *testing.T) {
	repo := &fakeQuotaRepo{resetDaily: true, resetMonthly: true}
	repo.rec.DailyTextUsed = 2
	repo.rec.MonthlyCostUsed = 10
	g := NewGuard(repo, testLimits)

	// Both windows elapsed: counters reset, so the reservation succeeds.
	if err := g.CheckAndReserve(context.Background(), "u1", domain.ContentKindText); err != nil {
		t.Fatalf("CheckAndReserve after window rollover: %v", err)
	}
	if repo.dailyResets != 1 || repo.monthResets != 1 {
		t.Fatalf("reset calls daily=%d monthly=%d, want 1/1", repo.dailyResets, repo.monthResets)
	}
}

func TestRecordActualCostLagsBehindCap(t *testing.T) {
	repo := &fakeQuotaRepo{}
	repo.rec.MonthlyCostUsed = 9.99
	g := NewGuard(repo, testLimits)
	ctx := context.Background()

	// Under the cap at check time, so the generation proceeds; the recorded
	// cost may then push usage past the cap without being rejected.
	if err := g.CheckAndReserve(ctx, "u1", domain.ContentKindText); err != nil {
		t.Fatalf("CheckAndReserve: %v", err)
	}
	if err := g.RecordActualCost(ctx, "u1", 0.05); err != nil {
		t.Fatalf("RecordActualCost: %v", err)
	}
	if repo.rec.MonthlyCostUsed <= 10 {
		t.Fatalf("expected usage past the cap, got %v", repo.rec.MonthlyCostUsed)
	}

	// The next reservation is the one that gets refused.
	if err := g.CheckAndReserve(ctx, "u1", domain.ContentKindText); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("got %v, want quota exceeded", err)
	}
}

func TestRecordActualCostIgnoresZero(t *testing.T) {
	repo := &fakeQuotaRepo{}
	g := NewGuard(repo, testLimits)
	if err := g.RecordActualCost(context.Background(), "u1", 0); err != nil {
		t.Fatalf("RecordActualCost(0): %v", err)
	}
	if repo.rec.MonthlyCostUsed != 0 {
		t.Fatal("zero cost must not be recorded")
	}
}
