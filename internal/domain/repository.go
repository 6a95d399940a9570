package domain

import (
	"context"
	"time"
)

// JobFilter narrows List results.
type JobFilter struct {
	CampaignID string
	Status     JobStatus
	Skip       int
	Limit      int
}

// CampaignBatchStats aggregates batch outcomes for one campaign.
type CampaignBatchStats struct {
	CampaignID     string
	TotalJobs      int
	CompletedJobs  int
	FailedJobs     int
	ProcessingJobs int
	PendingJobs    int
	TotalCreatives int
	TotalFailed    int
}

// SuccessRate is the share of attempted items that produced a creative.
func (s *CampaignBatchStats) SuccessRate() float64 {
	attempted := s.TotalCreatives + s.TotalFailed
	if attempted == 0 {
		return 0
	}
	return float64(s.TotalCreatives) / float64(attempted) * 100
}

// JobRepository persists batch jobs. Item-transition methods are only ever
// called by the single execution unit that owns the job.
type JobRepository interface {
	Create(ctx context.Context, job *BatchJob) error
	GetByID(ctx context.Context, jobID string) (*BatchJob, error)
	List(ctx context.Context, filter JobFilter) ([]BatchJob, error)

	// MarkProcessing transitions pending -> processing, stamping started_at
	// and total_items. Returns ErrNotFound when the job is missing or no
	// longer pending.
	MarkProcessing(ctx context.Context, jobID string, totalItems int) error

	// RecordItemSuccess appends the creative id and bumps completed_items.
	RecordItemSuccess(ctx context.Context, jobID, creativeID string) error
	RecordItemFailure(ctx context.Context, jobID string) error

	// MarkTerminal moves a non-terminal job to completed or failed, stamping
	// completed_at once. Terminal jobs are left untouched.
	MarkTerminal(ctx context.Context, jobID string, status JobStatus, errMsg string) error

	// Cancel flips a pending or processing job to failed with the given
	// message. Returns ErrJobTerminal when the job already finished and
	// ErrNotFound when it does not exist.
	Cancel(ctx context.Context, jobID, message string) (*BatchJob, error)

	// ClaimPending returns the id of the oldest pending job; the
	// pending->processing transition arbitrates the actual claim.
	// Returns ErrNotFound when no job is waiting.
	ClaimPending(ctx context.Context) (string, error)

	CampaignStats(ctx context.Context, campaignID string) (*CampaignBatchStats, error)
}

// CreativeRepository persists produced content items.
type CreativeRepository interface {
	Create(ctx context.Context, creative *Creative) error
	ListByBatchJob(ctx context.Context, jobID string) ([]Creative, error)
}

// CacheCandidate is the id+vector projection scanned during lookup.
type CacheCandidate struct {
	ID        string
	Embedding []float32
}

// CacheStats counts stored entries per kind.
type CacheStats struct {
	TextEntries  int
	ImageEntries int
}

// CacheRepository persists semantic cache entries.
type CacheRepository interface {
	Insert(ctx context.Context, entry *CacheEntry) error
	Candidates(ctx context.Context, kind ContentKind, model string) ([]CacheCandidate, error)
	GetByID(ctx context.Context, id string) (*CacheEntry, error)
	// RecordHit bumps hit_count and stamps last_hit_at.
	RecordHit(ctx context.Context, id string) error
	Stats(ctx context.Context) (*CacheStats, error)
}

// QuotaRepository persists per-user usage records. Reset and reserve
// operations must be atomic per user so concurrent jobs of the same user
// cannot lose updates.
type QuotaRepository interface {
	// Ensure lazily creates the record on first use.
	Ensure(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (*QuotaRecord, error)
	// ResetDailyIfElapsed zeroes both daily counters and restamps the marker
	// iff the window has passed since last_daily_reset.
	ResetDailyIfElapsed(ctx context.Context, userID string, window time.Duration) error
	ResetMonthlyIfElapsed(ctx context.Context, userID string, window time.Duration) error
	// ReserveDaily increments the counter for kind iff it is under limit,
	// returning the post-increment usage and whether the reservation held.
	ReserveDaily(ctx context.Context, userID string, kind ContentKind, limit int) (int, bool, error)
	AddCost(ctx context.Context, userID string, cost float64) error
}
