package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository over PostgreSQL.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new pending job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.BatchJob) error {
	params, err := json.Marshal(job.Parameters)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertBatchJob,
		job.ID,
		job.UserID,
		job.CampaignID,
		job.SegmentID,
		job.PromptTemplateID,
		job.CreativeTemplateID,
		string(job.ContentKind),
		job.Count,
		params,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.BatchJob, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectBatchJob, jobID)
	return scanJob(row)
}

// List returns jobs matching the filter, newest first.
func (r *JobRepositoryPG) List(ctx context.Context, filter domain.JobFilter) ([]domain.BatchJob, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListBatchJobs, filter.CampaignID, string(filter.Status), filter.Skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []domain.BatchJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// MarkProcessing transitions pending -> processing. The conditional update
// doubles as the claim arbiter: only one execution unit wins.
func (r *JobRepositoryPG) MarkProcessing(ctx context.Context, jobID string, totalItems int) error {
	row := r.sql.QueryRow(ctx, sqlinline.QMarkJobProcessing, jobID, totalItems)
	var id string
	if err := row.Scan(&id); err != nil {
		if infra.IsNoRows(err) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *JobRepositoryPG) RecordItemSuccess(ctx context.Context, jobID, creativeID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QRecordItemSuccess, jobID, creativeID)
	return err
}

func (r *JobRepositoryPG) RecordItemFailure(ctx context.Context, jobID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QRecordItemFailure, jobID)
	return err
}

// MarkTerminal stamps completed_at and the final status; terminal jobs are
// never modified again.
func (r *JobRepositoryPG) MarkTerminal(ctx context.Context, jobID string, status domain.JobStatus, errMsg string) error {
	row := r.sql.QueryRow(ctx, sqlinline.QMarkJobTerminal, jobID, string(status), errMsg)
	var id string
	if err := row.Scan(&id); err != nil {
		if infra.IsNoRows(err) {
			return domain.ErrJobTerminal
		}
		return err
	}
	return nil
}

// Cancel flips a live job to failed and returns the post-cancel snapshot.
func (r *JobRepositoryPG) Cancel(ctx context.Context, jobID, message string) (*domain.BatchJob, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QCancelBatchJob, jobID, message)
	var id string
	if err := row.Scan(&id); err != nil {
		if !infra.IsNoRows(err) && !infra.IsMalformedLiteral(err) {
			return nil, err
		}
		// Either missing or already terminal; look it up to tell which.
		job, getErr := r.GetByID(ctx, jobID)
		if getErr != nil {
			return nil, getErr
		}
		if job.Status.Terminal() {
			return nil, domain.ErrJobTerminal
		}
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, jobID)
}

// ClaimPending returns the oldest pending job id; MarkProcessing arbitrates
// when several runners race for it.
func (r *JobRepositoryPG) ClaimPending(ctx context.Context) (string, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QClaimPendingJob)
	var id string
	if err := row.Scan(&id); err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return id, nil
}

func (r *JobRepositoryPG) CampaignStats(ctx context.Context, campaignID string) (*domain.CampaignBatchStats, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QCampaignBatchStats, campaignID)
	stats := domain.CampaignBatchStats{CampaignID: campaignID}
	if err := row.Scan(
		&stats.TotalJobs,
		&stats.CompletedJobs,
		&stats.FailedJobs,
		&stats.ProcessingJobs,
		&stats.PendingJobs,
		&stats.TotalCreatives,
		&stats.TotalFailed,
	); err != nil {
		return nil, err
	}
	return &stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.BatchJob, error) {
	var job domain.BatchJob
	var kind string
	var status string
	var params []byte
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.CampaignID,
		&job.SegmentID,
		&job.PromptTemplateID,
		&job.CreativeTemplateID,
		&kind,
		&job.Count,
		&params,
		&status,
		&job.TotalItems,
		&job.CompletedItems,
		&job.FailedItems,
		&job.CreativeIDs,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	); err != nil {
		// An id that does not parse as a uuid fails the cast, not the
		// lookup; both read as "no such job" to callers.
		if infra.IsNoRows(err) || infra.IsMalformedLiteral(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	job.ContentKind = domain.ContentKind(kind)
	job.Status = domain.JobStatus(status)
	if len(params) > 0 {
		if err := json.Unmarshal(params, &job.Parameters); err != nil {
			return nil, fmt.Errorf("decode parameters: %w", err)
		}
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
