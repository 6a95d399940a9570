package domain

import (
	"fmt"
	"time"
)

// ContentKind enumerates the kinds of content a batch job can produce.
type ContentKind string

const (
	ContentKindText  ContentKind = "text"
	ContentKindImage ContentKind = "image"
	ContentKindBoth  ContentKind = "both"
)

// Valid reports whether the kind is one of the supported values.
func (k ContentKind) Valid() bool {
	switch k {
	case ContentKindText, ContentKindImage, ContentKindBoth:
		return true
	}
	return false
}

// JobStatus enumerates batch job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status can never change again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job count bounds enforced at submit time.
const (
	MinJobCount = 1
	MaxJobCount = 50
)

// BatchJob encapsulates one batch generation request producing up to N
// creatives. A job has exactly one writer (the execution unit that claimed
// it); status pollers only ever read.
type BatchJob struct {
	ID                 string
	UserID             string
	CampaignID         string
	SegmentID          string
	PromptTemplateID   string
	CreativeTemplateID string
	ContentKind        ContentKind
	Count              int
	Parameters         map[string]any
	Status             JobStatus
	TotalItems         int
	CompletedItems     int
	FailedItems        int
	CreativeIDs        []string
	ErrorMessage       string
	CreatedAt          time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
}

// Progress derives the completion percentage from the item counters. It is
// never stored independently, so readers cannot observe a percentage that
// disagrees with the counters.
func (j *BatchJob) Progress() int {
	if j.TotalItems <= 0 {
		return 0
	}
	return j.CompletedItems * 100 / j.TotalItems
}

// Validate checks the submit-time constraints before any record is created.
func (j *BatchJob) Validate() error {
	if j.CampaignID == "" {
		return fmt.Errorf("%w: campaign_id is required", ErrValidation)
	}
	if !j.ContentKind.Valid() {
		return fmt.Errorf("%w: content_type must be text, image or both", ErrValidation)
	}
	if j.Count < MinJobCount || j.Count > MaxJobCount {
		return fmt.Errorf("%w: count must be between %d and %d", ErrValidation, MinJobCount, MaxJobCount)
	}
	return nil
}

// Creative is one produced content item. Metadata is a small closed set of
// typed fields; Extras carries truly unstructured parameters passed through
// from the submit request.
type Creative struct {
	ID          string
	CampaignID  string
	Name        string
	ContentKind ContentKind
	ContentText string
	AssetURL    string
	Prompt      string
	Status      string
	Meta        CreativeMeta
	CreatedAt   time.Time
}

// CreativeMeta ties a creative back to the batch that produced it.
type CreativeMeta struct {
	BatchJobID string         `json:"batch_job_id"`
	SegmentID  string         `json:"segment_id,omitempty"`
	TemplateID string         `json:"template_id,omitempty"`
	Index      int            `json:"index"`
	CacheHit   bool           `json:"cache_hit,omitempty"`
	Extras     map[string]any `json:"extras,omitempty"`
}
