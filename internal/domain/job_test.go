package domain

import (
	"errors"
	"testing"
)

func TestBatchJobValidate(t *testing.T) {
	base := BatchJob{CampaignID: "c1", ContentKind: ContentKindText, Count: 5}

	if err := base.Validate(); err != nil {
		t.Fatalf("valid job rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*BatchJob)
	}{
		{"missing campaign", func(j *BatchJob) { j.CampaignID = "" }},
		{"bad content kind", func(j *BatchJob) { j.ContentKind = "video" }},
		{"count too low", func(j *BatchJob) { j.Count = 0 }},
		{"count too high", func(j *BatchJob) { j.Count = MaxJobCount + 1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			job := base
			tc.mutate(&job)
			err := job.Validate()
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestBatchJobProgress(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		completed int
		want      int
	}{
		{"zero total", 0, 0, 0},
		{"none done", 10, 0, 0},
		{"partial", 3, 1, 33},
		{"partial rounds down", 3, 2, 66},
		{"all done", 5, 5, 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			job := BatchJob{TotalItems: tc.total, CompletedItems: tc.completed}
			if got := job.Progress(); got != tc.want {
				t.Fatalf("Progress() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestJobStatusTerminal(t *testing.T) {
	if JobStatusPending.Terminal() || JobStatusProcessing.Terminal() {
		t.Fatal("pending/processing must not be terminal")
	}
	if !JobStatusCompleted.Terminal() || !JobStatusFailed.Terminal() {
		t.Fatal("completed/failed must be terminal")
	}
}

func TestCampaignBatchStatsSuccessRate(t *testing.T) {
	empty := CampaignBatchStats{}
	if got := empty.SuccessRate(); got != 0 {
		t.Fatalf("SuccessRate() with no items = %v, want 0", got)
	}

	stats := CampaignBatchStats{TotalCreatives: 3, TotalFailed: 1}
	if got := stats.SuccessRate(); got != 75 {
		t.Fatalf("SuccessRate() = %v, want 75", got)
	}
}
