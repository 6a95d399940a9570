package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/orchestrator"
	"server/pkg/zip"
)

type batchCreateRequest struct {
	CampaignID         string         `json:"campaign_id" validate:"required"`
	SegmentID          string         `json:"segment_id"`
	ContentType        string         `json:"content_type" validate:"required,oneof=text image both"`
	Count              int            `json:"count" validate:"required,min=1,max=50"`
	PromptTemplateID   string         `json:"prompt_template_id"`
	CreativeTemplateID string         `json:"creative_template_id"`
	Parameters         map[string]any `json:"parameters"`
}

func (a *App) BatchCreate(w http.ResponseWriter, r *http.Request) {
	var req batchCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	job, err := a.Orch.Submit(r.Context(), orchestrator.SubmitRequest{
		UserID:             a.currentUserID(r),
		CampaignID:         req.CampaignID,
		SegmentID:          req.SegmentID,
		PromptTemplateID:   req.PromptTemplateID,
		CreativeTemplateID: req.CreativeTemplateID,
		ContentKind:        domain.ContentKind(req.ContentType),
		Count:              req.Count,
		Parameters:         req.Parameters,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.Pool.Enqueue(job.ID)
	a.Log.Info().Str("job_id", job.ID).Str("campaign_id", job.CampaignID).Int("count", job.Count).Msg("batch job submitted")
	a.json(w, http.StatusAccepted, jobJSON(job))
}

func (a *App) BatchGet(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.GetByID(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, jobJSON(job))
}

func (a *App) BatchStatus(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.GetByID(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		a.domainError(w, err)
		return
	}

	resp := map[string]any{
		"job_id":          job.ID,
		"status":          job.Status,
		"progress":        job.Progress(),
		"completed_items": job.CompletedItems,
		"total_items":     job.TotalItems,
	}
	if est, ok := estimateRemaining(job, time.Now().UTC()); ok {
		resp["estimated_time_remaining"] = est
	}
	a.json(w, http.StatusOK, resp)
}

// estimateRemaining extrapolates from the average time per completed item.
// Only meaningful while the job is running and has completed at least one.
func estimateRemaining(job *domain.BatchJob, now time.Time) (int, bool) {
	if job.Status != domain.JobStatusProcessing || job.CompletedItems <= 0 || job.StartedAt == nil {
		return 0, false
	}
	elapsed := now.Sub(*job.StartedAt).Seconds()
	perItem := elapsed / float64(job.CompletedItems)
	remaining := job.TotalItems - job.CompletedItems
	return int(perItem * float64(remaining)), true
}

func (a *App) BatchList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.JobFilter{
		CampaignID: q.Get("campaign_id"),
		Status:     domain.JobStatus(q.Get("status")),
		Skip:       parsePositiveInt(q.Get("skip"), 0),
		Limit:      parsePositiveInt(q.Get("limit"), 50),
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	jobs, err := a.Jobs.List(r.Context(), filter)
	if err != nil {
		a.domainError(w, err)
		return
	}
	items := make([]map[string]any, 0, len(jobs))
	for i := range jobs {
		items = append(items, jobJSON(&jobs[i]))
	}
	a.json(w, http.StatusOK, items)
}

func (a *App) BatchCancel(w http.ResponseWriter, r *http.Request) {
	job, err := a.Orch.Cancel(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		if errors.Is(err, domain.ErrJobTerminal) {
			a.error(w, http.StatusBadRequest, "job_terminal", "cannot cancel a finished job")
			return
		}
		a.domainError(w, err)
		return
	}
	a.Log.Info().Str("job_id", job.ID).Msg("batch job cancelled")
	a.json(w, http.StatusOK, map[string]any{
		"success":         true,
		"message":         "Job cancelled",
		"completed_items": job.CompletedItems,
		"creative_ids":    job.CreativeIDs,
	})
}

func (a *App) CampaignBatchStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Jobs.CampaignStats(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"campaign_id":     stats.CampaignID,
		"total_jobs":      stats.TotalJobs,
		"completed_jobs":  stats.CompletedJobs,
		"failed_jobs":     stats.FailedJobs,
		"processing_jobs": stats.ProcessingJobs,
		"pending_jobs":    stats.PendingJobs,
		"total_creatives": stats.TotalCreatives,
		"total_failed":    stats.TotalFailed,
		"success_rate":    stats.SuccessRate(),
	})
}

// BatchDownload streams a zip archive of everything a job produced: text
// creatives as .txt entries, image creatives as their stored files.
func (a *App) BatchDownload(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if _, err := a.Jobs.GetByID(r.Context(), jobID); err != nil {
		a.domainError(w, err)
		return
	}
	creatives, err := a.Creatives.ListByBatchJob(r.Context(), jobID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if len(creatives) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "job has no creatives")
		return
	}

	assets := make([]zip.Asset, 0, len(creatives))
	for _, c := range creatives {
		if c.ContentText != "" {
			assets = append(assets, zip.Asset{
				Filename: c.Name + ".txt",
				MIME:     "text/plain",
				Data:     []byte(c.ContentText),
			})
		}
		if c.AssetURL != "" {
			key := a.storageKey(c.AssetURL)
			if key == "" {
				continue
			}
			data, err := a.Store.Read(r.Context(), key)
			if err != nil {
				a.Log.Warn().Str("creative_id", c.ID).Err(err).Msg("skipping unreadable asset in archive")
				continue
			}
			assets = append(assets, zip.Asset{
				Filename: c.Name + path.Ext(key),
				MIME:     "application/octet-stream",
				Data:     data,
			})
		}
	}
	if len(assets) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no downloadable assets")
		return
	}

	archive, err := zip.ArchiveAssets(assets)
	if err != nil {
		a.Log.Error().Str("job_id", jobID).Err(err).Msg("failed to build batch archive")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="batch_%s.zip"`, jobID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// storageKey strips the public base URL off an asset URL, leaving the
// filesystem key.
func (a *App) storageKey(url string) string {
	base := strings.TrimRight(a.Cfg.StorageBaseURL, "/") + "/"
	if !strings.HasPrefix(url, base) {
		return ""
	}
	return strings.TrimPrefix(url, base)
}

// currentUserID reads the caller identity forwarded by the gateway.
// Authentication itself lives upstream.
func (a *App) currentUserID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "1"
}

func parsePositiveInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func jobJSON(job *domain.BatchJob) map[string]any {
	return map[string]any{
		"id":                   job.ID,
		"user_id":              job.UserID,
		"campaign_id":          job.CampaignID,
		"segment_id":           job.SegmentID,
		"prompt_template_id":   job.PromptTemplateID,
		"creative_template_id": job.CreativeTemplateID,
		"content_type":         job.ContentKind,
		"count":                job.Count,
		"status":               job.Status,
		"progress":             job.Progress(),
		"total_items":          job.TotalItems,
		"completed_items":      job.CompletedItems,
		"failed_items":         job.FailedItems,
		"error_message":        job.ErrorMessage,
		"creative_ids":         job.CreativeIDs,
		"created_at":           job.CreatedAt,
		"started_at":           job.StartedAt,
		"completed_at":         job.CompletedAt,
	}
}
