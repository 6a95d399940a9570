package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"server/internal/collab"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/orchestrator"
	"server/internal/storage"
)

type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.BatchJob
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*domain.BatchJob)}
}

func (f *fakeJobStore) add(job *domain.BatchJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.jobs[job.ID] = &cp
}

func (f *fakeJobStore) Create(ctx context.Context, job *domain.BatchJob) error {
	f.add(job)
	return nil
}

func (f *fakeJobStore) GetByID(ctx context.Context, jobID string) (*domain.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (f *fakeJobStore) List(ctx context.Context, filter domain.JobFilter) ([]domain.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.BatchJob
	for _, job := range f.jobs {
		if filter.CampaignID != "" && job.CampaignID != filter.CampaignID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		out = append(out, *job)
	}
	return out, nil
}

// MarkProcessing always refuses so pool goroutines spawned during handler
// tests never actually run a job.
func (f *fakeJobStore) MarkProcessing(ctx context.Context, jobID string, totalItems int) error {
	return domain.ErrNotFound
}

func (f *fakeJobStore) RecordItemSuccess(ctx context.Context, jobID, creativeID string) error {
	return nil
}

func (f *fakeJobStore) RecordItemFailure(ctx context.Context, jobID string) error { return nil }

func (f *fakeJobStore) MarkTerminal(ctx context.Context, jobID string, status domain.JobStatus, errMsg string) error {
	return nil
}

func (f *fakeJobStore) Cancel(ctx context.Context, jobID, message string) (*domain.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return nil, domain.ErrJobTerminal
	}
	now := time.Now().UTC()
	job.Status = domain.JobStatusFailed
	job.ErrorMessage = message
	job.CompletedAt = &now
	cp := *job
	return &cp, nil
}

func (f *fakeJobStore) ClaimPending(ctx context.Context) (string, error) {
	return "", domain.ErrNotFound
}

func (f *fakeJobStore) CampaignStats(ctx context.Context, campaignID string) (*domain.CampaignBatchStats, error) {
	return &domain.CampaignBatchStats{CampaignID: campaignID, TotalJobs: 2, CompletedJobs: 1, TotalCreatives: 3, TotalFailed: 1}, nil
}

type fakeCreativeStore struct {
	creatives []domain.Creative
}

func (f *fakeCreativeStore) Create(ctx context.Context, creative *domain.Creative) error {
	f.creatives = append(f.creatives, *creative)
	return nil
}

func (f *fakeCreativeStore) ListByBatchJob(ctx context.Context, jobID string) ([]domain.Creative, error) {
	var out []domain.Creative
	for _, c := range f.creatives {
		if c.Meta.BatchJobID == jobID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeHintStore struct {
	campaigns map[string]bool
}

func (f *fakeHintStore) Campaign(ctx context.Context, id string) (*collab.CampaignHints, error) {
	if !f.campaigns[id] {
		return nil, domain.ErrNotFound
	}
	return &collab.CampaignHints{ID: id, Channel: "instagram"}, nil
}

func (f *fakeHintStore) Segment(ctx context.Context, id string) (*collab.SegmentHints, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeHintStore) PromptTemplate(ctx context.Context, id string) (*collab.PromptTemplate, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeHintStore) CreativeTemplate(ctx context.Context, id string) (*collab.CreativeTemplate, error) {
	return nil, domain.ErrNotFound
}

type testApp struct {
	app       *App
	jobs      *fakeJobStore
	creatives *fakeCreativeStore
	router    *chi.Mux
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	log := infra.NewLogger("test")
	jobs := newFakeJobStore()
	creatives := &fakeCreativeStore{}
	hints := &fakeHintStore{campaigns: map[string]bool{"c1": true}}

	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	cfg := &infra.Config{StorageBaseURL: "http://assets.local"}

	orch := orchestrator.New(jobs, creatives, nil, nil, hints, nil,
		orchestrator.Providers{}, orchestrator.Options{}, log)
	pool := orchestrator.NewPool(orch, 1, log)

	app := &App{
		Cfg:       cfg,
		Log:       log,
		Jobs:      jobs,
		Creatives: creatives,
		Orch:      orch,
		Pool:      pool,
		Store:     store,
		Validate:  validator.New(),
	}

	r := chi.NewRouter()
	r.Post("/batch", app.BatchCreate)
	r.Get("/batch", app.BatchList)
	r.Get("/batch/{jobID}", app.BatchGet)
	r.Get("/batch/{jobID}/status", app.BatchStatus)
	r.Get("/batch/{jobID}/download", app.BatchDownload)
	r.Delete("/batch/{jobID}", app.BatchCancel)
	r.Get("/campaigns/{campaignID}/batch-stats", app.CampaignBatchStats)

	return &testApp{app: app, jobs: jobs, creatives: creatives, router: r}
}

func (ta *testApp) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	ta.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestBatchCreateRejectsBadPayloads(t *testing.T) {
	ta := newTestApp(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", "{"},
		{"missing campaign", `{"content_type":"text","count":3}`},
		{"bad content type", `{"campaign_id":"c1","content_type":"video","count":3}`},
		{"count zero", `{"campaign_id":"c1","content_type":"text","count":0}`},
		{"count over cap", `{"campaign_id":"c1","content_type":"text","count":51}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := ta.do(t, http.MethodPost, "/batch", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestBatchCreateUnknownCampaign(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(t, http.MethodPost, "/batch", `{"campaign_id":"ghost","content_type":"text","count":3}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestBatchCreateAccepted(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(t, http.MethodPost, "/batch", `{"campaign_id":"c1","content_type":"both","count":5,"parameters":{"theme":"summer"}}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatal("response missing job id")
	}
	if body["status"] != "pending" {
		t.Fatalf("status field = %v, want pending", body["status"])
	}
	if body["progress"] != float64(0) {
		t.Fatalf("progress = %v, want 0", body["progress"])
	}

	stored, err := ta.jobs.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if stored.ContentKind != domain.ContentKindBoth || stored.Count != 5 {
		t.Fatalf("stored job %+v", stored)
	}
}

func TestBatchGetNotFound(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(t, http.MethodGet, "/batch/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestBatchStatusDerivesProgressAndEstimate(t *testing.T) {
	ta := newTestApp(t)
	started := time.Now().UTC().Add(-10 * time.Second)
	ta.jobs.add(&domain.BatchJob{
		ID:             "j1",
		Status:         domain.JobStatusProcessing,
		TotalItems:     4,
		CompletedItems: 2,
		StartedAt:      &started,
	})

	rec := ta.do(t, http.MethodGet, "/batch/j1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["progress"] != float64(50) {
		t.Fatalf("progress = %v, want 50", body["progress"])
	}
	est, ok := body["estimated_time_remaining"].(float64)
	if !ok {
		t.Fatal("estimated_time_remaining missing")
	}
	// Two items in ~10s leaves roughly 10s for the remaining two.
	if est < 8 || est > 12 {
		t.Fatalf("estimate = %v, want ~10", est)
	}
}

func TestBatchStatusOmitsEstimateWhenIdle(t *testing.T) {
	ta := newTestApp(t)
	ta.jobs.add(&domain.BatchJob{ID: "j1", Status: domain.JobStatusPending, TotalItems: 4})

	body := decodeBody(t, ta.do(t, http.MethodGet, "/batch/j1/status", ""))
	if _, ok := body["estimated_time_remaining"]; ok {
		t.Fatal("estimate must be absent before the first completed item")
	}
}

func TestBatchCancel(t *testing.T) {
	ta := newTestApp(t)
	ta.jobs.add(&domain.BatchJob{
		ID:             "j1",
		Status:         domain.JobStatusProcessing,
		TotalItems:     5,
		CompletedItems: 2,
		CreativeIDs:    []string{"cr1", "cr2"},
	})

	rec := ta.do(t, http.MethodDelete, "/batch/j1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("success = %v", body["success"])
	}
	if body["completed_items"] != float64(2) {
		t.Fatalf("completed_items = %v", body["completed_items"])
	}

	job, _ := ta.jobs.GetByID(context.Background(), "j1")
	if job.Status != domain.JobStatusFailed || job.ErrorMessage != "Job cancelled by user" {
		t.Fatalf("post-cancel job: status=%s msg=%q", job.Status, job.ErrorMessage)
	}
}

func TestBatchCancelTerminalJob(t *testing.T) {
	ta := newTestApp(t)
	ta.jobs.add(&domain.BatchJob{ID: "j1", Status: domain.JobStatusCompleted})

	rec := ta.do(t, http.MethodDelete, "/batch/j1", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBatchCancelMissingJob(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(t, http.MethodDelete, "/batch/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestBatchList(t *testing.T) {
	ta := newTestApp(t)
	ta.jobs.add(&domain.BatchJob{ID: "j1", CampaignID: "c1", Status: domain.JobStatusCompleted})
	ta.jobs.add(&domain.BatchJob{ID: "j2", CampaignID: "c2", Status: domain.JobStatusPending})

	rec := ta.do(t, http.MethodGet, "/batch?campaign_id=c1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var items []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 1 || items[0]["id"] != "j1" {
		t.Fatalf("filtered list = %v", items)
	}
}

func TestCampaignBatchStats(t *testing.T) {
	ta := newTestApp(t)
	body := decodeBody(t, ta.do(t, http.MethodGet, "/campaigns/c1/batch-stats", ""))
	if body["campaign_id"] != "c1" {
		t.Fatalf("campaign_id = %v", body["campaign_id"])
	}
	if body["success_rate"] != float64(75) {
		t.Fatalf("success_rate = %v, want 75", body["success_rate"])
	}
}

func TestBatchDownload(t *testing.T) {
	ta := newTestApp(t)
	ta.jobs.add(&domain.BatchJob{ID: "j1", Status: domain.JobStatusCompleted})
	ta.creatives.creatives = append(ta.creatives.creatives, domain.Creative{
		ID:          "cr1",
		Name:        "Batch_j1_Item_1",
		ContentKind: domain.ContentKindText,
		ContentText: "hello world",
		Meta:        domain.CreativeMeta{BatchJobID: "j1", Index: 1},
	})

	rec := ta.do(t, http.MethodGet, "/batch/j1/download", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("content type = %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("empty archive")
	}
}

func TestBatchDownloadNoCreatives(t *testing.T) {
	ta := newTestApp(t)
	ta.jobs.add(&domain.BatchJob{ID: "j1", Status: domain.JobStatusCompleted})

	rec := ta.do(t, http.MethodGet, "/batch/j1/download", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
