package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/orchestrator"
	"server/internal/quota"
	"server/internal/semcache"
	"server/internal/storage"
)

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Cfg       *infra.Config
	Log       infra.Logger
	Jobs      domain.JobRepository
	Creatives domain.CreativeRepository
	Orch      *orchestrator.Orchestrator
	Pool      *orchestrator.Pool
	Guard     *quota.Guard
	Cache     *semcache.Index
	Store     *storage.FileStore
	Validate  *validator.Validate
}

func NewApp(
	cfg *infra.Config,
	log infra.Logger,
	jobs domain.JobRepository,
	creatives domain.CreativeRepository,
	orch *orchestrator.Orchestrator,
	pool *orchestrator.Pool,
	guard *quota.Guard,
	cache *semcache.Index,
	store *storage.FileStore,
) *App {
	return &App{
		Cfg:       cfg,
		Log:       log,
		Jobs:      jobs,
		Creatives: creatives,
		Orch:      orch,
		Pool:      pool,
		Guard:     guard,
		Cache:     cache,
		Store:     store,
		Validate:  validator.New(),
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{"error": map[string]string{"code": errCode, "message": message}})
}

// domainError maps the error taxonomy onto HTTP statuses.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrJobTerminal):
		a.error(w, http.StatusBadRequest, "job_terminal", err.Error())
	case errors.Is(err, domain.ErrQuotaExceeded):
		a.error(w, http.StatusTooManyRequests, "quota_exceeded", err.Error())
	default:
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
