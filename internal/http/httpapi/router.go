package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Log),
		middleware.CORS(app.Cfg.CORSOrigins),
		middleware.RateLimit(app.Cfg.RateLimitPerMin, time.Minute),
	)

	r.Get("/health", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/batch", func(r chi.Router) {
		r.Post("/", app.BatchCreate)
		r.Get("/", app.BatchList)
		r.Get("/{jobID}", app.BatchGet)
		r.Get("/{jobID}/status", app.BatchStatus)
		r.Get("/{jobID}/download", app.BatchDownload)
		r.Delete("/{jobID}", app.BatchCancel)
	})

	r.Get("/campaigns/{campaignID}/batch-stats", app.CampaignBatchStats)
	r.Get("/users/{userID}/quota", app.UserQuota)

	r.Route("/creatives/similar", func(r chi.Router) {
		r.Get("/text", app.SimilarText)
		r.Get("/image", app.SimilarImage)
	})
	r.Get("/cache/stats", app.CacheStats)

	return r
}
