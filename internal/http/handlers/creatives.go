package handlers

import (
	"net/http"

	"server/internal/domain"
)

// SimilarText ranks cached text results by semantic similarity to the
// query.
func (a *App) SimilarText(w http.ResponseWriter, r *http.Request) {
	a.similar(w, r, domain.ContentKindText)
}

// SimilarImage does the same over cached image results.
func (a *App) SimilarImage(w http.ResponseWriter, r *http.Request) {
	a.similar(w, r, domain.ContentKindImage)
}

func (a *App) similar(w http.ResponseWriter, r *http.Request, kind domain.ContentKind) {
	q := r.URL.Query()
	query := q.Get("query")
	if query == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "query is required")
		return
	}
	n := parsePositiveInt(q.Get("n_results"), 5)
	if n > 20 {
		n = 20
	}

	results, err := a.Cache.Search(r.Context(), query, kind, q.Get("model"), n)
	if err != nil {
		a.domainError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(results))
	for _, res := range results {
		items = append(items, map[string]any{
			"id":         res.Entry.ID,
			"prompt":     res.Entry.Prompt,
			"result":     res.Entry.Result,
			"model":      res.Entry.Model,
			"similarity": res.Similarity,
			"hit_count":  res.Entry.HitCount,
			"cached_at":  res.Entry.CachedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"query":   query,
		"count":   len(items),
		"results": items,
	})
}

// CacheStats reports how many entries each content kind has accumulated.
func (a *App) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Cache.Stats(r.Context())
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"stats": map[string]any{
			"text_entries":  stats.TextEntries,
			"image_entries": stats.ImageEntries,
			"total_entries": stats.TextEntries + stats.ImageEntries,
		},
	})
}
