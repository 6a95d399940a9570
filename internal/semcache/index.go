package semcache

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/embed"
)

const maxStoredPromptLen = 500

// Match is a cache entry whose similarity to the query cleared the
// configured threshold.
type Match struct {
	Entry      *domain.CacheEntry
	Similarity float64
}

// SearchResult pairs an entry with its similarity score for ranked
// lookups that ignore the threshold.
type SearchResult struct {
	Entry      *domain.CacheEntry
	Similarity float64
}

// Index finds previously generated results whose prompts are
// semantically close to a new prompt. Entries are partitioned by content
// kind and matched within the same model only.
type Index struct {
	repo      domain.CacheRepository
	embedder  embed.Embedder
	threshold float64
	log       infra.Logger
}

func NewIndex(repo domain.CacheRepository, embedder embed.Embedder, threshold float64, log infra.Logger) *Index {
	return &Index{repo: repo, embedder: embedder, threshold: threshold, log: log}
}

// Lookup embeds prompt and returns the nearest stored entry of the same
// kind and model when its similarity meets the threshold, or nil on a
// miss. Errors from the embedder or store are returned as cache
// failures; callers that can regenerate should treat them as misses.
func (ix *Index) Lookup(ctx context.Context, prompt string, kind domain.ContentKind, model string) (*Match, error) {
	vec, err := ix.embedder.Embed(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", domain.ErrCacheFailure, err)
	}

	cands, err := ix.repo.Candidates(ctx, kind, model)
	if err != nil {
		return nil, fmt.Errorf("%w: load candidates: %v", domain.ErrCacheFailure, err)
	}
	if len(cands) == 0 {
		return nil, nil
	}

	bestID := ""
	bestScore := -1.0
	for _, c := range cands {
		score := Score(1 - CosineSimilarity(vec, c.Embedding))
		if score > bestScore {
			bestScore = score
			bestID = c.ID
		}
	}
	if bestID == "" || bestScore < ix.threshold {
		return nil, nil
	}

	entry, err := ix.repo.GetByID(ctx, bestID)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch entry %s: %v", domain.ErrCacheFailure, bestID, err)
	}
	if err := ix.repo.RecordHit(ctx, bestID); err != nil {
		ix.log.Warn().Str("entry_id", bestID).Err(err).Msg("failed to record cache hit")
	}
	return &Match{Entry: entry, Similarity: bestScore}, nil
}

// Insert stores a freshly generated result keyed by the embedding of its
// prompt and returns the new entry id.
func (ix *Index) Insert(ctx context.Context, prompt, result string, kind domain.ContentKind, model string) (string, error) {
	vec, err := ix.embedder.Embed(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: embed prompt: %v", domain.ErrCacheFailure, err)
	}
	stored := prompt
	if len(stored) > maxStoredPromptLen {
		stored = stored[:maxStoredPromptLen]
	}
	entry := &domain.CacheEntry{
		ID:        uuid.NewString(),
		Kind:      kind,
		Model:     model,
		Prompt:    stored,
		Result:    result,
		Embedding: vec,
		CachedAt:  time.Now().UTC(),
	}
	if err := ix.repo.Insert(ctx, entry); err != nil {
		return "", fmt.Errorf("%w: insert entry: %v", domain.ErrCacheFailure, err)
	}
	return entry.ID, nil
}

// Search ranks all entries of a kind by similarity to the query and
// returns the top n regardless of the hit threshold. Model is optional;
// when empty, entries of every model are considered.
func (ix *Index) Search(ctx context.Context, query string, kind domain.ContentKind, model string, n int) ([]SearchResult, error) {
	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", domain.ErrCacheFailure, err)
	}
	cands, err := ix.repo.Candidates(ctx, kind, model)
	if err != nil {
		return nil, fmt.Errorf("%w: load candidates: %v", domain.ErrCacheFailure, err)
	}

	type scored struct {
		id    string
		score float64
	}
	ranked := make([]scored, 0, len(cands))
	for _, c := range cands {
		ranked = append(ranked, scored{id: c.ID, score: Score(1 - CosineSimilarity(vec, c.Embedding))})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	out := make([]SearchResult, 0, len(ranked))
	for _, r := range ranked {
		entry, err := ix.repo.GetByID(ctx, r.id)
		if err != nil {
			ix.log.Warn().Str("entry_id", r.id).Err(err).Msg("failed to load ranked cache entry")
			continue
		}
		out = append(out, SearchResult{Entry: entry, Similarity: r.score})
	}
	return out, nil
}

// Stats reports entry counts per kind.
func (ix *Index) Stats(ctx context.Context) (*domain.CacheStats, error) {
	return ix.repo.Stats(ctx)
}
