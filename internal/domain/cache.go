package domain

import "time"

// CacheEntry stores one generated result keyed by the embedding of the
// prompt that produced it. Entries are immutable except for the hit
// statistics; near-duplicate prompts accumulate separate entries because
// similarity, not key equality, decides reuse.
type CacheEntry struct {
	ID         string
	Kind       ContentKind
	Model      string
	Prompt     string
	Result     string
	Embedding  []float32
	HitCount   int
	CachedAt   time.Time
	LastHitAt  *time.Time
}
