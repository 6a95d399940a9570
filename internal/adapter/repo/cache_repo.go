package repo

import (
	"context"
	"fmt"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/semcache"
	"server/internal/sqlinline"
)

// CacheRepositoryPG implements domain.CacheRepository over PostgreSQL.
// Embeddings are stored as little-endian float32 blobs; similarity math
// happens in the semcache index, not in SQL.
type CacheRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewCacheRepository(sql infra.SQLExecutor) *CacheRepositoryPG {
	return &CacheRepositoryPG{sql: sql}
}

func (r *CacheRepositoryPG) Insert(ctx context.Context, entry *domain.CacheEntry) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertCacheEntry,
		entry.ID,
		string(entry.Kind),
		entry.Model,
		entry.Prompt,
		entry.Result,
		semcache.EncodeVector(entry.Embedding),
	)
	return err
}

// Candidates returns the id+embedding projection for one kind (and model,
// when given) so the index can scan them without loading payloads.
func (r *CacheRepositoryPG) Candidates(ctx context.Context, kind domain.ContentKind, model string) ([]domain.CacheCandidate, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectCacheCandidates, string(kind), model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var candidates []domain.CacheCandidate
	for rows.Next() {
		var c domain.CacheCandidate
		var blob []byte
		if err := rows.Scan(&c.ID, &blob); err != nil {
			return nil, err
		}
		vec, err := semcache.DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode embedding for %s: %w", c.ID, err)
		}
		c.Embedding = vec
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (r *CacheRepositoryPG) GetByID(ctx context.Context, id string) (*domain.CacheEntry, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectCacheEntry, id)
	var entry domain.CacheEntry
	var kind string
	var blob []byte
	if err := row.Scan(&entry.ID, &kind, &entry.Model, &entry.Prompt, &entry.Result, &blob, &entry.HitCount, &entry.CachedAt, &entry.LastHitAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	entry.Kind = domain.ContentKind(kind)
	vec, err := semcache.DecodeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("decode embedding for %s: %w", entry.ID, err)
	}
	entry.Embedding = vec
	return &entry, nil
}

func (r *CacheRepositoryPG) RecordHit(ctx context.Context, id string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QRecordCacheHit, id)
	return err
}

func (r *CacheRepositoryPG) Stats(ctx context.Context) (*domain.CacheStats, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QCacheStats)
	var stats domain.CacheStats
	if err := row.Scan(&stats.TextEntries, &stats.ImageEntries); err != nil {
		return nil, err
	}
	return &stats, nil
}

var _ domain.CacheRepository = (*CacheRepositoryPG)(nil)
