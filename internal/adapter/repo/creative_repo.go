package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// CreativeRepositoryPG implements domain.CreativeRepository over PostgreSQL.
type CreativeRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewCreativeRepository(sql infra.SQLExecutor) *CreativeRepositoryPG {
	return &CreativeRepositoryPG{sql: sql}
}

func (r *CreativeRepositoryPG) Create(ctx context.Context, creative *domain.Creative) error {
	meta, err := json.Marshal(creative.Meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertCreative,
		creative.ID,
		creative.CampaignID,
		creative.Name,
		string(creative.ContentKind),
		creative.ContentText,
		creative.AssetURL,
		creative.Prompt,
		creative.Status,
		meta,
	)
	return err
}

// ListByBatchJob returns a job's creatives in item order.
func (r *CreativeRepositoryPG) ListByBatchJob(ctx context.Context, jobID string) ([]domain.Creative, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectBatchCreatives, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var creatives []domain.Creative
	for rows.Next() {
		var c domain.Creative
		var kind string
		var meta []byte
		if err := rows.Scan(&c.ID, &c.CampaignID, &c.Name, &kind, &c.ContentText, &c.AssetURL, &c.Prompt, &c.Status, &meta, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.ContentKind = domain.ContentKind(kind)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &c.Meta); err != nil {
				return nil, fmt.Errorf("decode meta: %w", err)
			}
		}
		creatives = append(creatives, c)
	}
	return creatives, rows.Err()
}

var _ domain.CreativeRepository = (*CreativeRepositoryPG)(nil)
