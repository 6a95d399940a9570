package collab

import (
	"context"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// CampaignHints are the campaign attributes the prompt builder reads.
type CampaignHints struct {
	ID      string
	Name    string
	Channel string
	// Size is the campaign's preferred image dimensions, e.g. "1024x1024".
	Size string
}

// SegmentHints carry audience attributes substituted into prompts.
type SegmentHints struct {
	ID                 string
	Name               string
	Tone               string
	Keywords           []string
	CreativeTemplateID string
}

// PromptTemplate is a reusable prompt body owned by the campaign platform.
type PromptTemplate struct {
	ID   string
	Name string
	Body string
}

// CreativeTemplate carries rendering hints, currently just the image size.
type CreativeTemplate struct {
	ID        string
	Name      string
	ImageSize string
}

// HintSource resolves campaign-platform records referenced by a batch job.
// The tables behind it are owned by another service; this one only reads.
type HintSource interface {
	Campaign(ctx context.Context, id string) (*CampaignHints, error)
	Segment(ctx context.Context, id string) (*SegmentHints, error)
	PromptTemplate(ctx context.Context, id string) (*PromptTemplate, error)
	CreativeTemplate(ctx context.Context, id string) (*CreativeTemplate, error)
}

// HintSourcePG reads hints from the shared PostgreSQL database.
type HintSourcePG struct {
	sql infra.SQLExecutor
}

func NewHintSource(sql infra.SQLExecutor) *HintSourcePG {
	return &HintSourcePG{sql: sql}
}

var _ HintSource = (*HintSourcePG)(nil)

func (s *HintSourcePG) Campaign(ctx context.Context, id string) (*CampaignHints, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectCampaignHints, id)
	var h CampaignHints
	if err := row.Scan(&h.ID, &h.Name, &h.Channel, &h.Size); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

func (s *HintSourcePG) Segment(ctx context.Context, id string) (*SegmentHints, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectSegmentHints, id)
	var h SegmentHints
	var tmplID *string
	if err := row.Scan(&h.ID, &h.Name, &h.Tone, &h.Keywords, &tmplID); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if tmplID != nil {
		h.CreativeTemplateID = *tmplID
	}
	return &h, nil
}

func (s *HintSourcePG) PromptTemplate(ctx context.Context, id string) (*PromptTemplate, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectPromptTemplate, id)
	var t PromptTemplate
	if err := row.Scan(&t.ID, &t.Name, &t.Body); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *HintSourcePG) CreativeTemplate(ctx context.Context, id string) (*CreativeTemplate, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectCreativeTemplate, id)
	var t CreativeTemplate
	if err := row.Scan(&t.ID, &t.Name, &t.ImageSize); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
