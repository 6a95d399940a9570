package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"server/internal/collab"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/image"
	"server/internal/providers/pricing"
	"server/internal/providers/text"
	"server/internal/quota"
	"server/internal/semcache"
)

const cancelMessage = "Job cancelled by user"

// Providers bundles the generation backends selected at wiring time.
type Providers struct {
	Text       text.Generator
	TextModel  string
	Image      image.Generator
	ImageModel string
	// ImageSize is the fallback when neither the campaign nor the creative
	// template carries one.
	ImageSize string
}

// Options tune the per-item loop.
type Options struct {
	// ItemPause is the delay between items, spacing out provider calls.
	ItemPause time.Duration
	MaxTokens int
}

// Orchestrator drives batch jobs through their lifecycle: it accepts
// submissions, claims pending jobs, and runs the per-item generation loop.
// Each job has exactly one running orchestrator invocation; status readers
// go straight to the job store.
type Orchestrator struct {
	jobs      domain.JobRepository
	creatives domain.CreativeRepository
	cache     *semcache.Index
	guard     *quota.Guard
	hints     collab.HintSource
	uploader  collab.Uploader
	providers Providers
	opts      Options
	log       infra.Logger
}

func New(
	jobs domain.JobRepository,
	creatives domain.CreativeRepository,
	cache *semcache.Index,
	guard *quota.Guard,
	hints collab.HintSource,
	uploader collab.Uploader,
	providers Providers,
	opts Options,
	log infra.Logger,
) *Orchestrator {
	if opts.ItemPause <= 0 {
		opts.ItemPause = 500 * time.Millisecond
	}
	return &Orchestrator{
		jobs:      jobs,
		creatives: creatives,
		cache:     cache,
		guard:     guard,
		hints:     hints,
		uploader:  uploader,
		providers: providers,
		opts:      opts,
		log:       log,
	}
}

// SubmitRequest carries the validated submit parameters.
type SubmitRequest struct {
	UserID             string
	CampaignID         string
	SegmentID          string
	PromptTemplateID   string
	CreativeTemplateID string
	ContentKind        domain.ContentKind
	Count              int
	Parameters         map[string]any
}

// Submit validates the request against the referenced campaign records and
// persists a pending job. Execution happens later, when a pool slot or a
// worker claims the job.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*domain.BatchJob, error) {
	job := &domain.BatchJob{
		ID:                 uuid.NewString(),
		UserID:             req.UserID,
		CampaignID:         req.CampaignID,
		SegmentID:          req.SegmentID,
		PromptTemplateID:   req.PromptTemplateID,
		CreativeTemplateID: req.CreativeTemplateID,
		ContentKind:        req.ContentKind,
		Count:              req.Count,
		Parameters:         req.Parameters,
		Status:             domain.JobStatusPending,
		TotalItems:         req.Count,
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if _, err := o.hints.Campaign(ctx, req.CampaignID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("campaign %s: %w", req.CampaignID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("resolve campaign: %w", err)
	}
	if req.SegmentID != "" {
		if _, err := o.hints.Segment(ctx, req.SegmentID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("segment %s: %w", req.SegmentID, domain.ErrNotFound)
			}
			return nil, fmt.Errorf("resolve segment: %w", err)
		}
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create batch job: %w", err)
	}
	job.CreatedAt = time.Now().UTC()
	return job, nil
}

// Cancel flips a waiting or running job to failed. The running loop notices
// the status flip between items and stops.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) (*domain.BatchJob, error) {
	return o.jobs.Cancel(ctx, jobID, cancelMessage)
}

// Run executes one job to a terminal status. It is safe to call for a job
// another execution unit already claimed: the pending->processing
// transition arbitrates, and the loser returns without side effects.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if err := o.jobs.MarkProcessing(ctx, jobID, job.Count); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Claimed elsewhere or already cancelled.
			return nil
		}
		return fmt.Errorf("mark job processing: %w", err)
	}

	log := o.log.With().Str("job_id", jobID).Logger()
	log.Info().Str("kind", string(job.ContentKind)).Int("count", job.Count).Msg("starting batch job")

	pctx, imageSize, err := o.resolveHints(ctx, job)
	if err != nil {
		log.Error().Err(err).Msg("batch job failed before first item")
		o.finish(ctx, jobID, domain.JobStatusFailed, err.Error())
		return nil
	}

	for i := 1; i <= job.Count; i++ {
		select {
		case <-ctx.Done():
			o.finish(ctx, jobID, domain.JobStatusFailed, "job interrupted: "+ctx.Err().Error())
			return ctx.Err()
		default:
		}

		// Cooperative cancel: a DELETE flips the status; stop between items.
		cur, err := o.jobs.GetByID(ctx, jobID)
		if err != nil {
			o.finish(ctx, jobID, domain.JobStatusFailed, "reload job: "+err.Error())
			return nil
		}
		if cur.Status != domain.JobStatusProcessing {
			log.Info().Str("status", string(cur.Status)).Msg("batch job stopped externally")
			return nil
		}

		if err := o.runItem(ctx, job, pctx, imageSize, i); err != nil {
			if errors.Is(err, domain.ErrQuotaExceeded) {
				log.Warn().Err(err).Int("item", i).Msg("quota exhausted, aborting batch job")
				o.finish(ctx, jobID, domain.JobStatusFailed, err.Error())
				return nil
			}
			log.Error().Err(err).Int("item", i).Msg("batch item failed")
			itemsFailed.Inc()
			if ferr := o.jobs.RecordItemFailure(ctx, jobID); ferr != nil {
				o.finish(ctx, jobID, domain.JobStatusFailed, "record item failure: "+ferr.Error())
				return nil
			}
		}

		if i < job.Count {
			select {
			case <-ctx.Done():
			case <-time.After(o.opts.ItemPause):
			}
		}
	}

	o.finish(ctx, jobID, domain.JobStatusCompleted, "")
	log.Info().Msg("batch job completed")
	return nil
}

// RunNext claims and runs the oldest pending job. Returns ErrNotFound when
// nothing is waiting.
func (o *Orchestrator) RunNext(ctx context.Context) error {
	jobID, err := o.jobs.ClaimPending(ctx)
	if err != nil {
		return err
	}
	return o.Run(ctx, jobID)
}

func (o *Orchestrator) finish(ctx context.Context, jobID string, status domain.JobStatus, errMsg string) {
	// The terminal transition must land even when the run context was
	// cancelled by shutdown; nothing reclaims a job left in processing.
	ctx = context.WithoutCancel(ctx)
	if err := o.jobs.MarkTerminal(ctx, jobID, status, errMsg); err != nil {
		o.log.Error().Str("job_id", jobID).Err(err).Msg("failed to finalize batch job")
		return
	}
	jobsFinished.WithLabelValues(string(status)).Inc()
}

// resolveHints loads the campaign-platform records once per job. The
// campaign is required; segment and templates degrade to nil when missing.
func (o *Orchestrator) resolveHints(ctx context.Context, job *domain.BatchJob) (*promptContext, string, error) {
	campaign, err := o.hints.Campaign(ctx, job.CampaignID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", fmt.Errorf("campaign %s not found", job.CampaignID)
		}
		return nil, "", fmt.Errorf("resolve campaign: %w", err)
	}

	pctx := &promptContext{campaign: campaign}
	if job.SegmentID != "" {
		seg, err := o.hints.Segment(ctx, job.SegmentID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, "", fmt.Errorf("resolve segment: %w", err)
		}
		pctx.segment = seg
	}
	if job.PromptTemplateID != "" {
		tmpl, err := o.hints.PromptTemplate(ctx, job.PromptTemplateID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, "", fmt.Errorf("resolve prompt template: %w", err)
		}
		if tmpl != nil {
			pctx.template = tmpl.Body
		}
	}

	imageSize := o.providers.ImageSize
	if campaign.Size != "" {
		imageSize = campaign.Size
	}
	if job.CreativeTemplateID != "" {
		tmpl, err := o.hints.CreativeTemplate(ctx, job.CreativeTemplateID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, "", fmt.Errorf("resolve creative template: %w", err)
		}
		if tmpl != nil && tmpl.ImageSize != "" {
			imageSize = tmpl.ImageSize
		}
	}
	return pctx, imageSize, nil
}

// runItem generates one creative. Provider and persistence failures are
// item-level; only quota exhaustion propagates as a job abort.
func (o *Orchestrator) runItem(ctx context.Context, job *domain.BatchJob, pctx *promptContext, imageSize string, index int) error {
	prompt := pctx.itemPrompt(index)
	name := fmt.Sprintf("Batch_%s_Item_%d", job.ID, index)

	var (
		contentText string
		assetURL    string
		cacheHit    bool
	)

	if job.ContentKind == domain.ContentKindText || job.ContentKind == domain.ContentKindBoth {
		out, hit, err := o.generateText(ctx, job.UserID, prompt)
		if err != nil {
			return err
		}
		contentText = out
		cacheHit = hit
	}

	if job.ContentKind == domain.ContentKindImage || job.ContentKind == domain.ContentKindBoth {
		imagePrompt := prompt
		if job.ContentKind == domain.ContentKindBoth {
			imagePrompt = "Create an image for: " + contentText
		}
		url, hit, err := o.generateImage(ctx, job, imagePrompt, imageSize, name)
		if err != nil {
			return err
		}
		assetURL = url
		cacheHit = cacheHit || hit
	}

	creativeKind := domain.ContentKindImage
	if job.ContentKind == domain.ContentKindText {
		creativeKind = domain.ContentKindText
	}
	creative := &domain.Creative{
		ID:          uuid.NewString(),
		CampaignID:  job.CampaignID,
		Name:        name,
		ContentKind: creativeKind,
		ContentText: contentText,
		AssetURL:    assetURL,
		Prompt:      prompt,
		Status:      "draft",
		Meta: domain.CreativeMeta{
			BatchJobID: job.ID,
			SegmentID:  job.SegmentID,
			TemplateID: job.CreativeTemplateID,
			Index:      index,
			CacheHit:   cacheHit,
			Extras:     job.Parameters,
		},
	}
	if err := o.creatives.Create(ctx, creative); err != nil {
		return fmt.Errorf("persist creative: %w", err)
	}
	if err := o.jobs.RecordItemSuccess(ctx, job.ID, creative.ID); err != nil {
		return fmt.Errorf("record item success: %w", err)
	}
	itemsGenerated.WithLabelValues(string(job.ContentKind)).Inc()
	return nil
}

// generateText returns copy for the prompt, via the semantic cache when a
// stored result is close enough. Cache failures degrade to a miss.
func (o *Orchestrator) generateText(ctx context.Context, userID, prompt string) (string, bool, error) {
	match, err := o.cache.Lookup(ctx, prompt, domain.ContentKindText, o.providers.TextModel)
	if err != nil {
		o.log.Warn().Err(err).Msg("text cache lookup degraded to miss")
	}
	if match != nil {
		cacheHits.WithLabelValues("text").Inc()
		return match.Entry.Result, true, nil
	}
	cacheMisses.WithLabelValues("text").Inc()

	if err := o.guard.CheckAndReserve(ctx, userID, domain.ContentKindText); err != nil {
		return "", false, err
	}
	res, err := o.providers.Text.Generate(ctx, text.Request{
		Prompt:    prompt,
		Model:     o.providers.TextModel,
		MaxTokens: o.opts.MaxTokens,
	})
	if err != nil {
		return "", false, err
	}

	cost := pricing.TextCost(res.Model, res.Usage.PromptTokens, res.Usage.CompletionTokens)
	if err := o.guard.RecordActualCost(ctx, userID, cost); err != nil {
		o.log.Warn().Err(err).Str("user_id", userID).Msg("failed to record text generation cost")
	}
	if _, err := o.cache.Insert(ctx, prompt, res.Text, domain.ContentKindText, o.providers.TextModel); err != nil {
		o.log.Warn().Err(err).Msg("failed to cache text result")
	}
	return res.Text, false, nil
}

// generateImage returns a public URL for the prompt's image, generating and
// uploading when the cache has nothing close enough.
func (o *Orchestrator) generateImage(ctx context.Context, job *domain.BatchJob, prompt, size, name string) (string, bool, error) {
	match, err := o.cache.Lookup(ctx, prompt, domain.ContentKindImage, o.providers.ImageModel)
	if err != nil {
		o.log.Warn().Err(err).Msg("image cache lookup degraded to miss")
	}
	if match != nil {
		cacheHits.WithLabelValues("image").Inc()
		return match.Entry.Result, true, nil
	}
	cacheMisses.WithLabelValues("image").Inc()

	if err := o.guard.CheckAndReserve(ctx, job.UserID, domain.ContentKindImage); err != nil {
		return "", false, err
	}
	res, err := o.providers.Image.Generate(ctx, image.Request{
		Prompt: prompt,
		Model:  o.providers.ImageModel,
		Size:   size,
	})
	if err != nil {
		return "", false, err
	}

	url := res.URL
	if len(res.Data) > 0 {
		format := res.Format
		if format == "" {
			format = "png"
		}
		key := fmt.Sprintf("campaigns/%s/batch_%s/%s.%s", job.CampaignID, job.ID, name, format)
		url, err = o.uploader.Upload(ctx, key, res.Data)
		if err != nil {
			return "", false, fmt.Errorf("upload image: %w", err)
		}
	}
	if url == "" {
		return "", false, &domain.ProviderError{Provider: res.Model, Message: "empty image result"}
	}

	cost := pricing.ImageCost(res.Model, size)
	if err := o.guard.RecordActualCost(ctx, job.UserID, cost); err != nil {
		o.log.Warn().Err(err).Str("user_id", job.UserID).Msg("failed to record image generation cost")
	}
	if _, err := o.cache.Insert(ctx, prompt, url, domain.ContentKindImage, o.providers.ImageModel); err != nil {
		o.log.Warn().Err(err).Msg("failed to cache image result")
	}
	return url, false, nil
}
