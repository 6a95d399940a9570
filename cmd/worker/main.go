package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/collab"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/orchestrator"
	"server/internal/providers/embed"
	imageprovider "server/internal/providers/image"
	textprovider "server/internal/providers/text"
	"server/internal/quota"
	"server/internal/semcache"
	"server/internal/storage"
)

const jobPollInterval = 2 * time.Second

// The worker claims pending jobs straight from the store, picking up work
// submitted while no API process was running and jobs beyond the API pool's
// capacity.
func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)

	jobs := repo.NewJobRepository(runner)
	creatives := repo.NewCreativeRepository(runner)
	cacheRepo := repo.NewCacheRepository(runner)
	quotaRepo := repo.NewQuotaRepository(runner)
	hints := collab.NewHintSource(runner)

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: storage init failed")
	}
	uploader := collab.NewFileUploader(store, cfg.StorageBaseURL)

	embedder, err := embed.NewOpenAIEmbedder(embed.OpenAIOptions{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.EmbeddingModel,
		BaseURL: cfg.OpenAIBaseURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: embedder init failed")
	}
	cache := semcache.NewIndex(cacheRepo, embedder, cfg.SimilarityThreshold, logger)

	guard := quota.NewGuard(quotaRepo, domain.QuotaLimits{
		DailyText:      cfg.DailyTextQuota,
		DailyImage:     cfg.DailyImageQuota,
		MonthlyCostCap: cfg.MonthlyCostCap,
	})

	providers, err := buildProviders(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: provider init failed")
	}

	orch := orchestrator.New(jobs, creatives, cache, guard, hints, uploader, providers,
		orchestrator.Options{ItemPause: cfg.ItemPause}, logger)

	logger.Info().Msg("worker started")
	for {
		err := orch.RunNext(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			logger.Info().Msg("worker stopped")
			return
		case errors.Is(err, domain.ErrNotFound):
			// Nothing pending.
		case err != nil:
			logger.Error().Err(err).Msg("worker: job run failed")
		default:
			continue
		}

		select {
		case <-ctx.Done():
			logger.Info().Msg("worker stopped")
			return
		case <-time.After(jobPollInterval):
		}
	}
}

func buildProviders(cfg *infra.Config) (orchestrator.Providers, error) {
	p := orchestrator.Providers{
		TextModel:  cfg.TextProvider,
		ImageModel: cfg.ImageProvider,
		ImageSize:  cfg.ImageSize,
	}

	var err error
	if strings.HasPrefix(cfg.TextProvider, "gemini") {
		p.Text, err = textprovider.NewGeminiGenerator(textprovider.GeminiOptions{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.TextProvider,
			BaseURL: cfg.GeminiBaseURL,
		})
	} else {
		p.Text, err = textprovider.NewOpenAIGenerator(textprovider.OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.TextProvider,
			BaseURL: cfg.OpenAIBaseURL,
		})
	}
	if err != nil {
		return p, err
	}

	if strings.HasPrefix(cfg.ImageProvider, "gemini") {
		p.Image, err = imageprovider.NewGeminiGenerator(imageprovider.GeminiOptions{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.ImageProvider,
			BaseURL: cfg.GeminiBaseURL,
		})
	} else {
		p.Image, err = imageprovider.NewOpenAIGenerator(imageprovider.OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.ImageProvider,
			BaseURL: cfg.OpenAIBaseURL,
		})
	}
	return p, err
}
