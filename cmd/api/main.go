package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/collab"
	"server/internal/domain"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/orchestrator"
	"server/internal/providers/embed"
	imageprovider "server/internal/providers/image"
	textprovider "server/internal/providers/text"
	"server/internal/quota"
	"server/internal/semcache"
	"server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
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
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	uploader := collab.NewFileUploader(store, cfg.StorageBaseURL)

	embedder, err := embed.NewOpenAIEmbedder(embed.OpenAIOptions{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.EmbeddingModel,
		BaseURL: cfg.OpenAIBaseURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize embedder")
	}
	cache := semcache.NewIndex(cacheRepo, embedder, cfg.SimilarityThreshold, logger)

	guard := quota.NewGuard(quotaRepo, domain.QuotaLimits{
		DailyText:      cfg.DailyTextQuota,
		DailyImage:     cfg.DailyImageQuota,
		MonthlyCostCap: cfg.MonthlyCostCap,
	})

	providers, err := buildProviders(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize generation providers")
	}

	orch := orchestrator.New(jobs, creatives, cache, guard, hints, uploader, providers,
		orchestrator.Options{ItemPause: cfg.ItemPause}, logger)
	pool := orchestrator.NewPool(orch, cfg.WorkerPoolSize, logger)

	app := handlers.NewApp(cfg, logger, jobs, creatives, orch, pool, guard, cache, store)
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	pool.Shutdown()
	logger.Info().Msg("server stopped")
}

// buildProviders selects the text and image backends from the configured
// model names. Gemini models route to Gemini, everything else to OpenAI.
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
