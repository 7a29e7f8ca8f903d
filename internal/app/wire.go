// Package app wires configuration into the digest pipeline, its judges and
// the delivery sinks.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/deusflow/musive/internal/cache"
	"github.com/deusflow/musive/internal/config"
	"github.com/deusflow/musive/internal/digest"
	"github.com/deusflow/musive/internal/extract"
	"github.com/deusflow/musive/internal/gemini"
	"github.com/deusflow/musive/internal/judge"
	"github.com/deusflow/musive/internal/kafka"
	"github.com/deusflow/musive/internal/news"
	"github.com/deusflow/musive/internal/ratelimit"
	"github.com/deusflow/musive/internal/retry"
	"github.com/deusflow/musive/internal/rss"
	"github.com/deusflow/musive/internal/storage"
	"github.com/deusflow/musive/internal/telegram"
)

// App owns the runner and every client that needs closing.
type App struct {
	Runner   *Runner
	Location *time.Location
	// Budget is the per-run judge call budget, reported on /metrics.
	Budget *ratelimit.Budget
	// History is set when DATABASE_URL is configured.
	History *storage.Postgres

	closers []func() error
	logger  *slog.Logger
}

// Build connects to the configured services. Optional backends that are
// configured but unreachable are startup errors; Redis falls back to the
// in-memory cache.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{logger: logger}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a.Location = loc

	sources, err := rss.LoadSources(cfg.SourcesPath)
	if err != nil {
		return nil, err
	}
	logger.Info("sources loaded", "count", len(sources))

	gem, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { gem.Close(); return nil })

	store := a.verdictStore(ctx, cfg)
	budget := ratelimit.NewBudget(cfg.MaxJudgeCalls)
	a.Budget = budget
	classifier := judge.NewCachedClassifier(judge.NewBudgeted(gem, budget), store, cfg.VerdictTTL, logger)

	var duplicates news.DuplicateJudge = gem
	if cfg.DedupBackend == "cohere" {
		duplicates = judge.NewEmbeddingDuplicates(judge.NewCohereEmbedder(cfg.CohereAPIKey, cfg.CohereModel), cfg.DedupThreshold)
	}

	collector := news.NewCollector(
		rss.NewFetcher(cfg.RequestTimeout, cfg.UserAgent),
		extract.New(cfg.MaxAge, cfg.MaxPerSource, cfg.ExcerptLimit),
		classifier,
		cfg.JudgeConcurrency,
		logger,
	)
	pipeline := news.NewPipeline(
		sources,
		news.NewAggregator(collector, logger),
		news.NewDeduplicator(duplicates, logger),
		cfg.DigestSize,
		logger,
	)

	sinks, err := a.buildSinks(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Runner = NewRunner(pipeline, sinks, budget, cfg.RunTimeout, logger)
	return a, nil
}

func (a *App) verdictStore(ctx context.Context, cfg *config.Config) cache.Store {
	if cfg.RedisAddr == "" {
		return cache.NewMemory()
	}
	rdb, err := cache.NewRedis(ctx, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		a.logger.Warn("redis unavailable, using in-memory verdict cache", "err", err)
		return cache.NewMemory()
	}
	a.closers = append(a.closers, rdb.Close)
	return rdb
}

func (a *App) buildSinks(ctx context.Context, cfg *config.Config) ([]digest.Sink, error) {
	var sinks []digest.Sink

	if cfg.TelegramToken != "" {
		sinks = append(sinks, telegram.New(telegram.Config{
			Token:    cfg.TelegramToken,
			ChatID:   cfg.TelegramChatID,
			Retry:    retry.RetryConfig{MaxAttempts: cfg.RetryAttempts, Delay: cfg.RetryDelay, Backoff: true},
			Location: a.Location,
		}, a.logger))
	}

	if cfg.ArchiveDir != "" {
		sinks = append(sinks, storage.NewFileArchive(cfg.ArchiveDir, a.Location))
	}

	if cfg.S3Bucket != "" {
		s3Archive, err := storage.NewS3Archive(ctx, storage.S3Config{
			Bucket:       cfg.S3Bucket,
			Prefix:       cfg.S3Prefix,
			Region:       cfg.AWSRegion,
			UsePathStyle: cfg.S3PathStyle,
		}, a.Location)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s3Archive)
	}

	if cfg.DatabaseURL != "" {
		pg, err := storage.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		a.History = pg
		sinks = append(sinks, pg)
	}

	if len(cfg.KafkaBrokers) > 0 {
		pub, err := kafka.NewPublisher(kafka.PublisherConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic}, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		sinks = append(sinks, pub)
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	a.logger.Info("delivery sinks configured", "sinks", names)
	return sinks, nil
}

// Close releases clients in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "err", err)
		}
	}
	a.closers = nil
}
