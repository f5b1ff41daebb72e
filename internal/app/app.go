// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/novel-crawler/internal/config"
	"github.com/JakeFAU/novel-crawler/internal/crawler"
	"github.com/JakeFAU/novel-crawler/internal/extract"
	collyfetcher "github.com/JakeFAU/novel-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/novel-crawler/internal/hash/sha256"
	"github.com/JakeFAU/novel-crawler/internal/id/uuid"
	"github.com/JakeFAU/novel-crawler/internal/logging"
	"github.com/JakeFAU/novel-crawler/internal/metrics"
	"github.com/JakeFAU/novel-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/novel-crawler/internal/queue/memory"
	"github.com/JakeFAU/novel-crawler/internal/storage/gcs"
	"github.com/JakeFAU/novel-crawler/internal/storage/local"
)

// App holds the shared, long-lived services for the application. It is
// built once at startup; each crawl gets a fresh engine and queue.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	fetcher   crawler.Fetcher
	extractor crawler.Extractor
	persister crawler.Persister
	retry     crawler.RetryPolicy
	closers   []func() error
}

// openGCS is swapped in tests to avoid real credentials.
var openGCS = func(ctx context.Context, cfg gcs.Config) (*gcs.BlobStore, error) {
	return gcs.Open(ctx, cfg)
}

// NewApp creates the services described by cfg. It fails fast if any of them
// cannot be initialized.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}

	persister, err := a.newPersister(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.persister = persister

	a.extractor, err = extract.New(cfg.Extract.Rules)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize extractor: %w", err)
	}

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.Crawler.RequestsPerSecond,
		Burst:             cfg.Crawler.Burst,
	})
	a.fetcher = collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Crawler.UserAgent,
		Timeout:      cfg.RequestTimeout(),
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		Limiter:      limiter,
	})
	a.retry = crawler.NewExponentialRetryPolicy(cfg.Crawler.MaxAttempts, cfg.BackoffInitial(), cfg.BackoffMax())

	logger.Info("application services initialized",
		zap.String("base_url", cfg.Site.BaseURL),
		zap.String("storage", cfg.Storage.Backend),
		zap.Int("image_concurrency", cfg.Crawler.ImageConcurrency),
	)
	return a, nil
}

func (a *App) newPersister(ctx context.Context) (crawler.Persister, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendGCS:
		a.logger.Info("using GCS storage", zap.String("bucket", a.cfg.Storage.GCSBucket))
		store, err := openGCS(ctx, gcs.Config{Bucket: a.cfg.Storage.GCSBucket, Prefix: a.cfg.Storage.Prefix})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.BackendLocal, "":
		a.logger.Info("using local storage", zap.String("base_dir", a.cfg.Storage.BaseDir))
		return local.New(local.Config{BaseDir: a.cfg.Storage.BaseDir})
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", a.cfg.Storage.Backend)
	}
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Persister exposes the configured artifact store.
func (a *App) Persister() crawler.Persister {
	return a.persister
}

// NewEngine builds an engine with its own work queue.
func (a *App) NewEngine() *crawler.Engine {
	return crawler.NewEngine(
		crawler.Config{
			Site:             a.cfg.CrawlSite(),
			ImageConcurrency: a.cfg.Crawler.ImageConcurrency,
			DetectCycles:     a.cfg.Crawler.DetectCycles,
		},
		crawler.Dependencies{
			Fetcher:   a.fetcher,
			Extractor: a.extractor,
			Persister: a.persister,
			Queue:     memory.NewQueue(),
			Retry:     a.retry,
			Hasher:    sha256.New(),
			IDs:       uuid.NewUUIDGenerator(),
		},
		a.logger,
	)
}

// Crawl downloads one novel.
func (a *App) Crawl(ctx context.Context, novelID string) (crawler.Stats, error) {
	return a.NewEngine().Run(ctx, novelID)
}

// ServeMetrics exposes /metrics and /healthz on the configured address until
// ctx is canceled. It returns immediately when metrics are disabled.
func (a *App) ServeMetrics(ctx context.Context) error {
	if a.cfg.Metrics.Addr == "" {
		return nil
	}
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           metrics.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("metrics server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	}
}

// Close shuts down all services in the container and flushes the logger.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
	if err := logging.Sync(a.logger); err != nil {
		a.logger.Warn("error syncing logger on shutdown", zap.Error(err))
	}
}
