// Package app wires configuration into a ready service. The HTTP server and
// the posctl CLI share it so both see the same stores and rules.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cajadual/backend/internal/cache"
	"cajadual/backend/internal/checkout"
	"cajadual/backend/internal/config"
	"cajadual/backend/internal/logging"
	"cajadual/backend/internal/money"
	"cajadual/backend/internal/rate"
	"cajadual/backend/internal/receipt"
	"cajadual/backend/internal/sales"
	"cajadual/backend/internal/service"
	"cajadual/backend/internal/store"
	"cajadual/backend/internal/store/filestore"
	"cajadual/backend/internal/store/memory"
	pgstore "cajadual/backend/internal/store/postgres"
)

// MemoryDataDir selects the seeded in-memory store. Nothing is persisted.
const MemoryDataDir = ":memory:"

type App struct {
	Config    config.Config
	Repo      store.Repository
	Rates     *rate.Board
	Service   *service.Service
	Formatter money.Formatter
	Location  *time.Location

	logger  *zap.Logger
	closers []func() error
}

func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Location: loc, Formatter: money.NewFormatter(cfg.DisplayLocale), logger: logger}

	repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Repo = repo
	a.closers = append(a.closers, repo.Close)

	summaries := a.openSummaryCache(ctx, cfg)

	board, err := rate.Load(ctx, repo, cfg.DefaultExchangeRate, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Rates = board

	var signer *receipt.Signer
	if cfg.ReceiptSecret != "" {
		signer = receipt.NewSigner(cfg.ReceiptSecret)
	}
	renderer := receipt.NewRenderer(receipt.Options{
		StoreName: cfg.StoreName,
		TaxID:     cfg.StoreTaxID,
		Location:  loc,
		Formatter: a.Formatter,
		Signer:    signer,
	})

	recorder := sales.NewRecorder(repo, summaries, loc, logger)
	register := checkout.NewRegister(board, recorder, renderer, checkout.WithLogger(logger))

	a.Service = service.New(service.Deps{
		Store:      repo,
		Rates:      board,
		Register:   register,
		Receipts:   renderer,
		Signer:     signer,
		Summaries:  summaries,
		SummaryTTL: cfg.SummaryCacheTTL(),
		Location:   loc,
		Logger:     logger,
	})
	return a, nil
}

// Close releases stores and caches in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openRepository(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Repository, error) {
	switch {
	case cfg.DatabaseURL != "":
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set; refusing to fall back: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		logger.Info("repository: postgres")
		return pg, nil
	case cfg.DataDir == MemoryDataDir:
		logger.Warn("repository: in-memory demo catalogue, sales are not persisted")
		return memory.NewSeeded(), nil
	default:
		fs, err := filestore.New(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		logger.Info("repository: files", zap.String("dir", cfg.DataDir))
		return fs, nil
	}
}

// openSummaryCache falls back to no caching when redis is not configured or
// does not answer.
func (a *App) openSummaryCache(ctx context.Context, cfg config.Config) cache.SummaryCache {
	if cfg.RedisAddr == "" {
		a.logger.Info("cache: noop")
		return cache.NoopSummaryCache{}
	}
	redisCache := cache.NewRedisSummaryCache(cache.RedisOptions{
		Addr:      cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		Namespace: cfg.RedisNamespace,
		TTL:       cfg.SummaryCacheTTL(),
	})
	if err := redisCache.Ping(ctx); err != nil {
		a.logger.Warn("redis unavailable, using noop cache", zap.Error(err))
		_ = redisCache.Close()
		return cache.NoopSummaryCache{}
	}
	a.closers = append(a.closers, redisCache.Close)
	a.logger.Info("cache: redis", zap.String("addr", cfg.RedisAddr))
	return redisCache
}
