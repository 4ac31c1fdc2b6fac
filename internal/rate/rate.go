// Package rate owns the process-wide exchange rate. Set is the only way to
// change it; everything else reads the current value and passes it on.
package rate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cajadual/backend/internal/domain"
	"cajadual/backend/internal/logging"
	"cajadual/backend/internal/money"
	"cajadual/backend/internal/store"
)

// DefaultRate is used when nothing has been configured yet.
var DefaultRate = decimal.RequireFromString("36.50")

type Board struct {
	mu      sync.RWMutex
	store   store.ConfigStore
	current domain.ExchangeRate
	now     func() time.Time
	logger  *zap.Logger
}

// Load reads the stored rate, falling back to fallback (or DefaultRate when
// fallback is not positive) if none has been saved.
func Load(ctx context.Context, cfg store.ConfigStore, fallback decimal.Decimal, logger *zap.Logger) (*Board, error) {
	b := &Board{store: cfg, now: func() time.Time { return time.Now().UTC() }, logger: logging.OrNop(logger)}
	if !fallback.IsPositive() {
		fallback = DefaultRate
	}

	stored, err := cfg.GetExchangeRate(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		b.current = domain.ExchangeRate{Rate: fallback, UpdatedAt: b.now()}
		b.logger.Info("exchange rate not configured, using default", zap.String("rate", fallback.String()))
	case err != nil:
		return nil, fmt.Errorf("load exchange rate: %w", err)
	case !stored.Rate.IsPositive():
		b.current = domain.ExchangeRate{Rate: fallback, UpdatedAt: b.now()}
		b.logger.Warn("stored exchange rate is not positive, using default", zap.String("stored", stored.Rate.String()))
	default:
		b.current = stored
	}
	return b, nil
}

func (b *Board) Current() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current.Rate
}

func (b *Board) Snapshot() domain.ExchangeRate {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Set validates and persists rate before making it visible.
func (b *Board) Set(ctx context.Context, rate decimal.Decimal) (domain.ExchangeRate, error) {
	if err := money.ValidateRate(rate); err != nil {
		return domain.ExchangeRate{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	next := domain.ExchangeRate{Rate: rate, UpdatedAt: b.now()}
	if err := b.store.SetExchangeRate(ctx, next); err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("%w: save exchange rate: %v", domain.ErrPersistenceFailure, err)
	}
	previous := b.current.Rate
	b.current = next
	b.logger.Info("exchange rate updated", zap.String("previous", previous.String()), zap.String("rate", rate.String()))
	return next, nil
}
