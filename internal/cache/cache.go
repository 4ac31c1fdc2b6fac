package cache

import (
	"context"
	"time"

	"cajadual/backend/internal/domain"
)

// SummaryCache holds computed daily summaries keyed by day (YYYY-MM-DD).
// Implementations must treat a miss and an unavailable backend the same way:
// the caller recomputes.
type SummaryCache interface {
	Get(ctx context.Context, day string) (*domain.DailySummary, bool, error)
	Set(ctx context.Context, day string, value *domain.DailySummary, ttl time.Duration) error
	Delete(ctx context.Context, day string) error
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) (*domain.DailySummary, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ *domain.DailySummary, _ time.Duration) error {
	return nil
}

func (NoopSummaryCache) Delete(_ context.Context, _ string) error {
	return nil
}
