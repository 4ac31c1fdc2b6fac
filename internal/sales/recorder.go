// Package sales records finalized sales.
package sales

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"cajadual/backend/internal/cache"
	"cajadual/backend/internal/domain"
	"cajadual/backend/internal/logging"
	"cajadual/backend/internal/report"
	"cajadual/backend/internal/store"
	"cajadual/backend/internal/telemetry"
)

type Recorder struct {
	log       store.SalesLog
	summaries cache.SummaryCache
	location  *time.Location
	logger    *zap.Logger
}

func NewRecorder(log store.SalesLog, summaries cache.SummaryCache, location *time.Location, logger *zap.Logger) *Recorder {
	if summaries == nil {
		summaries = cache.NoopSummaryCache{}
	}
	if location == nil {
		location = time.UTC
	}
	return &Recorder{log: log, summaries: summaries, location: location, logger: logging.OrNop(logger)}
}

// Commit appends sale to the sales log. Either the whole sale is appended or
// an error wrapping domain.ErrPersistenceFailure is returned.
func (r *Recorder) Commit(ctx context.Context, sale domain.Sale) error {
	ctx, span := telemetry.Tracer().Start(ctx, "sales.commit")
	defer span.End()
	span.SetAttributes(attribute.String("sale.id", sale.ID))

	if err := validate(sale); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := r.log.AppendSale(ctx, sale.Clone()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append sale")
		r.logger.Error("sale append failed", zap.String("sale_id", sale.ID), zap.Error(err))
		return fmt.Errorf("%w: sale %s was not recorded: %v", domain.ErrPersistenceFailure, sale.ID, err)
	}

	date := sale.CreatedAt.In(r.location).Format(report.DateLayout)
	if err := r.summaries.Delete(ctx, date); err != nil {
		r.logger.Warn("summary cache invalidation failed", zap.String("date", date), zap.Error(err))
	}

	r.logger.Info("sale recorded",
		zap.String("sale_id", sale.ID),
		zap.String("total_usd", sale.TotalUSD.StringFixed(2)),
		zap.String("total_local", sale.TotalLocal.StringFixed(2)),
		zap.String("rate_used", sale.RateUsed.String()),
		zap.Int("payments", len(sale.Payments)),
	)
	return nil
}

func validate(sale domain.Sale) error {
	switch {
	case sale.ID == "":
		return fmt.Errorf("%w: sale id is required", domain.ErrInvalidState)
	case len(sale.Lines) == 0:
		return fmt.Errorf("%w: sale %s has no line items", domain.ErrEmptyCart, sale.ID)
	case !sale.TotalUSD.IsPositive():
		return fmt.Errorf("%w: sale %s total must be greater than zero", domain.ErrInvalidTotal, sale.ID)
	case !sale.RateUsed.IsPositive():
		return fmt.Errorf("%w: sale %s rate must be greater than zero", domain.ErrInvalidRate, sale.ID)
	}
	for i, p := range sale.Payments {
		if !p.Method.Valid() {
			return fmt.Errorf("%w: sale %s payment %d", domain.ErrUnknownMethod, sale.ID, i)
		}
	}
	return nil
}
