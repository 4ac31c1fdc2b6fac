// Package report aggregates the sales of a single day.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cajadual/backend/internal/domain"
)

const DateLayout = "2006-01-02"

// Day resolves date (YYYY-MM-DD, empty for today) to the half-open interval
// [from, to) in loc.
func Day(date string, now time.Time, loc *time.Location) (string, time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	var day time.Time
	if strings.TrimSpace(date) == "" {
		local := now.In(loc)
		day = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	} else {
		parsed, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
		if err != nil {
			return "", time.Time{}, time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
		}
		day = parsed
	}
	return day.Format(DateLayout), day, day.AddDate(0, 0, 1), nil
}

// SalesBetween keeps the sales created in [from, to), preserving order.
func SalesBetween(sales []domain.Sale, from time.Time, to time.Time) []domain.Sale {
	out := make([]domain.Sale, 0, len(sales))
	for _, sale := range sales {
		if !sale.CreatedAt.Before(from) && sale.CreatedAt.Before(to) {
			out = append(out, sale)
		}
	}
	return out
}

// Summarize totals sales. Each payment contributes the USD and local amounts
// fixed when it was tendered, so the summary does not move when the rate
// changes later in the day.
func Summarize(date string, sales []domain.Sale) domain.DailySummary {
	summary := domain.DailySummary{
		Date:            date,
		TotalUSD:        decimal.Zero,
		TotalLocal:      decimal.Zero,
		CollectedUSD:    decimal.Zero,
		ChangeUSD:       decimal.Zero,
		CashUSD:         decimal.Zero,
		CashLocal:       decimal.Zero,
		EstimatedMargin: decimal.Zero,
		ByMethod:        []domain.DailySummaryMethod{},
	}

	byMethod := make(map[domain.PaymentMethod]*domain.DailySummaryMethod)
	for _, sale := range sales {
		summary.Sales++
		summary.TotalUSD = summary.TotalUSD.Add(sale.TotalUSD)
		summary.TotalLocal = summary.TotalLocal.Add(sale.TotalLocal)
		if sale.Change != nil {
			summary.ChangeUSD = summary.ChangeUSD.Add(sale.Change.TotalUSD)
		}
		for _, line := range sale.Lines {
			summary.EstimatedMargin = summary.EstimatedMargin.Add(line.Product.Margin().Mul(line.Quantity))
		}
		for _, p := range sale.Payments {
			summary.CollectedUSD = summary.CollectedUSD.Add(p.AmountUSD)
			switch p.Method {
			case domain.MethodCashUSD:
				summary.CashUSD = summary.CashUSD.Add(p.TenderedAmount)
			case domain.MethodCashLocal:
				summary.CashLocal = summary.CashLocal.Add(p.TenderedAmount)
			}

			row, ok := byMethod[p.Method]
			if !ok {
				row = &domain.DailySummaryMethod{
					Method:      p.Method,
					Currency:    p.Method.Currency(),
					AmountUSD:   decimal.Zero,
					AmountLocal: decimal.Zero,
				}
				byMethod[p.Method] = row
			}
			row.Payments++
			row.AmountUSD = row.AmountUSD.Add(p.AmountUSD)
			row.AmountLocal = row.AmountLocal.Add(p.AmountLocal)
		}
	}

	for _, method := range domain.PaymentMethods() {
		if row, ok := byMethod[method]; ok {
			summary.ByMethod = append(summary.ByMethod, *row)
		}
	}
	return summary
}
