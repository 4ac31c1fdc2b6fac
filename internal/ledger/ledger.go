// Package ledger accumulates tendered payments for one checkout and decides
// when the sale may be finalized.
//
// The exchange rate is never stored here. Every call that converts takes the
// rate explicitly, and each payment keeps the conversion made when it was
// added.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"cajadual/backend/internal/domain"
	"cajadual/backend/internal/money"
)

type Ledger struct {
	total    decimal.Decimal
	payments []domain.Payment
}

// Open starts a ledger for a sale of total USD.
func Open(total decimal.Decimal) (*Ledger, error) {
	if !total.IsPositive() {
		return nil, fmt.Errorf("%w: sale total must be greater than zero, got %s", domain.ErrInvalidTotal, total.String())
	}
	return &Ledger{total: total}, nil
}

func (l *Ledger) Total() decimal.Decimal {
	return l.total
}

// AddPayment converts tendered at rate and appends it. Cash USD is taken as
// USD, every other method as local currency. Overpayment is allowed.
func (l *Ledger) AddPayment(method domain.PaymentMethod, tendered decimal.Decimal, rate decimal.Decimal) (domain.Payment, error) {
	if !method.Valid() {
		return domain.Payment{}, fmt.Errorf("%w: %d", domain.ErrUnknownMethod, uint8(method))
	}
	if !tendered.IsPositive() {
		return domain.Payment{}, fmt.Errorf("%w: %s tendered amount must be greater than zero, got %s", domain.ErrInvalidAmount, method, tendered.String())
	}
	if err := money.ValidateRate(rate); err != nil {
		return domain.Payment{}, err
	}

	payment := domain.Payment{
		Method:         method,
		TenderedAmount: tendered,
		Currency:       method.Currency(),
	}
	switch payment.Currency {
	case domain.CurrencyUSD:
		payment.AmountUSD = tendered
		payment.AmountLocal = tendered.Mul(rate)
	default:
		payment.AmountLocal = tendered
		payment.AmountUSD = tendered.Div(rate)
	}

	l.payments = append(l.payments, payment)
	return payment, nil
}

func (l *Ledger) RemovePayment(index int) error {
	if index < 0 || index >= len(l.payments) {
		return fmt.Errorf("%w: payment %d does not exist (ledger has %d payments)", domain.ErrIndexOutOfRange, index, len(l.payments))
	}
	l.payments = append(l.payments[:index], l.payments[index+1:]...)
	return nil
}

// Payments returns a copy in entry order.
func (l *Ledger) Payments() []domain.Payment {
	out := make([]domain.Payment, len(l.payments))
	copy(out, l.payments)
	return out
}

func (l *Ledger) PaidUSD() decimal.Decimal {
	paid := decimal.Zero
	for _, p := range l.payments {
		paid = paid.Add(p.AmountUSD)
	}
	return paid
}

func (l *Ledger) OwedUSD() decimal.Decimal {
	return money.Max(decimal.Zero, l.total.Sub(l.PaidUSD()))
}

func (l *Ledger) ChangeUSD() decimal.Decimal {
	return money.Max(decimal.Zero, l.PaidUSD().Sub(l.total))
}

func (l *Ledger) PercentPaid() decimal.Decimal {
	return money.Min(decimal.NewFromInt(100), money.Percent(l.PaidUSD(), l.total))
}

// SuggestedTender is what is still owed, in the currency the method is
// entered in. Zero once the sale is covered.
func (l *Ledger) SuggestedTender(method domain.PaymentMethod, rate decimal.Decimal) (decimal.Decimal, error) {
	if !method.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %d", domain.ErrUnknownMethod, uint8(method))
	}
	owed := l.OwedUSD()
	if method.Currency() == domain.CurrencyUSD {
		return owed, nil
	}
	return money.ToLocal(owed, rate)
}

// Status is a display snapshot. Local equivalents use rate.
func (l *Ledger) Status(rate decimal.Decimal) (domain.LedgerStatus, error) {
	if err := money.ValidateRate(rate); err != nil {
		return domain.LedgerStatus{}, err
	}
	paid := l.PaidUSD()
	owed := l.OwedUSD()
	change := l.ChangeUSD()
	return domain.LedgerStatus{
		SaleTotalUSD:      l.total,
		SaleTotalLocal:    l.total.Mul(rate),
		PaidUSD:           paid,
		PaidLocal:         paid.Mul(rate),
		OwedUSD:           owed,
		OwedLocal:         owed.Mul(rate),
		ChangeUSD:         change,
		ChangeLocal:       change.Mul(rate),
		PercentPaid:       l.PercentPaid(),
		ChangeSplitNeeded: money.Material(change),
		Payments:          l.Payments(),
	}, nil
}

// CheckFinalize returns nil when the sale may be finalized. Without material
// change the sale must be covered to within a cent. With material change the
// operator must supply a breakdown that reconciles with the change owed.
func (l *Ledger) CheckFinalize(breakdown *domain.ChangeBreakdown, rate decimal.Decimal) error {
	if err := money.ValidateRate(rate); err != nil {
		return err
	}
	change := l.ChangeUSD()
	if !money.Material(change) {
		owed := l.OwedUSD()
		if money.Material(owed) {
			return fmt.Errorf("%w: %s still owed", domain.ErrPaymentIncomplete, money.FormatUSD(owed))
		}
		return nil
	}

	if breakdown == nil {
		return fmt.Errorf("%w: change of %s requires a change breakdown", domain.ErrPaymentIncomplete, money.FormatUSD(change))
	}
	if breakdown.USDCash.IsNegative() || breakdown.LocalCash.IsNegative() {
		return fmt.Errorf("%w: change breakdown amounts cannot be negative", domain.ErrPaymentIncomplete)
	}
	given := breakdown.USDCash.Add(breakdown.LocalCash.Div(rate))
	if !money.Within(given, change) {
		return fmt.Errorf("%w: change breakdown totals %s but %s is owed", domain.ErrPaymentIncomplete, money.FormatUSD(given), money.FormatUSD(change))
	}
	return nil
}

func (l *Ledger) CanFinalize(breakdown *domain.ChangeBreakdown, rate decimal.Decimal) bool {
	return l.CheckFinalize(breakdown, rate) == nil
}

// SuggestChangeSplit returns a breakdown handing back usdCash in USD and the
// rest of the change in local cash. usdCash is clamped to the change owed.
func (l *Ledger) SuggestChangeSplit(usdCash decimal.Decimal, rate decimal.Decimal) (domain.ChangeBreakdown, error) {
	if err := money.ValidateRate(rate); err != nil {
		return domain.ChangeBreakdown{}, err
	}
	if usdCash.IsNegative() {
		return domain.ChangeBreakdown{}, fmt.Errorf("%w: USD change cannot be negative, got %s", domain.ErrInvalidAmount, usdCash.String())
	}
	change := l.ChangeUSD()
	usdCash = money.Min(usdCash, change)
	return domain.ChangeBreakdown{
		USDCash:   usdCash,
		LocalCash: money.Max(decimal.Zero, change.Sub(usdCash).Mul(rate)),
	}, nil
}
