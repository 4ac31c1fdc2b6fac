package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ProductCode accepts either a JSON string or a JSON number. Older inventory
// files stored numeric, time-based codes.
type ProductCode string

func (c *ProductCode) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = ProductCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("product code must be a string or number: %w", err)
	}
	*c = ProductCode(n.String())
	return nil
}

type Product struct {
	Code      ProductCode     `json:"code" yaml:"code"`
	Name      string          `json:"name" yaml:"name"`
	CostPrice decimal.Decimal `json:"cost_price" yaml:"cost_price"`
	SalePrice decimal.Decimal `json:"sale_price" yaml:"sale_price"`
}

// Margin is the per-unit profit in USD.
func (p Product) Margin() decimal.Decimal {
	return p.SalePrice.Sub(p.CostPrice)
}

type CartLine struct {
	Product  Product         `json:"product"`
	Quantity decimal.Decimal `json:"quantity"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.SalePrice.Mul(l.Quantity)
}

type Payment struct {
	Method         PaymentMethod   `json:"method"`
	TenderedAmount decimal.Decimal `json:"tendered_amount"`
	AmountUSD      decimal.Decimal `json:"amount_usd"`
	AmountLocal    decimal.Decimal `json:"amount_local"`
	Currency       Currency        `json:"currency"`
}

// ChangeBreakdown is how the operator hands change back: part in USD cash,
// part in local cash.
type ChangeBreakdown struct {
	USDCash   decimal.Decimal `json:"usd_cash"`
	LocalCash decimal.Decimal `json:"local_cash"`
}

type SaleChange struct {
	USDCash   decimal.Decimal `json:"usd_cash"`
	LocalCash decimal.Decimal `json:"local_cash"`
	TotalUSD  decimal.Decimal `json:"total_usd"`
}

type Sale struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Lines      []CartLine      `json:"line_items"`
	TotalUSD   decimal.Decimal `json:"total_usd"`
	TotalLocal decimal.Decimal `json:"total_local"`
	RateUsed   decimal.Decimal `json:"rate_used"`
	Payments   []Payment       `json:"payments"`
	Change     *SaleChange     `json:"change,omitempty"`
}

// Clone returns a copy that shares no slices or pointers with s.
func (s Sale) Clone() Sale {
	out := s
	out.Lines = append([]CartLine(nil), s.Lines...)
	out.Payments = append([]Payment(nil), s.Payments...)
	if s.Change != nil {
		change := *s.Change
		out.Change = &change
	}
	return out
}

func (s Sale) PaidUSD() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.Payments {
		total = total.Add(p.AmountUSD)
	}
	return total
}

type LedgerStatus struct {
	SaleTotalUSD      decimal.Decimal `json:"sale_total_usd"`
	SaleTotalLocal    decimal.Decimal `json:"sale_total_local"`
	PaidUSD           decimal.Decimal `json:"paid_usd"`
	PaidLocal         decimal.Decimal `json:"paid_local"`
	OwedUSD           decimal.Decimal `json:"owed_usd"`
	OwedLocal         decimal.Decimal `json:"owed_local"`
	ChangeUSD         decimal.Decimal `json:"change_usd"`
	ChangeLocal       decimal.Decimal `json:"change_local"`
	PercentPaid       decimal.Decimal `json:"percent_paid"`
	ChangeSplitNeeded bool            `json:"change_split_needed"`
	Payments          []Payment       `json:"payments"`
}

type CartView struct {
	Lines      []CartLine      `json:"lines"`
	TotalUSD   decimal.Decimal `json:"total_usd"`
	TotalLocal decimal.Decimal `json:"total_local"`
}

type CheckoutState string

const (
	StateIdle   CheckoutState = "idle"
	StateOpen   CheckoutState = "open"
	StateClosed CheckoutState = "closed"
)

type CheckoutStatus struct {
	State     CheckoutState   `json:"state"`
	SessionID string          `json:"session_id,omitempty"`
	Rate      decimal.Decimal `json:"exchange_rate"`
	Cart      CartView        `json:"cart"`
	Ledger    *LedgerStatus   `json:"ledger,omitempty"`
}

type Receipt struct {
	SaleID            string `json:"sale_id"`
	EscposBase64      string `json:"escpos_base64"`
	PreviewText       string `json:"preview_text"`
	FileName          string `json:"file_name"`
	VerificationToken string `json:"verification_token,omitempty"`
}

type ReceiptClaims struct {
	SaleID     string          `json:"sale_id"`
	TotalUSD   decimal.Decimal `json:"total_usd"`
	TotalLocal decimal.Decimal `json:"total_local"`
	RateUsed   decimal.Decimal `json:"rate_used"`
	IssuedAt   time.Time       `json:"issued_at"`
}

type ExchangeRate struct {
	Rate      decimal.Decimal `json:"rate"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type DailySummaryMethod struct {
	Method      PaymentMethod   `json:"method"`
	Currency    Currency        `json:"currency"`
	Payments    int64           `json:"payments"`
	AmountUSD   decimal.Decimal `json:"amount_usd"`
	AmountLocal decimal.Decimal `json:"amount_local"`
}

type DailySummary struct {
	Date            string               `json:"date"`
	Sales           int64                `json:"sales"`
	TotalUSD        decimal.Decimal      `json:"total_usd"`
	TotalLocal      decimal.Decimal      `json:"total_local"`
	CollectedUSD    decimal.Decimal      `json:"collected_usd"`
	ChangeUSD       decimal.Decimal      `json:"change_usd"`
	CashUSD         decimal.Decimal      `json:"cash_usd"`
	CashLocal       decimal.Decimal      `json:"cash_local"`
	EstimatedMargin decimal.Decimal      `json:"estimated_margin_usd"`
	ByMethod        []DailySummaryMethod `json:"by_method"`
}
