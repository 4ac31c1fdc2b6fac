package domain

import "github.com/shopspring/decimal"

// CartLineRequest adds one unit when Quantity is omitted or null.
type CartLineRequest struct {
	Code     ProductCode         `json:"code"`
	Quantity decimal.NullDecimal `json:"quantity"`
}

type QuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

type PaymentRequest struct {
	Method PaymentMethod   `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type FinalizeRequest struct {
	Change  *ChangeBreakdown `json:"change,omitempty"`
	Receipt bool             `json:"receipt"`
}

// FinalizeResponse carries the recorded sale. A receipt failure does not undo
// the sale; it is reported in ReceiptError instead.
type FinalizeResponse struct {
	Sale         Sale     `json:"sale"`
	Receipt      *Receipt `json:"receipt,omitempty"`
	ReceiptError string   `json:"receipt_error,omitempty"`
}

type ExchangeRateUpdate struct {
	Rate decimal.Decimal `json:"rate"`
}

type ProductUpsertRequest struct {
	Code      ProductCode     `json:"code"`
	Name      string          `json:"name"`
	CostPrice decimal.Decimal `json:"cost_price"`
	SalePrice decimal.Decimal `json:"sale_price"`
}

type SuggestedTender struct {
	Method   PaymentMethod   `json:"method"`
	Currency Currency        `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

type ReceiptVerifyRequest struct {
	Token string `json:"token"`
}

type ReceiptVerifyResponse struct {
	Claims ReceiptClaims `json:"claims"`
	// Recorded is false when the token is authentic but no sale with that id
	// (or with those totals) is in the sales log.
	Recorded bool `json:"recorded"`
}
