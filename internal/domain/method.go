package domain

import (
	"fmt"
	"strings"
)

type Currency string

const (
	CurrencyUSD   Currency = "USD"
	CurrencyLocal Currency = "LOCAL"
)

// PaymentMethod is a closed set; the zero value is not a valid method.
type PaymentMethod uint8

const (
	MethodCashUSD PaymentMethod = iota + 1
	MethodCashLocal
	MethodCardDebit
	MethodCardCredit
	MethodMobileTransfer
	MethodStoreCredit
)

type methodInfo struct {
	code     string
	currency Currency
	label    string
}

// Cash USD is the only instrument entered in USD. Every card, mobile and
// credit instrument settles in local currency.
var methodTable = map[PaymentMethod]methodInfo{
	MethodCashUSD:        {code: "CASH_USD", currency: CurrencyUSD, label: "CASH $"},
	MethodCashLocal:      {code: "CASH_LOCAL", currency: CurrencyLocal, label: "CASH BS"},
	MethodCardDebit:      {code: "CARD_DEBIT", currency: CurrencyLocal, label: "DEBIT"},
	MethodCardCredit:     {code: "CARD_CREDIT", currency: CurrencyLocal, label: "CREDIT"},
	MethodMobileTransfer: {code: "MOBILE_TRANSFER", currency: CurrencyLocal, label: "MOBILE"},
	MethodStoreCredit:    {code: "STORE_CREDIT", currency: CurrencyLocal, label: "STORE CREDIT"},
}

// PaymentMethods lists every method in display order.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		MethodCashUSD,
		MethodCashLocal,
		MethodCardDebit,
		MethodCardCredit,
		MethodMobileTransfer,
		MethodStoreCredit,
	}
}

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	for method, info := range methodTable {
		if info.code == code {
			return method, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, raw)
}

func (m PaymentMethod) Valid() bool {
	_, ok := methodTable[m]
	return ok
}

func (m PaymentMethod) Currency() Currency {
	return methodTable[m].currency
}

// Label is the short form printed on receipts.
func (m PaymentMethod) Label() string {
	if info, ok := methodTable[m]; ok {
		return info.label
	}
	return "OTHER"
}

func (m PaymentMethod) String() string {
	if info, ok := methodTable[m]; ok {
		return info.code
	}
	return fmt.Sprintf("PaymentMethod(%d)", uint8(m))
}

func (m PaymentMethod) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *PaymentMethod) UnmarshalText(text []byte) error {
	parsed, err := ParsePaymentMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
