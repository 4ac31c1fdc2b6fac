package domain

import "errors"

// Error kinds raised by the checkout core. Callers wrap them with the
// precondition that failed so operators see what to correct.
var (
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidRate        = errors.New("invalid exchange rate")
	ErrInvalidTotal       = errors.New("invalid sale total")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrInvalidState       = errors.New("invalid checkout state")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrPaymentIncomplete  = errors.New("payment incomplete")
	ErrPersistenceFailure = errors.New("persistence failure")
	ErrUnknownMethod      = errors.New("unknown payment method")
	ErrInvalidProduct     = errors.New("invalid product")
	ErrInvalidRequest     = errors.New("invalid request")
)
