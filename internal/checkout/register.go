// Package checkout runs the single checkout session of a register:
// IDLE -> OPEN -> CLOSED -> IDLE, with OPEN -> IDLE on cancel.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"cajadual/backend/internal/cart"
	"cajadual/backend/internal/domain"
	"cajadual/backend/internal/ledger"
	"cajadual/backend/internal/logging"
	"cajadual/backend/internal/money"
	"cajadual/backend/internal/telemetry"
	"cajadual/backend/internal/xid"
)

type RateSource interface {
	Current() decimal.Decimal
}

type SaleCommitter interface {
	Commit(ctx context.Context, sale domain.Sale) error
}

type ReceiptRenderer interface {
	Render(sale domain.Sale) (domain.Receipt, error)
}

// Result is what a successful finalize hands back. ReceiptErr is set when a
// receipt was requested but could not be rendered; the sale stays recorded.
type Result struct {
	Sale       domain.Sale
	Receipt    *domain.Receipt
	ReceiptErr error
}

type Register struct {
	mu        sync.Mutex
	cart      *cart.Cart
	ledger    *ledger.Ledger
	state     domain.CheckoutState
	sessionID string
	// pendingID is the sale id of a finalize whose commit failed. It is
	// reused on retry until the ledger changes.
	pendingID string

	rates    RateSource
	recorder SaleCommitter
	receipts ReceiptRenderer
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Register)

func WithClock(now func() time.Time) Option {
	return func(r *Register) { r.now = now }
}

func WithSaleIDs(newID func() string) Option {
	return func(r *Register) { r.newID = newID }
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Register) { r.logger = logging.OrNop(logger) }
}

// NewRegister wires a register. receipts may be nil, in which case receipt
// requests are reported as failed.
func NewRegister(rates RateSource, recorder SaleCommitter, receipts ReceiptRenderer, opts ...Option) *Register {
	r := &Register{
		cart:     cart.New(),
		state:    domain.StateIdle,
		rates:    rates,
		recorder: recorder,
		receipts: receipts,
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	r.newID = func() string { return xid.New("sale", r.now()) }
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Register) AddToCart(product domain.Product, qty decimal.Decimal) (domain.CheckoutStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireCartEditable(); err != nil {
		return domain.CheckoutStatus{}, err
	}
	if !product.SalePrice.IsPositive() {
		return domain.CheckoutStatus{}, fmt.Errorf("%w: %s has no sale price", domain.ErrInvalidProduct, product.Code)
	}
	if err := r.cart.AddOrIncrement(product, qty); err != nil {
		return domain.CheckoutStatus{}, err
	}
	return r.statusLocked(), nil
}

func (r *Register) SetCartQuantity(index int, qty decimal.Decimal) (domain.CheckoutStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireCartEditable(); err != nil {
		return domain.CheckoutStatus{}, err
	}
	if err := r.cart.SetQuantity(index, qty); err != nil {
		return domain.CheckoutStatus{}, err
	}
	return r.statusLocked(), nil
}

func (r *Register) RemoveCartLine(index int) (domain.CheckoutStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireCartEditable(); err != nil {
		return domain.CheckoutStatus{}, err
	}
	if err := r.cart.Remove(index); err != nil {
		return domain.CheckoutStatus{}, err
	}
	return r.statusLocked(), nil
}

func (r *Register) ClearCart() (domain.CheckoutStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireCartEditable(); err != nil {
		return domain.CheckoutStatus{}, err
	}
	r.cart.Clear()
	return r.statusLocked(), nil
}

// Open freezes the cart total into a new ledger.
func (r *Register) Open() (domain.CheckoutStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != domain.StateIdle {
		return domain.CheckoutStatus{}, fmt.Errorf("%w: checkout is already %s", domain.ErrInvalidState, r.state)
	}
	if r.cart.IsEmpty() {
		return domain.CheckoutStatus{}, fmt.Errorf("%w: add products before opening checkout", domain.ErrEmptyCart)
	}
	l, err := ledger.Open(r.cart.Total())
	if err != nil {
		return domain.CheckoutStatus{}, err
	}

	r.ledger = l
	r.state = domain.StateOpen
	r.sessionID = uuid.NewString()
	r.pendingID = ""
	r.logger.Info("checkout opened",
		zap.String("session_id", r.sessionID),
		zap.String("total_usd", l.Total().StringFixed(2)),
		zap.Int("lines", r.cart.Len()),
	)
	return r.statusLocked(), nil
}

func (r *Register) RecordPayment(method domain.PaymentMethod, tendered decimal.Decimal) (domain.CheckoutStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireOpen("record a payment"); err != nil {
		return domain.CheckoutStatus{}, err
	}
	if _, err := r.ledger.AddPayment(method, tendered, r.rates.Current()); err != nil {
		return domain.CheckoutStatus{}, err
	}
	r.pendingID = ""
	return r.statusLocked(), nil
}

func (r *Register) RemovePayment(index int) (domain.CheckoutStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireOpen("remove a payment"); err != nil {
		return domain.CheckoutStatus{}, err
	}
	if err := r.ledger.RemovePayment(index); err != nil {
		return domain.CheckoutStatus{}, err
	}
	r.pendingID = ""
	return r.statusLocked(), nil
}

func (r *Register) SuggestedTender(method domain.PaymentMethod) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireOpen("suggest a tender"); err != nil {
		return decimal.Zero, err
	}
	return r.ledger.SuggestedTender(method, r.rates.Current())
}

func (r *Register) SuggestChangeSplit(usdCash decimal.Decimal) (domain.ChangeBreakdown, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireOpen("split change"); err != nil {
		return domain.ChangeBreakdown{}, err
	}
	return r.ledger.SuggestChangeSplit(usdCash, r.rates.Current())
}

func (r *Register) Status() domain.CheckoutStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked()
}

// Cancel discards the ledger. The cart is kept.
func (r *Register) Cancel() (domain.CheckoutStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireOpen("cancel"); err != nil {
		return domain.CheckoutStatus{}, err
	}
	r.logger.Info("checkout cancelled", zap.String("session_id", r.sessionID), zap.Int("payments", len(r.ledger.Payments())))
	r.resetLocked()
	return r.statusLocked(), nil
}

// Finalize validates the ledger against breakdown, records the sale and
// resets the session. If recording fails the session stays OPEN with every
// payment intact and the recorder's error is returned as is.
func (r *Register) Finalize(ctx context.Context, breakdown *domain.ChangeBreakdown, wantsReceipt bool) (Result, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "checkout.finalize")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireOpen("finalize"); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	rate := r.rates.Current()
	if err := r.ledger.CheckFinalize(breakdown, rate); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	if r.pendingID == "" {
		r.pendingID = r.newID()
	}
	sale := r.buildSaleLocked(r.pendingID, breakdown, rate)
	span.SetAttributes(attribute.String("sale.id", sale.ID), attribute.String("session.id", r.sessionID))

	if err := r.recorder.Commit(ctx, sale); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit sale")
		r.logger.Warn("finalize failed, checkout stays open", zap.String("session_id", r.sessionID), zap.String("sale_id", sale.ID), zap.Error(err))
		return Result{}, err
	}

	r.state = domain.StateClosed
	result := Result{Sale: sale}
	if wantsReceipt {
		result.Receipt, result.ReceiptErr = r.renderLocked(sale)
	}

	r.logger.Info("checkout finalized", zap.String("session_id", r.sessionID), zap.String("sale_id", sale.ID))
	r.cart.Clear()
	r.resetLocked()
	return result, nil
}

func (r *Register) renderLocked(sale domain.Sale) (*domain.Receipt, error) {
	if r.receipts == nil {
		return nil, errors.New("no receipt renderer configured")
	}
	receipt, err := r.receipts.Render(sale)
	if err != nil {
		r.logger.Warn("receipt rendering failed", zap.String("sale_id", sale.ID), zap.Error(err))
		return nil, err
	}
	return &receipt, nil
}

func (r *Register) buildSaleLocked(id string, breakdown *domain.ChangeBreakdown, rate decimal.Decimal) domain.Sale {
	total := r.ledger.Total()
	sale := domain.Sale{
		ID:         id,
		CreatedAt:  r.now(),
		Lines:      r.cart.Lines(),
		TotalUSD:   total,
		TotalLocal: total.Mul(rate),
		RateUsed:   rate,
		Payments:   r.ledger.Payments(),
	}
	if change := r.ledger.ChangeUSD(); money.Material(change) && breakdown != nil {
		sale.Change = &domain.SaleChange{
			USDCash:   breakdown.USDCash,
			LocalCash: breakdown.LocalCash,
			TotalUSD:  change,
		}
	}
	return sale
}

func (r *Register) statusLocked() domain.CheckoutStatus {
	rate := r.rates.Current()
	total := r.cart.Total()
	status := domain.CheckoutStatus{
		State:     r.state,
		SessionID: r.sessionID,
		Rate:      rate,
		Cart: domain.CartView{
			Lines:      r.cart.Lines(),
			TotalUSD:   total,
			TotalLocal: total.Mul(rate),
		},
	}
	if r.state == domain.StateOpen && r.ledger != nil {
		if ls, err := r.ledger.Status(rate); err == nil {
			status.Ledger = &ls
		}
	}
	return status
}

func (r *Register) resetLocked() {
	r.ledger = nil
	r.state = domain.StateIdle
	r.sessionID = ""
	r.pendingID = ""
}

func (r *Register) requireOpen(action string) error {
	if r.state != domain.StateOpen {
		return fmt.Errorf("%w: cannot %s while checkout is %s", domain.ErrInvalidState, action, r.state)
	}
	return nil
}

func (r *Register) requireCartEditable() error {
	if r.state == domain.StateOpen {
		return fmt.Errorf("%w: cart is locked while checkout is open; cancel checkout to edit it", domain.ErrInvalidState)
	}
	return nil
}
