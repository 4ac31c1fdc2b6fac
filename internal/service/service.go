package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cajadual/backend/internal/cache"
	"cajadual/backend/internal/checkout"
	"cajadual/backend/internal/domain"
	"cajadual/backend/internal/logging"
	"cajadual/backend/internal/rate"
	"cajadual/backend/internal/receipt"
	"cajadual/backend/internal/report"
	"cajadual/backend/internal/store"
)

const maxSearchResults = 15

type Deps struct {
	Store      store.Repository
	Rates      *rate.Board
	Register   *checkout.Register
	Receipts   *receipt.Renderer
	Signer     *receipt.Signer
	Summaries  cache.SummaryCache
	SummaryTTL time.Duration
	Location   *time.Location
	Logger     *zap.Logger
	Now        func() time.Time
}

type Service struct {
	repo       store.Repository
	rates      *rate.Board
	register   *checkout.Register
	receipts   *receipt.Renderer
	signer     *receipt.Signer
	summaries  cache.SummaryCache
	summaryTTL time.Duration
	location   *time.Location
	logger     *zap.Logger
	now        func() time.Time

	// catalogMu serializes read-modify-write cycles on the inventory.
	catalogMu sync.Mutex
}

func New(deps Deps) *Service {
	s := &Service{
		repo:       deps.Store,
		rates:      deps.Rates,
		register:   deps.Register,
		receipts:   deps.Receipts,
		signer:     deps.Signer,
		summaries:  deps.Summaries,
		summaryTTL: deps.SummaryTTL,
		location:   deps.Location,
		logger:     logging.OrNop(deps.Logger),
		now:        deps.Now,
	}
	if s.summaries == nil {
		s.summaries = cache.NoopSummaryCache{}
	}
	if s.summaryTTL <= 0 {
		s.summaryTTL = time.Minute
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

// SearchProducts matches q against the start of product names and codes.
// A leading "*" switches to substring matching on names. Results are sorted
// by name and capped at 15.
func (s *Service) SearchProducts(ctx context.Context, q string) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	q = strings.ToUpper(strings.TrimSpace(q))
	substring := strings.HasPrefix(q, "*")
	q = strings.TrimSpace(strings.TrimPrefix(q, "*"))

	matches := make([]domain.Product, 0)
	for _, p := range products {
		name := strings.ToUpper(p.Name)
		code := strings.ToUpper(string(p.Code))
		switch {
		case q == "":
			matches = append(matches, p)
		case substring && strings.Contains(name, q):
			matches = append(matches, p)
		case !substring && (strings.HasPrefix(name, q) || strings.HasPrefix(code, q)):
			matches = append(matches, p)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Name < matches[j].Name
	})
	if len(matches) > maxSearchResults {
		matches = matches[:maxSearchResults]
	}
	return matches, nil
}

// ReplaceProducts validates the whole list before saving any of it.
func (s *Service) ReplaceProducts(ctx context.Context, products []domain.Product) ([]domain.Product, error) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()

	seen := make(map[domain.ProductCode]struct{}, len(products))
	out := make([]domain.Product, 0, len(products))
	for i, p := range products {
		normalized, err := normalizeProduct(p)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		if normalized.Code == "" {
			normalized.Code = s.nextCode(seen)
		}
		if _, dup := seen[normalized.Code]; dup {
			return nil, fmt.Errorf("%w: duplicate code %q", domain.ErrInvalidProduct, normalized.Code)
		}
		seen[normalized.Code] = struct{}{}
		out = append(out, normalized)
	}

	if err := s.repo.SaveProducts(ctx, out); err != nil {
		return nil, fmt.Errorf("%w: save products: %v", domain.ErrPersistenceFailure, err)
	}
	s.logger.Info("product catalogue replaced", zap.Int("products", len(out)))
	return out, nil
}

// UpsertProduct replaces the product with the same code, or appends it.
// An empty code is assigned a new time-based one.
func (s *Service) UpsertProduct(ctx context.Context, req domain.ProductUpsertRequest) (domain.Product, error) {
	product, err := normalizeProduct(domain.Product{
		Code:      req.Code,
		Name:      req.Name,
		CostPrice: req.CostPrice,
		SalePrice: req.SalePrice,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	if product.Code == "" {
		taken := make(map[domain.ProductCode]struct{}, len(products))
		for _, p := range products {
			taken[p.Code] = struct{}{}
		}
		product.Code = s.nextCode(taken)
	}

	replaced := false
	for i := range products {
		if products[i].Code == product.Code {
			products[i] = product
			replaced = true
			break
		}
	}
	if !replaced {
		products = append(products, product)
	}

	if err := s.repo.SaveProducts(ctx, products); err != nil {
		return domain.Product{}, fmt.Errorf("%w: save products: %v", domain.ErrPersistenceFailure, err)
	}
	return product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, code domain.ProductCode) error {
	code = domain.ProductCode(strings.TrimSpace(string(code)))

	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return err
	}
	kept := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Code != code {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(products) {
		return fmt.Errorf("%w: product %q", store.ErrNotFound, code)
	}
	if err := s.repo.SaveProducts(ctx, kept); err != nil {
		return fmt.Errorf("%w: save products: %v", domain.ErrPersistenceFailure, err)
	}
	return nil
}

func (s *Service) findProduct(ctx context.Context, code domain.ProductCode) (domain.Product, error) {
	code = domain.ProductCode(strings.TrimSpace(string(code)))
	if code == "" {
		return domain.Product{}, fmt.Errorf("%w: product code required", domain.ErrInvalidProduct)
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	for _, p := range products {
		if p.Code == code {
			return p, nil
		}
	}
	return domain.Product{}, fmt.Errorf("%w: product %q", store.ErrNotFound, code)
}

// nextCode returns a millisecond timestamp code not present in taken, and
// marks it taken.
func (s *Service) nextCode(taken map[domain.ProductCode]struct{}) domain.ProductCode {
	n := s.now().UnixMilli()
	for {
		code := domain.ProductCode(strconv.FormatInt(n, 10))
		if _, ok := taken[code]; !ok {
			taken[code] = struct{}{}
			return code
		}
		n++
	}
}

func normalizeProduct(p domain.Product) (domain.Product, error) {
	p.Code = domain.ProductCode(strings.TrimSpace(string(p.Code)))
	p.Name = strings.ToUpper(strings.TrimSpace(p.Name))
	if p.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: name required", domain.ErrInvalidProduct)
	}
	if !p.SalePrice.IsPositive() {
		return domain.Product{}, fmt.Errorf("%w: sale price must be positive", domain.ErrInvalidProduct)
	}
	if p.CostPrice.IsNegative() {
		return domain.Product{}, fmt.Errorf("%w: cost price must not be negative", domain.ErrInvalidProduct)
	}
	return p, nil
}

func (s *Service) ExchangeRate() domain.ExchangeRate {
	return s.rates.Snapshot()
}

func (s *Service) SetExchangeRate(ctx context.Context, req domain.ExchangeRateUpdate) (domain.ExchangeRate, error) {
	return s.rates.Set(ctx, req.Rate)
}

func (s *Service) CheckoutStatus() domain.CheckoutStatus {
	return s.register.Status()
}

// AddCartLine looks the product up by code. An omitted quantity adds one
// unit; an explicit zero is rejected by the cart.
func (s *Service) AddCartLine(ctx context.Context, req domain.CartLineRequest) (domain.CheckoutStatus, error) {
	product, err := s.findProduct(ctx, req.Code)
	if err != nil {
		return domain.CheckoutStatus{}, err
	}
	qty := decimal.NewFromInt(1)
	if req.Quantity.Valid {
		qty = req.Quantity.Decimal
	}
	return s.register.AddToCart(product, qty)
}

func (s *Service) SetCartQuantity(index int, req domain.QuantityRequest) (domain.CheckoutStatus, error) {
	return s.register.SetCartQuantity(index, req.Quantity)
}

func (s *Service) RemoveCartLine(index int) (domain.CheckoutStatus, error) {
	return s.register.RemoveCartLine(index)
}

func (s *Service) ClearCart() (domain.CheckoutStatus, error) {
	return s.register.ClearCart()
}

func (s *Service) OpenCheckout() (domain.CheckoutStatus, error) {
	return s.register.Open()
}

func (s *Service) CancelCheckout() (domain.CheckoutStatus, error) {
	return s.register.Cancel()
}

func (s *Service) AddPayment(req domain.PaymentRequest) (domain.CheckoutStatus, error) {
	if !req.Method.Valid() {
		return domain.CheckoutStatus{}, fmt.Errorf("%w: method required", domain.ErrUnknownMethod)
	}
	return s.register.RecordPayment(req.Method, req.Amount)
}

func (s *Service) RemovePayment(index int) (domain.CheckoutStatus, error) {
	return s.register.RemovePayment(index)
}

func (s *Service) SuggestedTender(rawMethod string) (domain.SuggestedTender, error) {
	method, err := domain.ParsePaymentMethod(rawMethod)
	if err != nil {
		return domain.SuggestedTender{}, err
	}
	amount, err := s.register.SuggestedTender(method)
	if err != nil {
		return domain.SuggestedTender{}, err
	}
	return domain.SuggestedTender{Method: method, Currency: method.Currency(), Amount: amount}, nil
}

func (s *Service) ChangeSplit(rawUSDCash string) (domain.ChangeBreakdown, error) {
	usdCash := decimal.Zero
	if strings.TrimSpace(rawUSDCash) != "" {
		parsed, err := decimal.NewFromString(strings.TrimSpace(rawUSDCash))
		if err != nil {
			return domain.ChangeBreakdown{}, fmt.Errorf("%w: usd_cash %q is not a number", domain.ErrInvalidAmount, rawUSDCash)
		}
		usdCash = parsed
	}
	return s.register.SuggestChangeSplit(usdCash)
}

func (s *Service) Finalize(ctx context.Context, req domain.FinalizeRequest) (domain.FinalizeResponse, error) {
	result, err := s.register.Finalize(ctx, req.Change, req.Receipt)
	if err != nil {
		return domain.FinalizeResponse{}, err
	}
	resp := domain.FinalizeResponse{Sale: result.Sale, Receipt: result.Receipt}
	if result.ReceiptErr != nil {
		resp.ReceiptError = result.ReceiptErr.Error()
	}
	return resp, nil
}

// ListSales returns the sales of date (YYYY-MM-DD in the store timezone,
// empty for today) in recording order.
func (s *Service) ListSales(ctx context.Context, date string) ([]domain.Sale, error) {
	_, from, to, err := report.Day(date, s.now(), s.location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	all, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	return report.SalesBetween(all, from, to), nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Sale{}, fmt.Errorf("%w: sale id required", domain.ErrInvalidRequest)
	}
	sale, err := s.repo.FindSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

// DailySummary serves from the summary cache when it can. Cache failures are
// logged and the summary is recomputed from the sales log.
func (s *Service) DailySummary(ctx context.Context, date string) (domain.DailySummary, error) {
	day, from, to, err := report.Day(date, s.now(), s.location)
	if err != nil {
		return domain.DailySummary{}, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	cached, ok, err := s.summaries.Get(ctx, day)
	if err != nil {
		s.logger.Warn("summary cache read failed", zap.String("date", day), zap.Error(err))
	}
	if ok && cached != nil {
		return *cached, nil
	}

	all, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.DailySummary{}, err
	}
	summary := report.Summarize(day, report.SalesBetween(all, from, to))
	if err := s.summaries.Set(ctx, day, &summary, s.summaryTTL); err != nil {
		s.logger.Warn("summary cache write failed", zap.String("date", day), zap.Error(err))
	}
	return summary, nil
}

// DailyReport returns the summary together with the sales behind it, for
// exports that list individual sales.
func (s *Service) DailyReport(ctx context.Context, date string) (domain.DailySummary, []domain.Sale, error) {
	day, from, to, err := report.Day(date, s.now(), s.location)
	if err != nil {
		return domain.DailySummary{}, nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	all, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.DailySummary{}, nil, err
	}
	sales := report.SalesBetween(all, from, to)
	return report.Summarize(day, sales), sales, nil
}

func (s *Service) Receipt(ctx context.Context, saleID string) (domain.Receipt, error) {
	sale, err := s.GetSale(ctx, saleID)
	if err != nil {
		return domain.Receipt{}, err
	}
	if s.receipts == nil {
		return domain.Receipt{}, errors.New("receipt printing is not configured")
	}
	return s.receipts.Render(sale)
}

// VerifyReceipt checks a receipt token and whether the sale it names is in
// the sales log with the same totals.
func (s *Service) VerifyReceipt(ctx context.Context, req domain.ReceiptVerifyRequest) (domain.ReceiptVerifyResponse, error) {
	if s.signer == nil {
		return domain.ReceiptVerifyResponse{}, fmt.Errorf("%w: receipt verification is not configured", domain.ErrInvalidRequest)
	}
	claims, err := s.signer.Verify(strings.TrimSpace(req.Token))
	if err != nil {
		return domain.ReceiptVerifyResponse{}, err
	}

	resp := domain.ReceiptVerifyResponse{Claims: claims}
	sale, err := s.repo.FindSale(ctx, claims.SaleID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return resp, nil
	case err != nil:
		return domain.ReceiptVerifyResponse{}, err
	}
	resp.Recorded = sale.TotalUSD.Equal(claims.TotalUSD) &&
		sale.TotalLocal.Equal(claims.TotalLocal) &&
		sale.RateUsed.Equal(claims.RateUsed)
	return resp, nil
}
