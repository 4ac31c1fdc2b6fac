package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"cajadual/backend/internal/domain"
	"cajadual/backend/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	products []domain.Product
	sales    []domain.Sale
	saleIDs  map[string]int
	rate     *domain.ExchangeRate
}

func New() *Store {
	return &Store{saleIDs: make(map[string]int)}
}

// NewSeeded returns a store with a small demo catalogue.
func NewSeeded() *Store {
	s := New()
	s.products = []domain.Product{
		{Code: "7591002000011", Name: "HARINA PAN 1KG", CostPrice: decimal.RequireFromString("0.95"), SalePrice: decimal.RequireFromString("1.25")},
		{Code: "7591016850015", Name: "CAFE FAMA DE AMERICA 250G", CostPrice: decimal.RequireFromString("2.60"), SalePrice: decimal.RequireFromString("3.50")},
		{Code: "7590011251018", Name: "ARROZ MARY 1KG", CostPrice: decimal.RequireFromString("1.05"), SalePrice: decimal.RequireFromString("1.40")},
		{Code: "7591039000017", Name: "ACEITE VATEL 1L", CostPrice: decimal.RequireFromString("2.90"), SalePrice: decimal.RequireFromString("3.80")},
		{Code: "7591083000054", Name: "AZUCAR 1KG", CostPrice: decimal.RequireFromString("1.10"), SalePrice: decimal.RequireFromString("1.50")},
		{Code: "7591016200056", Name: "PASTA PRIMOR 1KG", CostPrice: decimal.RequireFromString("1.20"), SalePrice: decimal.RequireFromString("1.65")},
		{Code: "7591196000127", Name: "QUESO BLANCO 1KG", CostPrice: decimal.RequireFromString("4.30"), SalePrice: decimal.RequireFromString("5.90")},
		{Code: "7591031000052", Name: "MALTA 355ML", CostPrice: decimal.RequireFromString("0.55"), SalePrice: decimal.RequireFromString("0.80")},
	}
	return s
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

func (s *Store) SaveProducts(_ context.Context, products []domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append([]domain.Product(nil), products...)
	return nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		out = append(out, sale.Clone())
	}
	return out, nil
}

func (s *Store) AppendSale(_ context.Context, sale domain.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.saleIDs[sale.ID]; exists {
		return nil
	}
	s.saleIDs[sale.ID] = len(s.sales)
	s.sales = append(s.sales, sale.Clone())
	return nil
}

func (s *Store) FindSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.saleIDs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	sale := s.sales[idx].Clone()
	return &sale, nil
}

func (s *Store) GetExchangeRate(_ context.Context) (domain.ExchangeRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rate == nil {
		return domain.ExchangeRate{}, store.ErrNotFound
	}
	return *s.rate, nil
}

func (s *Store) SetExchangeRate(_ context.Context, rate domain.ExchangeRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = &rate
	return nil
}
