package store

import (
	"context"
	"errors"

	"cajadual/backend/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Inventory holds the product catalogue. Saves replace the whole list.
type Inventory interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	SaveProducts(ctx context.Context, products []domain.Product) error
}

// SalesLog is append-only. Appending a sale whose id is already present is
// a no-op, so a retried finalize never records a sale twice.
type SalesLog interface {
	ListSales(ctx context.Context) ([]domain.Sale, error)
	AppendSale(ctx context.Context, sale domain.Sale) error
	FindSale(ctx context.Context, id string) (*domain.Sale, error)
}

// ConfigStore returns ErrNotFound from GetExchangeRate until a rate is set.
type ConfigStore interface {
	GetExchangeRate(ctx context.Context) (domain.ExchangeRate, error)
	SetExchangeRate(ctx context.Context, rate domain.ExchangeRate) error
}

type Repository interface {
	Inventory
	SalesLog
	ConfigStore
	Close() error
}
