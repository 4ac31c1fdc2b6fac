// Package filestore keeps inventory, sales and config as JSON documents in a
// data directory. Every write rewrites the whole document through a temp file
// and a rename, under one mutex.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"cajadual/backend/internal/domain"
	"cajadual/backend/internal/store"
)

const (
	inventoryFile = "inventory.json"
	salesFile     = "sales.json"
	configFile    = "config.json"
)

type configDocument struct {
	ExchangeRate *domain.ExchangeRate `json:"exchange_rate,omitempty"`
}

type Store struct {
	mu  sync.Mutex
	dir string
}

func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var products []domain.Product
	if err := s.read(inventoryFile, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (s *Store) SaveProducts(_ context.Context, products []domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if products == nil {
		products = []domain.Product{}
	}
	return s.write(inventoryFile, products)
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sales, err := s.readSales()
	if err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) AppendSale(_ context.Context, sale domain.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sales, err := s.readSales()
	if err != nil {
		return err
	}
	for _, existing := range sales {
		if existing.ID == sale.ID {
			return nil
		}
	}
	sales = append(sales, sale)
	return s.write(salesFile, sales)
}

func (s *Store) FindSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sales, err := s.readSales()
	if err != nil {
		return nil, err
	}
	for i := range sales {
		if sales[i].ID == id {
			return &sales[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetExchangeRate(_ context.Context) (domain.ExchangeRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc configDocument
	if err := s.read(configFile, &doc); err != nil {
		return domain.ExchangeRate{}, err
	}
	if doc.ExchangeRate == nil {
		return domain.ExchangeRate{}, store.ErrNotFound
	}
	return *doc.ExchangeRate, nil
}

func (s *Store) SetExchangeRate(_ context.Context, rate domain.ExchangeRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc configDocument
	if err := s.read(configFile, &doc); err != nil {
		return err
	}
	doc.ExchangeRate = &rate
	return s.write(configFile, doc)
}

func (s *Store) readSales() ([]domain.Sale, error) {
	var sales []domain.Sale
	if err := s.read(salesFile, &sales); err != nil {
		return nil, err
	}
	if sales == nil {
		sales = []domain.Sale{}
	}
	return sales, nil
}

// read leaves dst untouched when the file does not exist yet.
func (s *Store) read(name string, dst any) error {
	payload, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) write(name string, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
