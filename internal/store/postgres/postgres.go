package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"cajadual/backend/internal/domain"
	"cajadual/backend/internal/store"
)

//go:embed schema.sql
var schema string

const exchangeRateKey = "exchange_rate"

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates missing tables. Statements are idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, cost_price, sale_price
		FROM products
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		var code string
		if err := rows.Scan(&code, &p.Name, &p.CostPrice, &p.SalePrice); err != nil {
			return nil, err
		}
		p.Code = domain.ProductCode(code)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) SaveProducts(ctx context.Context, products []domain.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return err
	}
	for i, p := range products {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO products (code, name, cost_price, sale_price, position)
			VALUES ($1,$2,$3,$4,$5)
		`, string(p.Code), p.Name, p.CostPrice, p.SalePrice, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) AppendSale(ctx context.Context, sale domain.Sale) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var changeUSD, changeLocal, changeTotal decimal.NullDecimal
	if sale.Change != nil {
		changeUSD = decimal.NewNullDecimal(sale.Change.USDCash)
		changeLocal = decimal.NewNullDecimal(sale.Change.LocalCash)
		changeTotal = decimal.NewNullDecimal(sale.Change.TotalUSD)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sales (id, created_at, total_usd, total_local, rate_used, change_usd_cash, change_local_cash, change_total_usd)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO NOTHING
	`, sale.ID, sale.CreatedAt.UTC(), sale.TotalUSD, sale.TotalLocal, sale.RateUsed, changeUSD, changeLocal, changeTotal)
	if err != nil {
		return err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if inserted == 0 {
		// Already recorded by an earlier attempt.
		return nil
	}

	for i, line := range sale.Lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sale_lines (sale_id, line_no, product_code, product_name, cost_price, sale_price, quantity)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, sale.ID, i, string(line.Product.Code), line.Product.Name, line.Product.CostPrice, line.Product.SalePrice, line.Quantity); err != nil {
			return err
		}
	}
	for i, p := range sale.Payments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sale_payments (sale_id, position, method, tendered_amount, amount_usd, amount_local, currency)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, sale.ID, i, p.Method.String(), p.TenderedAmount, p.AmountUSD, p.AmountLocal, string(p.Currency)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, total_usd, total_local, rate_used, change_usd_cash, change_local_cash, change_total_usd
		FROM sales
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	sales, err := scanSales(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachDetails(ctx, sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) FindSale(ctx context.Context, id string) (*domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, total_usd, total_local, rate_used, change_usd_cash, change_local_cash, change_total_usd
		FROM sales
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	sales, err := scanSales(rows)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, store.ErrNotFound
	}
	if err := s.attachDetails(ctx, sales); err != nil {
		return nil, err
	}
	return &sales[0], nil
}

func (s *Store) GetExchangeRate(ctx context.Context) (domain.ExchangeRate, error) {
	var raw string
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT value, updated_at
		FROM app_config
		WHERE key = $1
	`, exchangeRateKey).Scan(&raw, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ExchangeRate{}, store.ErrNotFound
		}
		return domain.ExchangeRate{}, err
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("stored exchange rate %q: %w", raw, err)
	}
	return domain.ExchangeRate{Rate: rate, UpdatedAt: updatedAt.UTC()}, nil
}

func (s *Store) SetExchangeRate(ctx context.Context, rate domain.ExchangeRate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_config (key, value, updated_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, exchangeRateKey, rate.Rate.String(), rate.UpdatedAt.UTC())
	return err
}

func scanSales(rows *sql.Rows) ([]domain.Sale, error) {
	defer rows.Close()
	sales := make([]domain.Sale, 0, 32)
	for rows.Next() {
		var sale domain.Sale
		var changeUSD, changeLocal, changeTotal decimal.NullDecimal
		if err := rows.Scan(&sale.ID, &sale.CreatedAt, &sale.TotalUSD, &sale.TotalLocal, &sale.RateUsed, &changeUSD, &changeLocal, &changeTotal); err != nil {
			return nil, err
		}
		sale.CreatedAt = sale.CreatedAt.UTC()
		if changeTotal.Valid {
			sale.Change = &domain.SaleChange{
				USDCash:   changeUSD.Decimal,
				LocalCash: changeLocal.Decimal,
				TotalUSD:  changeTotal.Decimal,
			}
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) attachDetails(ctx context.Context, sales []domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	index := make(map[string]int, len(sales))
	ids := make([]string, 0, len(sales))
	for i := range sales {
		index[sales[i].ID] = i
		ids = append(ids, sales[i].ID)
	}

	lineRows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, product_code, product_name, cost_price, sale_price, quantity
		FROM sale_lines
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, line_no
	`, ids)
	if err != nil {
		return err
	}
	for lineRows.Next() {
		var saleID, code string
		var line domain.CartLine
		if err := lineRows.Scan(&saleID, &code, &line.Product.Name, &line.Product.CostPrice, &line.Product.SalePrice, &line.Quantity); err != nil {
			_ = lineRows.Close()
			return err
		}
		line.Product.Code = domain.ProductCode(code)
		i := index[saleID]
		sales[i].Lines = append(sales[i].Lines, line)
	}
	if err := lineRows.Err(); err != nil {
		_ = lineRows.Close()
		return err
	}
	_ = lineRows.Close()

	paymentRows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, method, tendered_amount, amount_usd, amount_local, currency
		FROM sale_payments
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, position
	`, ids)
	if err != nil {
		return err
	}
	defer paymentRows.Close()
	for paymentRows.Next() {
		var saleID, method, currency string
		var p domain.Payment
		if err := paymentRows.Scan(&saleID, &method, &p.TenderedAmount, &p.AmountUSD, &p.AmountLocal, &currency); err != nil {
			return err
		}
		parsed, err := domain.ParsePaymentMethod(method)
		if err != nil {
			return fmt.Errorf("sale %s: %w", saleID, err)
		}
		p.Method = parsed
		p.Currency = domain.Currency(currency)
		i := index[saleID]
		sales[i].Payments = append(sales[i].Payments, p)
	}
	return paymentRows.Err()
}
