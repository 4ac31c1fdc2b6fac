package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"cajadual/backend/internal/app"
	"cajadual/backend/internal/config"
	"cajadual/backend/internal/domain"
)

const catalogue = `- code: "7591002000011"
  name: harina pan 1kg
  cost_price: 0.95
  sale_price: 1.25
- code: "7591031000052"
  name: malta 355ml
  cost_price: 0.55
  sale_price: 0.80
`

func testConfig(dir string) config.Config {
	return config.Config{
		DataDir:             dir,
		StoreName:           "Bodega Test",
		StoreTimezone:       "UTC",
		DisplayLocale:       "es",
		DefaultExchangeRate: decimal.RequireFromString("36.50"),
	}
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(func() (config.Config, error) { return testConfig(dir), nil })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImportAndListProducts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalogue.yaml")
	if err := os.WriteFile(path, []byte(catalogue), 0o600); err != nil {
		t.Fatalf("write catalogue: %v", err)
	}

	out, err := run(t, dir, "products", "import", path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "imported 2 products") {
		t.Fatalf("unexpected import output %q", out)
	}

	out, err = run(t, dir, "products", "list", "--search", "malta")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "MALTA 355ML") || strings.Contains(out, "HARINA") {
		t.Fatalf("expected only the malta product, got %q", out)
	}
}

func TestRateSetAndGet(t *testing.T) {
	dir := t.TempDir()

	if _, err := run(t, dir, "rate", "set", "40.10"); err != nil {
		t.Fatalf("rate set: %v", err)
	}
	out, err := run(t, dir, "rate", "get")
	if err != nil {
		t.Fatalf("rate get: %v", err)
	}
	if !strings.HasPrefix(out, "40.10") {
		t.Fatalf("expected persisted rate 40.10, got %q", out)
	}

	if _, err := run(t, dir, "rate", "set", "0"); err == nil {
		t.Fatalf("expected zero rate to be rejected")
	}
}

func TestReportAndReceiptForRecordedSale(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	path := filepath.Join(dir, "catalogue.yaml")
	if err := os.WriteFile(path, []byte(catalogue), 0o600); err != nil {
		t.Fatalf("write catalogue: %v", err)
	}
	if _, err := run(t, dir, "products", "import", path); err != nil {
		t.Fatalf("import: %v", err)
	}

	a, err := app.Build(ctx, testConfig(dir), nil)
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	if _, err := a.Service.AddCartLine(ctx, domain.CartLineRequest{Code: "7591031000052", Quantity: decimal.NewNullDecimal(decimal.NewFromInt(5))}); err != nil {
		t.Fatalf("add line: %v", err)
	}
	if _, err := a.Service.OpenCheckout(); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := a.Service.AddPayment(domain.PaymentRequest{Method: domain.MethodCashUSD, Amount: decimal.NewFromInt(4)}); err != nil {
		t.Fatalf("pay: %v", err)
	}
	resp, err := a.Service.Finalize(ctx, domain.FinalizeRequest{})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	_ = a.Close()

	out, err := run(t, dir, "report", "daily", "--format", "csv")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out, "summary,sales,1") || !strings.Contains(out, "summary,total_usd,4.00") {
		t.Fatalf("unexpected report %q", out)
	}

	xlsx := filepath.Join(dir, "daily.xlsx")
	if _, err := run(t, dir, "report", "daily", "--xlsx", xlsx); err != nil {
		t.Fatalf("xlsx report: %v", err)
	}
	if info, err := os.Stat(xlsx); err != nil || info.Size() == 0 {
		t.Fatalf("expected xlsx file, got %v", err)
	}

	out, err = run(t, dir, "receipt", resp.Sale.ID)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if !strings.Contains(out, "BODEGA TEST") || !strings.Contains(out, "MALTA 355ML") {
		t.Fatalf("unexpected receipt %q", out)
	}

	if _, err := run(t, dir, "receipt", "sale-missing"); err == nil {
		t.Fatalf("expected error for unknown sale")
	}
}
