// Package receipt renders finalized sales as ESC/POS printer bytes with a
// plain-text preview.
package receipt

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"cajadual/backend/internal/domain"
	"cajadual/backend/internal/money"
)

const width = 32

var (
	escposInit = []byte{0x1b, 0x40}
	escposCut  = []byte{0x1d, 0x56, 0x41, 0x10}
)

type Options struct {
	StoreName string
	TaxID     string
	Location  *time.Location
	Formatter money.Formatter
	// Signer is optional. Without it receipts carry no verification token.
	Signer *Signer
}

type Renderer struct {
	opts Options
}

func NewRenderer(opts Options) *Renderer {
	if strings.TrimSpace(opts.StoreName) == "" {
		opts.StoreName = "CAJA DUAL"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Renderer{opts: opts}
}

func (r *Renderer) Render(sale domain.Sale) (domain.Receipt, error) {
	if sale.ID == "" {
		return domain.Receipt{}, fmt.Errorf("receipt requires a recorded sale")
	}
	f := r.opts.Formatter
	created := sale.CreatedAt.In(r.opts.Location)

	lines := []string{center(strings.ToUpper(r.opts.StoreName))}
	if r.opts.TaxID != "" {
		lines = append(lines, center("RIF: "+r.opts.TaxID))
	}
	lines = append(lines,
		strings.Repeat("=", width),
		"Sale: "+sale.ID,
		"Date: "+created.Format("02/01/2006"),
		"Time: "+created.Format("15:04:05"),
		strings.Repeat("-", width),
	)
	for _, line := range sale.Lines {
		unitLocal := line.Product.SalePrice.Mul(sale.RateUsed)
		lines = append(lines, line.Product.Name)
		lines = append(lines, columns(
			fmt.Sprintf("(%s) x %s", line.Quantity.String(), f.Local(unitLocal)),
			f.Local(unitLocal.Mul(line.Quantity)),
		))
	}
	lines = append(lines,
		strings.Repeat("-", width),
		columns("TOTAL", f.Local(sale.TotalLocal)),
		columns("TOTAL $", f.USD(sale.TotalUSD)),
		columns("RATE", f.Amount(sale.RateUsed)),
		strings.Repeat("-", width),
	)
	for _, p := range sale.Payments {
		amount := f.Local(p.TenderedAmount)
		if p.Currency == domain.CurrencyUSD {
			amount = f.USD(p.TenderedAmount)
		}
		lines = append(lines, columns(p.Method.Label(), amount))
	}
	if sale.Change != nil {
		lines = append(lines, columns("CHANGE", f.USD(sale.Change.TotalUSD)))
		if sale.Change.USDCash.IsPositive() {
			lines = append(lines, columns("  IN $", f.USD(sale.Change.USDCash)))
		}
		if sale.Change.LocalCash.IsPositive() {
			lines = append(lines, columns("  IN BS", f.Local(sale.Change.LocalCash)))
		}
	}
	lines = append(lines,
		strings.Repeat("=", width),
		center("THANK YOU"),
		"",
	)

	escpos := append([]byte{}, escposInit...)
	for _, line := range lines {
		escpos = append(escpos, []byte(line)...)
		escpos = append(escpos, '\n')
	}
	escpos = append(escpos, escposCut...)

	out := domain.Receipt{
		SaleID:       sale.ID,
		EscposBase64: base64.StdEncoding.EncodeToString(escpos),
		PreviewText:  strings.Join(lines, "\n"),
		FileName:     fmt.Sprintf("receipt-%s.bin", sale.ID),
	}
	if r.opts.Signer != nil {
		token, err := r.opts.Signer.Sign(sale)
		if err != nil {
			return domain.Receipt{}, fmt.Errorf("sign receipt: %w", err)
		}
		out.VerificationToken = token
	}
	return out, nil
}

func center(s string) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", (width-len(s))/2) + s
}

// columns right-aligns right against the receipt width.
func columns(left string, right string) string {
	gap := width - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}
