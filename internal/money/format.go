package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders amounts with the grouping and decimal separators of a
// display locale. The zero value formats with English separators.
type Formatter struct {
	printer *message.Printer
}

func NewFormatter(locale string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return Formatter{printer: message.NewPrinter(tag)}
}

func (f Formatter) p() *message.Printer {
	if f.printer == nil {
		return message.NewPrinter(language.English)
	}
	return f.printer
}

// Amount renders v rounded to two decimals.
func (f Formatter) Amount(v decimal.Decimal) string {
	rounded, _ := v.Round(2).Float64()
	return f.p().Sprint(number.Decimal(rounded, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

func (f Formatter) USD(v decimal.Decimal) string {
	return "$" + f.Amount(v)
}

func (f Formatter) Local(v decimal.Decimal) string {
	return "Bs " + f.Amount(v)
}

// FormatUSD renders v as "$1,234.56".
func FormatUSD(v decimal.Decimal) string {
	return Formatter{}.USD(v)
}

// FormatLocal renders v as "Bs 1,234.56".
func FormatLocal(v decimal.Decimal) string {
	return Formatter{}.Local(v)
}
