package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"cajadual/backend/internal/domain"
	"cajadual/backend/internal/money"
)

// ToCSV flattens a summary into section,key,value rows.
func ToCSV(summary domain.DailySummary) string {
	lines := []string{
		"section,key,value",
		fmt.Sprintf("summary,date,%s", summary.Date),
		fmt.Sprintf("summary,sales,%d", summary.Sales),
		fmt.Sprintf("summary,total_usd,%s", summary.TotalUSD.StringFixed(2)),
		fmt.Sprintf("summary,total_local,%s", summary.TotalLocal.StringFixed(2)),
		fmt.Sprintf("summary,collected_usd,%s", summary.CollectedUSD.StringFixed(2)),
		fmt.Sprintf("summary,change_usd,%s", summary.ChangeUSD.StringFixed(2)),
		fmt.Sprintf("summary,cash_usd,%s", summary.CashUSD.StringFixed(2)),
		fmt.Sprintf("summary,cash_local,%s", summary.CashLocal.StringFixed(2)),
		fmt.Sprintf("summary,estimated_margin_usd,%s", summary.EstimatedMargin.StringFixed(2)),
	}
	for _, row := range summary.ByMethod {
		lines = append(lines, fmt.Sprintf("payment,%s_payments,%d", row.Method, row.Payments))
		lines = append(lines, fmt.Sprintf("payment,%s_amount_usd,%s", row.Method, row.AmountUSD.StringFixed(2)))
		lines = append(lines, fmt.Sprintf("payment,%s_amount_local,%s", row.Method, row.AmountLocal.StringFixed(2)))
	}
	return strings.Join(lines, "\n") + "\n"
}

type printableMethod struct {
	Method   string
	Payments int64
	USD      string
	Local    string
}

type printableSummary struct {
	Date      string
	Sales     int64
	TotalUSD  string
	TotalLoc  string
	Collected string
	Change    string
	CashUSD   string
	CashLocal string
	Margin    string
	ByMethod  []printableMethod
}

// printableTmpl is auto-escaped by html/template.
var printableTmpl = template.Must(template.New("daily-summary").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Daily Summary {{.Date}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Daily Summary {{.Date}}</h2>
  <p>Sales: {{.Sales}}</p>
  <p>Total: {{.TotalUSD}} | {{.TotalLoc}} | Collected: {{.Collected}} | Change: {{.Change}} | Margin: {{.Margin}}</p>
  <p>Cash drawer: {{.CashUSD}} | {{.CashLocal}}</p>

  <h3>By Payment Method</h3>
  <table>
    <thead><tr><th>Method</th><th>Payments</th><th>USD</th><th>Local</th></tr></thead>
    <tbody>{{range .ByMethod}}<tr><td>{{.Method}}</td><td style="text-align:right;">{{.Payments}}</td><td style="text-align:right;">{{.USD}}</td><td style="text-align:right;">{{.Local}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

// ToPrintableHTML renders the summary for a browser print dialog.
func ToPrintableHTML(summary domain.DailySummary, f money.Formatter) string {
	view := printableSummary{
		Date:      summary.Date,
		Sales:     summary.Sales,
		TotalUSD:  f.USD(summary.TotalUSD),
		TotalLoc:  f.Local(summary.TotalLocal),
		Collected: f.USD(summary.CollectedUSD),
		Change:    f.USD(summary.ChangeUSD),
		CashUSD:   f.USD(summary.CashUSD),
		CashLocal: f.Local(summary.CashLocal),
		Margin:    f.USD(summary.EstimatedMargin),
	}
	for _, row := range summary.ByMethod {
		view.ByMethod = append(view.ByMethod, printableMethod{
			Method:   row.Method.String(),
			Payments: row.Payments,
			USD:      f.USD(row.AmountUSD),
			Local:    f.Local(row.AmountLocal),
		})
	}

	var buf bytes.Buffer
	if err := printableTmpl.Execute(&buf, view); err != nil {
		return "<!doctype html><html><body><p>Report rendering error.</p></body></html>"
	}
	return buf.String()
}

const (
	summarySheet = "Summary"
	methodSheet  = "Payments"
	salesSheet   = "Sales"
)

// WriteXLSX writes a workbook with the summary, the per-method breakdown and
// one row per sale.
func WriteXLSX(w io.Writer, summary domain.DailySummary, sales []domain.Sale) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	rows := [][]any{
		{"Date", summary.Date},
		{"Sales", summary.Sales},
		{"Total USD", summary.TotalUSD.InexactFloat64()},
		{"Total local", summary.TotalLocal.InexactFloat64()},
		{"Collected USD", summary.CollectedUSD.InexactFloat64()},
		{"Change USD", summary.ChangeUSD.InexactFloat64()},
		{"Cash USD", summary.CashUSD.InexactFloat64()},
		{"Cash local", summary.CashLocal.InexactFloat64()},
		{"Estimated margin USD", summary.EstimatedMargin.InexactFloat64()},
	}
	if err := writeRows(f, summarySheet, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(methodSheet); err != nil {
		return err
	}
	methodRows := [][]any{{"Method", "Currency", "Payments", "Amount USD", "Amount local"}}
	for _, row := range summary.ByMethod {
		methodRows = append(methodRows, []any{
			row.Method.String(), string(row.Currency), row.Payments,
			row.AmountUSD.InexactFloat64(), row.AmountLocal.InexactFloat64(),
		})
	}
	if err := writeRows(f, methodSheet, methodRows); err != nil {
		return err
	}

	if _, err := f.NewSheet(salesSheet); err != nil {
		return err
	}
	saleRows := [][]any{{"Sale", "Time", "Lines", "Total USD", "Total local", "Rate", "Change USD"}}
	for _, sale := range sales {
		change := 0.0
		if sale.Change != nil {
			change = sale.Change.TotalUSD.InexactFloat64()
		}
		saleRows = append(saleRows, []any{
			sale.ID, sale.CreatedAt.Format("2006-01-02 15:04:05"), len(sale.Lines),
			sale.TotalUSD.InexactFloat64(), sale.TotalLocal.InexactFloat64(),
			sale.RateUsed.InexactFloat64(), change,
		})
	}
	if err := writeRows(f, salesSheet, saleRows); err != nil {
		return err
	}

	_, err := f.WriteTo(w)
	return err
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}
