package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cajadual/backend/internal/app"
	"cajadual/backend/internal/domain"
	"cajadual/backend/internal/report"
)

func (c *cli) rateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "rate", Short: "Show or change the exchange rate"}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the current exchange rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(_ context.Context, a *app.App) error {
				current := a.Service.ExchangeRate()
				fmt.Fprintf(cmd.OutOrStdout(), "%s (updated %s)\n", current.Rate.StringFixed(2), current.UpdatedAt.In(a.Location).Format("2006-01-02 15:04"))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <rate>",
		Short: "Set the exchange rate used for new payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := decimal.NewFromString(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("%w: %q is not a number", domain.ErrInvalidRate, args[0])
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				updated, err := a.Service.SetExchangeRate(ctx, domain.ExchangeRateUpdate{Rate: value})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exchange rate set to %s\n", updated.Rate.StringFixed(2))
				return nil
			})
		},
	})
	return cmd
}

func (c *cli) productsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "products", Short: "Manage the product catalogue"}

	var query string
	list := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				var (
					products []domain.Product
					err      error
				)
				if query != "" {
					products, err = a.Service.SearchProducts(ctx, query)
				} else {
					products, err = a.Service.ListProducts(ctx)
				}
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "CODE\tNAME\tCOST\tPRICE")
				for _, p := range products {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Code, p.Name, p.CostPrice.StringFixed(2), p.SalePrice.StringFixed(2))
				}
				return w.Flush()
			})
		},
	}
	list.Flags().StringVarP(&query, "search", "s", "", "prefix search; start with * for substring")

	var merge bool
	importCmd := &cobra.Command{
		Use:   "import <file.yaml|file.json>",
		Short: "Replace the catalogue with the products in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := readProducts(args[0])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if merge {
					for _, p := range products {
						if _, err := a.Service.UpsertProduct(ctx, domain.ProductUpsertRequest{
							Code:      p.Code,
							Name:      p.Name,
							CostPrice: p.CostPrice,
							SalePrice: p.SalePrice,
						}); err != nil {
							return fmt.Errorf("product %q: %w", p.Name, err)
						}
					}
					fmt.Fprintf(cmd.OutOrStdout(), "merged %d products\n", len(products))
					return nil
				}
				saved, err := a.Service.ReplaceProducts(ctx, products)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d products\n", len(saved))
				return nil
			})
		},
	}
	importCmd.Flags().BoolVar(&merge, "merge", false, "upsert into the existing catalogue instead of replacing it")

	cmd.AddCommand(list, importCmd)
	return cmd
}

// readProducts accepts a YAML or JSON list of products, chosen by extension.
func readProducts(path string) ([]domain.Product, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var products []domain.Product
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &products)
	case ".json":
		err = json.Unmarshal(raw, &products)
	default:
		return nil, fmt.Errorf("unsupported product file %q: use .yaml, .yml or .json", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return products, nil
}

func (c *cli) salesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "sales", Short: "Inspect the sales log"}

	var date string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the sales of a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				sales, err := a.Service.ListSales(ctx, date)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTIME\tTOTAL USD\tTOTAL LOCAL\tRATE\tPAYMENTS")
				for _, s := range sales {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
						s.ID,
						s.CreatedAt.In(a.Location).Format("15:04:05"),
						s.TotalUSD.StringFixed(2),
						s.TotalLocal.StringFixed(2),
						s.RateUsed.StringFixed(2),
						len(s.Payments),
					)
				}
				return w.Flush()
			})
		},
	}
	list.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD (default today)")

	cmd.AddCommand(list)
	return cmd
}

func (c *cli) reportCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "report", Short: "Build sales reports"}

	var date, format, xlsxPath string
	daily := &cobra.Command{
		Use:   "daily",
		Short: "Summarize the sales of a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				summary, sales, err := a.Service.DailyReport(ctx, date)
				if err != nil {
					return err
				}
				if xlsxPath != "" {
					f, err := os.Create(xlsxPath)
					if err != nil {
						return err
					}
					if err := report.WriteXLSX(f, summary, sales); err != nil {
						_ = f.Close()
						return err
					}
					if err := f.Close(); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", xlsxPath)
					return nil
				}

				out := cmd.OutOrStdout()
				switch strings.ToLower(format) {
				case "json":
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(summary)
				case "html":
					_, err := fmt.Fprint(out, report.ToPrintableHTML(summary, a.Formatter))
					return err
				case "", "csv":
					_, err := fmt.Fprint(out, report.ToCSV(summary))
					return err
				default:
					return fmt.Errorf("unknown format %q: use csv, json or html", format)
				}
			})
		},
	}
	daily.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD (default today)")
	daily.Flags().StringVar(&format, "format", "csv", "csv, json or html")
	daily.Flags().StringVar(&xlsxPath, "xlsx", "", "write an Excel workbook to this path instead")

	cmd.AddCommand(daily)
	return cmd
}

func (c *cli) receiptCmd() *cobra.Command {
	var escposPath string
	cmd := &cobra.Command{
		Use:   "receipt <sale-id>",
		Short: "Reprint the receipt of a recorded sale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				rec, err := a.Service.Receipt(ctx, args[0])
				if err != nil {
					return err
				}
				if escposPath != "" {
					raw, err := base64.StdEncoding.DecodeString(rec.EscposBase64)
					if err != nil {
						return err
					}
					if err := os.WriteFile(escposPath, raw, 0o644); err != nil {
						return err
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), rec.PreviewText)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&escposPath, "escpos", "", "also write the raw ESC/POS bytes to this path")
	return cmd
}
