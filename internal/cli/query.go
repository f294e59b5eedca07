package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/cartelera/internal/display"
	"github.com/example/cartelera/internal/domain/event"
	"github.com/example/cartelera/internal/infrastructure/catalogsource"
	"github.com/example/cartelera/internal/logging"
	"github.com/example/cartelera/internal/query"
	"github.com/example/cartelera/internal/view"
	"github.com/spf13/cobra"
)

type queryOutput struct {
	URL       string         `json:"url" yaml:"url"`
	Total     int            `json:"total" yaml:"total"`
	Page      int            `json:"page" yaml:"page"`
	PageCount int            `json:"pageCount" yaml:"pageCount"`
	Items     []event.Record `json:"items" yaml:"items"`
}

func newQueryCommand(opts *options) *cobra.Command {
	var rawURL string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a catalog search and print one page",
		Example: `  cartelera query --url '#/catalog?cat=musica&sort=price_asc'
  cartelera query --url 'city=Lima&status=available&page=2' -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := ParseFormat(opts.format)
			if err != nil {
				return err
			}
			catalog, err := catalogsource.Load(cmd.Context(), opts.catalog)
			if err != nil {
				return err
			}

			state := stateFromURL(rawURL)
			result := query.NewHandler(catalog, 0, *logging.Default()).Search(state)
			state.Page = result.Page

			out := queryOutput{
				URL:       view.CatalogHash(state),
				Total:     result.Total,
				Page:      result.Page,
				PageCount: result.PageCount,
				Items:     result.Items,
			}
			return Write(cmd.OutOrStdout(), format, out, eventTable(result))
		},
	}
	cmd.Flags().StringVarP(&rawURL, "url", "u", "", "Catalog hash route or query string")
	return cmd
}

// stateFromURL accepts a full hash route or a bare query string.
func stateFromURL(raw string) view.State {
	raw = strings.TrimSpace(raw)
	isRoute := strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "catalog")
	if raw != "" && !isRoute {
		raw = "#/catalog?" + strings.TrimPrefix(raw, "?")
	}
	return view.ParseRoute(raw).State()
}

func eventTable(result query.Result) Table {
	rows := make([][]string, 0, len(result.Items))
	for _, rec := range result.Items {
		status := "disponible"
		if !rec.CanPurchase() {
			status = "agotado"
		}
		rows = append(rows, []string{
			rec.ID,
			rec.Title,
			display.CategoryLabel(rec.Category),
			rec.City,
			display.DateTime(rec.Datetime),
			display.Price(rec.PriceFrom, rec.Currency),
			strconv.Itoa(rec.Stock),
			status,
		})
	}
	return Table{
		Headers: []string{"ID", "Evento", "Categoría", "Ciudad", "Fecha", "Desde", "Stock", "Estado"},
		Rows:    rows,
		Footer:  fmt.Sprintf("página %d de %d · %d eventos", result.Page, result.PageCount, result.Total),
	}
}

func newValidateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the catalog and summarise it by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := ParseFormat(opts.format)
			if err != nil {
				return err
			}
			catalog, err := catalogsource.Load(cmd.Context(), opts.catalog)
			if err != nil {
				return err
			}

			counts := make(map[event.Category]int)
			for _, rec := range catalog.Events() {
				counts[rec.Category]++
			}
			summary := map[string]any{
				"events": catalog.Len(),
				"cities": catalog.Cities(),
			}
			byCategory := make(map[string]int, len(counts))
			rows := make([][]string, 0, len(event.Categories))
			for _, c := range event.Categories {
				byCategory[string(c)] = counts[c]
				rows = append(rows, []string{display.CategoryLabel(c), strconv.Itoa(counts[c])})
			}
			summary["categories"] = byCategory

			return Write(cmd.OutOrStdout(), format, summary, Table{
				Headers: []string{"Categoría", "Eventos"},
				Rows:    rows,
				Footer:  fmt.Sprintf("%d eventos en %s", catalog.Len(), strings.Join(catalog.Cities(), ", ")),
			})
		},
	}
}
