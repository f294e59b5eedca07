package cli

import (
	"strconv"

	"github.com/example/cartelera/internal/app"
	"github.com/example/cartelera/internal/config"
	"github.com/example/cartelera/internal/display"
	"github.com/example/cartelera/internal/projection"
	"github.com/spf13/cobra"
)

func newStatsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-event sales and interest built by the projector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := ParseFormat(opts.format)
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := app.Logger(cfg)
			kv, closeStore, err := app.OpenStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			stats, err := projection.NewProjector(kv, logger).AllStats(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(stats))
			for _, s := range stats {
				rows = append(rows, []string{
					s.EventID,
					strconv.Itoa(s.TicketsSold),
					display.Price(s.Revenue, s.Currency),
					strconv.Itoa(s.Orders),
					strconv.Itoa(s.CartAdds),
					strconv.Itoa(s.Favorites),
				})
			}
			return Write(cmd.OutOrStdout(), format, stats, Table{
				Headers: []string{"Evento", "Entradas", "Ingresos", "Órdenes", "Al carrito", "Favoritos"},
				Rows:    rows,
			})
		},
	}
}
