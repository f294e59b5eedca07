package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/example/cartelera/internal/app"
	"github.com/example/cartelera/internal/config"
	"github.com/example/cartelera/internal/display"
	"github.com/example/cartelera/internal/persistence"
	"github.com/spf13/cobra"
)

func newOrdersCommand(opts *options) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List stored orders for a session, or the known sessions",
		Long: `orders reads the store configured by STORE_BACKEND and friends.
Without --session it lists the sessions with stored data, when the backend
can enumerate keys.`,
		Args: cobra.NoArgs,
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
			gateway := persistence.NewGateway(kv, logger)

			if session == "" {
				sessions, err := gateway.Sessions(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, len(sessions))
				for i, s := range sessions {
					rows[i] = []string{s}
				}
				return Write(cmd.OutOrStdout(), format, sessions, Table{Headers: []string{"Sesión"}, Rows: rows})
			}

			orders, err := gateway.Orders(cmd.Context(), session)
			if err != nil && !errors.Is(err, persistence.ErrStorageCorrupt) {
				return err
			}
			rows := make([][]string, 0, len(orders))
			for _, o := range orders {
				tickets := 0
				for _, item := range o.Items {
					tickets += item.Quantity
				}
				rows = append(rows, []string{
					o.ID,
					display.DateTime(o.CreatedAt),
					o.Buyer.Email,
					strconv.Itoa(tickets),
					display.Price(o.Total, o.Currency),
				})
			}
			return Write(cmd.OutOrStdout(), format, orders, Table{
				Headers: []string{"Orden", "Fecha", "Email", "Entradas", "Total"},
				Rows:    rows,
				Footer:  fmt.Sprintf("%d órdenes", len(orders)),
			})
		},
	}
	cmd.Flags().StringVarP(&session, "session", "s", "", "Session id")
	return cmd
}
