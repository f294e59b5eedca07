package cli

import (
	"strconv"

	"github.com/example/cartelera/internal/view"
	"github.com/spf13/cobra"
)

type routeOutput struct {
	Name      view.RouteName    `json:"name" yaml:"name"`
	EventID   string            `json:"eventId,omitempty" yaml:"eventId,omitempty"`
	State     *view.State       `json:"state,omitempty" yaml:"state,omitempty"`
	Params    map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Canonical string            `json:"canonical" yaml:"canonical"`
}

func newRouteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "route <hash>",
		Short:   "Decode a hash route and print its canonical form",
		Example: `  cartelera route '#/catalog?cat=musica,teatro&page=0'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseFormat(opts.format)
			if err != nil {
				return err
			}

			route := view.ParseRoute(args[0])
			out := routeOutput{Name: route.Name, EventID: route.EventID, Canonical: route.String()}
			rows := [][]string{{"route", string(route.Name)}}
			if route.Name == view.RouteEvent {
				rows = append(rows, []string{"event", route.EventID})
			}
			if route.Name == view.RouteCatalog {
				state := route.State()
				out.State = &state
				out.Params = view.Encode(state)
				for _, k := range view.Keys {
					rows = append(rows, []string{k, out.Params[k]})
				}
				rows = append(rows, []string{"pageSize", strconv.Itoa(state.PageSize)})
			}
			rows = append(rows, []string{"canonical", out.Canonical})

			return Write(cmd.OutOrStdout(), format, out, Table{Headers: []string{"Campo", "Valor"}, Rows: rows})
		},
	}
}
