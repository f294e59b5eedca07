// Package cli implements the cartelera command line: catalog queries,
// route decoding and order inspection.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/example/cartelera/internal/logging"
	"github.com/spf13/cobra"
)

type options struct {
	catalog string
	format  string
	verbose bool
}

// NewRootCommand builds the command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "cartelera",
		Short: "Inspect the event catalog, view routes and stored orders",
		Long: `cartelera works against the same catalog source and store as the API.

The catalog location defaults to $CATALOG_SOURCE and may be a local file
or an http(s) URL, in JSON or YAML.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			logging.Configure(logging.Config{Level: level, Format: "console", Output: "stderr"})
		},
	}
	root.SetOut(out)

	defaultCatalog := os.Getenv("CATALOG_SOURCE")
	if defaultCatalog == "" {
		defaultCatalog = "./event.json"
	}
	root.PersistentFlags().StringVarP(&opts.catalog, "catalog", "c", defaultCatalog, "Catalog file or URL")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "", "Output format: table, json or yaml (default: auto)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")

	root.AddCommand(
		newQueryCommand(opts),
		newRouteCommand(opts),
		newOrdersCommand(opts),
		newValidateCommand(opts),
		newStatsCommand(opts),
	)
	return root
}

// Execute runs the CLI with args.
func Execute(ctx context.Context, args []string, out io.Writer) error {
	root := NewRootCommand(out)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
