package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rebeliceyang/lazygrid/internal/filter"
	"github.com/rebeliceyang/lazygrid/internal/models"
)

type ColumnsOptions struct {
	Provider string
	DSN      string
	Source   string
}

func NewColumnsCommand(global *GlobalOptions) *cobra.Command {
	opts := &ColumnsOptions{}

	cmd := &cobra.Command{
		Use:   "columns",
		Short: "List the properties of a source with their filter type and operators",
		Example: `  lazygrid columns --provider sqlite --dsn shop.db --source items
  lazygrid columns --source users.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runColumns(cmd.Context(), global, opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Provider, "provider", "", "Provider kind: local, rest, postgres or sqlite (default from config)")
	flags.StringVar(&opts.DSN, "dsn", "", "Database connection string for postgres or sqlite")
	flags.StringVarP(&opts.Source, "source", "s", "", "File, URL or table to inspect")

	return cmd
}

func runColumns(ctx context.Context, global *GlobalOptions, opts *ColumnsOptions, stdout io.Writer) error {
	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}
	if opts.Provider != "" {
		cfg.Provider.Kind = opts.Provider
	}
	if opts.DSN != "" {
		cfg.Provider.DSN = opts.DSN
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	src, err := openSource(ctx, cfg.Provider, openCredentials(cfg), opts.Source)
	if err != nil {
		return err
	}
	defer src.close()

	return writeColumns(stdout, src.schema)
}

func writeColumns(w io.Writer, schema *models.Schema[models.Record]) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDECLARED\tTYPE\tOPERATORS")
	for _, p := range schema.Properties() {
		typ := filter.ClassifyType(p.Declared)
		ops := filter.OperatorsForType(typ)
		names := make([]string, len(ops))
		for i, op := range ops {
			names[i] = op.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.Declared, typ, strings.Join(names, ","))
	}
	return tw.Flush()
}
