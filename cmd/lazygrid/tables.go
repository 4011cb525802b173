package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rebeliceyang/lazygrid/internal/models"
	"github.com/rebeliceyang/lazygrid/internal/provider/postgres"
	"github.com/rebeliceyang/lazygrid/internal/provider/sqlite"
)

type TablesOptions struct {
	Provider string
	DSN      string
}

func NewTablesCommand(global *GlobalOptions) *cobra.Command {
	opts := &TablesOptions{}

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the tables a database provider can query",
		Example: `  lazygrid tables --provider sqlite --dsn shop.db
  lazygrid tables --provider postgres --dsn postgres://localhost/app`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(cmd.Context(), global, opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Provider, "provider", "", "Provider kind: postgres or sqlite (default from config)")
	flags.StringVar(&opts.DSN, "dsn", "", "Database connection string")

	return cmd
}

func runTables(ctx context.Context, global *GlobalOptions, opts *TablesOptions, stdout io.Writer) error {
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
	if ctx == nil {
		ctx = context.Background()
	}

	var tables []models.TableInfo
	switch cfg.Provider.Kind {
	case "postgres":
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			DSN:      cfg.Provider.DSN,
			MaxConns: int32(cfg.Provider.MaxConns),
			Password: passwordLookup(openCredentials(cfg)),
		})
		if err != nil {
			return err
		}
		defer pool.Close()
		tables, err = postgres.ListTables(ctx, pool)
		if err != nil {
			return err
		}
	case "sqlite":
		p, err := sqlite.Open(cfg.Provider.DSN, cfg.Provider.Timeout())
		if err != nil {
			return err
		}
		defer p.Close()
		tables, err = p.Tables(ctx)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("provider %q has no tables, use postgres or sqlite", cfg.Provider.Kind)
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tROWS")
	for _, t := range tables {
		fmt.Fprintf(tw, "%s\t%d\n", t.Name, t.RowCount)
	}
	return tw.Flush()
}
