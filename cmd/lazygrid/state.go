package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rebeliceyang/lazygrid/internal/config"
	"github.com/rebeliceyang/lazygrid/internal/export"
	"github.com/rebeliceyang/lazygrid/internal/history"
	"github.com/rebeliceyang/lazygrid/internal/views"
)

func openHistory(cfg *config.Config) (*history.Store, error) {
	dir, err := cfg.State.Directory()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return history.NewStore(filepath.Join(dir, "history.db"))
}

func openViews(global *GlobalOptions) (*views.Manager, error) {
	cfg, err := loadConfig(global)
	if err != nil {
		return nil, err
	}
	dir, err := cfg.State.Directory()
	if err != nil {
		return nil, err
	}
	return views.NewManager(dir)
}

type HistoryOptions struct {
	Limit  int
	Search string
	Prune  int
}

func NewHistoryCommand(global *GlobalOptions) *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent query runs",
		Example: `  lazygrid history
  lazygrid history --search users --limit 5
  lazygrid history --prune 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(global, opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.Limit, "limit", "n", 20, "Number of entries to show")
	flags.StringVar(&opts.Search, "search", "", "Only show runs whose source, filter or search contains this text")
	flags.IntVar(&opts.Prune, "prune", 0, "Delete all but the newest N entries")

	return cmd
}

func runHistory(global *GlobalOptions, opts *HistoryOptions, stdout io.Writer) error {
	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.Prune > 0 {
		n, err := store.Prune(opts.Prune)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "removed %d entries\n", n)
		return nil
	}

	var entries []history.HistoryEntry
	if opts.Search != "" {
		entries, err = store.Search(opts.Search, opts.Limit)
	} else {
		entries, err = store.GetRecent(opts.Limit)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tPROVIDER\tSOURCE\tFILTER\tROWS\tSTATUS")
	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = "error: " + e.ErrorMessage
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			e.ExecutedAt.Format("2006-01-02 15:04:05"), e.Provider, e.Source, e.Filter, e.Rows, e.TotalCount, status)
	}
	return tw.Flush()
}

func NewViewCommand(global *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Manage saved views",
		Long:  "Saved views are created with query --save-view and replayed with query --view.",
	}

	var format string
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved views",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openViews(global)
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return export.Write(cmd.OutOrStdout(), f, views.Schema(), mgr.GetAll())
		},
	}
	list.Flags().StringVar(&format, "format", "csv", "Output format: csv, json or yaml")

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openViews(global)
			if err != nil {
				return err
			}
			return mgr.Delete(args[0])
		},
	}

	cmd.AddCommand(list, del)
	return cmd
}
