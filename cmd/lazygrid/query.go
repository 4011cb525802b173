package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rebeliceyang/lazygrid/internal/config"
	"github.com/rebeliceyang/lazygrid/internal/export"
	"github.com/rebeliceyang/lazygrid/internal/filter"
	"github.com/rebeliceyang/lazygrid/internal/history"
	"github.com/rebeliceyang/lazygrid/internal/loader"
	"github.com/rebeliceyang/lazygrid/internal/logger"
	"github.com/rebeliceyang/lazygrid/internal/models"
	"github.com/rebeliceyang/lazygrid/internal/views"
	"github.com/rebeliceyang/lazygrid/internal/virtual"
)

type QueryOptions struct {
	Provider string
	DSN      string
	BaseURL  string
	Source   string
	Filters  []string
	Or       bool
	Sort     string
	Desc     bool
	Search   string
	Limit    int
	PageSize int
	Format   string
	Output   string
	View     string
	SaveView string
}

func NewQueryCommand(global *GlobalOptions) *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Fetch filtered, sorted rows and export them",
		Example: `  lazygrid query --provider sqlite --dsn shop.db --source items --filter "price>=10" --sort price --desc
  lazygrid query --provider postgres --dsn postgres://localhost/app --source public.users --filter "name~ann" --filter "age<30" --or
  lazygrid query --provider rest --source https://api.example.com/users --search lee --format json
  lazygrid query --source users.json --filter "age >= 18" --limit 100 --format yaml -o adults.yaml
  lazygrid query --source users.json --filter "age >= 18" --save-view adults
  lazygrid query --view adults --sort age`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), global, opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Provider, "provider", "", "Provider kind: local, rest, postgres or sqlite (default from config)")
	flags.StringVar(&opts.DSN, "dsn", "", "Database connection string for postgres or sqlite")
	flags.StringVar(&opts.BaseURL, "base-url", "", "Base URL prepended to a relative REST source")
	flags.StringVarP(&opts.Source, "source", "s", "", "File, URL or table to query")
	flags.StringArrayVarP(&opts.Filters, "filter", "f", nil, `Filter expression such as "age>=18" (repeatable)`)
	flags.BoolVar(&opts.Or, "or", false, "Join filters with OR instead of AND")
	flags.StringVar(&opts.Sort, "sort", "", "Property to sort by")
	flags.BoolVar(&opts.Desc, "desc", false, "Sort descending")
	flags.StringVar(&opts.Search, "search", "", "Free text matched against every text property")
	flags.IntVarP(&opts.Limit, "limit", "n", 0, "Maximum rows to fetch (0 for all)")
	flags.IntVar(&opts.PageSize, "page-size", 0, "Rows per page (default from config)")
	flags.StringVar(&opts.Format, "format", "", "Output format: csv, json or yaml (default from config)")
	flags.StringVarP(&opts.Output, "output", "o", "", "Write to a file instead of stdout")
	flags.StringVar(&opts.View, "view", "", "Start from a saved view; explicit flags override it")
	flags.StringVar(&opts.SaveView, "save-view", "", "Save this query as a view after it succeeds")

	cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"local", "rest", "postgres", "sqlite"}, cobra.ShellCompDirectiveNoFileComp
	})
	cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"csv", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runQuery(ctx context.Context, global *GlobalOptions, opts *QueryOptions, stdout io.Writer) (err error) {
	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}

	var mgr *views.Manager
	if opts.View != "" || opts.SaveView != "" {
		dir, err := cfg.State.Directory()
		if err != nil {
			return err
		}
		if mgr, err = views.NewManager(dir); err != nil {
			return err
		}
	}
	if opts.View != "" {
		v, err := mgr.Get(opts.View)
		if err != nil {
			return err
		}
		applyView(opts, v)
		if err := mgr.RecordUsage(v.ID); err != nil {
			logger.Log.WithError(err).Warn("failed to record view usage")
		}
	}

	if opts.Provider != "" {
		cfg.Provider.Kind = opts.Provider
	}
	if opts.DSN != "" {
		cfg.Provider.DSN = opts.DSN
	}
	if opts.BaseURL != "" {
		cfg.Provider.BaseURL = opts.BaseURL
	}
	if opts.PageSize > 0 {
		cfg.Grid.PageSize = opts.PageSize
	}
	if opts.Format != "" {
		cfg.Export.Format = opts.Format
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	format, err := export.ParseFormat(cfg.Export.Format)
	if err != nil {
		return err
	}

	connector := models.And
	if opts.Or {
		connector = models.Or
	}
	desc, err := filter.ParseExpressions(connector, opts.Filters...)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	run := history.HistoryEntry{
		Provider: cfg.Provider.Kind,
		Source:   opts.Source,
		Filter:   describeFilter(desc),
		Search:   opts.Search,
		OrderBy:  opts.Sort,
	}
	start := time.Now()
	defer func() {
		run.Duration = time.Since(start)
		recordRun(cfg, &run, err)
	}()

	src, err := openSource(ctx, cfg.Provider, openCredentials(cfg), opts.Source)
	if err != nil {
		return err
	}
	defer src.close()

	loaderOpts := []loader.Option{
		loader.WithPageSize(cfg.Grid.PageSize),
		loader.WithSearchDebounce(cfg.Grid.SearchDebounce()),
	}
	switch {
	case opts.Sort != "":
		loaderOpts = append(loaderOpts, loader.WithDefaultSort(opts.Sort, opts.Desc))
	case cfg.Grid.DefaultOrderBy != "":
		if _, ok := src.schema.Lookup(cfg.Grid.DefaultOrderBy); ok {
			loaderOpts = append(loaderOpts, loader.WithDefaultSort(cfg.Grid.DefaultOrderBy, cfg.Grid.DefaultOrderDesc))
		} else {
			logger.Log.WithField("property", cfg.Grid.DefaultOrderBy).Warn("default sort property not in source, ignoring")
		}
	}

	l, err := loader.New(src.schema, loaderOpts...)
	if err != nil {
		return err
	}
	defer l.Close()

	if err := l.Bind(desc); err != nil {
		return err
	}
	if opts.Search != "" {
		l.SetQuery(opts.Search)
	}
	l.Initialize(src.source)

	rows, total, err := collect(ctx, virtual.New(l), cfg.Grid.PageSize, opts.Limit)
	if err != nil {
		return err
	}
	run.Rows, run.TotalCount = len(rows), total
	logger.Log.WithFields(logrus.Fields{
		"rows":  len(rows),
		"total": total,
	}).Info("query finished")

	if opts.Output != "" {
		err = export.WriteFile(opts.Output, format, src.schema, rows)
	} else {
		err = export.Write(stdout, format, src.schema, rows)
	}
	if err != nil {
		return err
	}

	if opts.SaveView != "" {
		_, err = mgr.Add(models.View{
			Name:       opts.SaveView,
			Provider:   cfg.Provider.Kind,
			Source:     opts.Source,
			Filters:    expressions(desc),
			Or:         opts.Or,
			OrderBy:    opts.Sort,
			Descending: opts.Desc,
			Search:     opts.Search,
		})
	}
	return err
}

// applyView fills options the command line left unset from a saved view
func applyView(opts *QueryOptions, v *models.View) {
	if opts.Provider == "" {
		opts.Provider = v.Provider
	}
	if opts.Source == "" {
		opts.Source = v.Source
	}
	if len(opts.Filters) == 0 {
		opts.Filters = v.Filters
		opts.Or = opts.Or || v.Or
	}
	if opts.Sort == "" {
		opts.Sort = v.OrderBy
		opts.Desc = opts.Desc || v.Descending
	}
	if opts.Search == "" {
		opts.Search = v.Search
	}
}

func expressions(d *models.FilterDescriptor) []string {
	exprs := make([]string, 0, d.Len())
	for _, f := range d.Filters() {
		exprs = append(exprs, filter.FormatExpression(f))
	}
	return exprs
}

func describeFilter(d *models.FilterDescriptor) string {
	return strings.Join(expressions(d), " "+d.Connector().String()+" ")
}

// recordRun appends the run to the query history. Failures only warn.
func recordRun(cfg *config.Config, run *history.HistoryEntry, err error) {
	if !cfg.State.History {
		return
	}
	run.Success = err == nil
	if err != nil {
		run.ErrorMessage = err.Error()
	}

	store, openErr := openHistory(cfg)
	if openErr != nil {
		logger.Log.WithError(openErr).Warn("failed to open query history")
		return
	}
	defer store.Close()
	if addErr := store.Add(*run); addErr != nil {
		logger.Log.WithError(addErr).Warn("failed to record query history")
	}
}

// collect pulls windows through the bridge until limit rows or the total is reached
func collect[R any](ctx context.Context, b *virtual.Bridge[R], pageSize, limit int) ([]R, int, error) {
	var (
		rows  []R
		total int
	)
	for {
		count := pageSize
		if limit > 0 {
			count = min(count, limit-len(rows))
		}
		if count <= 0 {
			return rows, total, nil
		}

		window, n, err := b.RequestWindow(ctx, len(rows), count)
		if err != nil {
			return nil, 0, err
		}
		total = n
		rows = append(rows, window...)
		if len(window) == 0 || len(rows) >= total {
			return rows, total, nil
		}
	}
}
