package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rebeliceyang/lazygrid/internal/models"
	"github.com/rebeliceyang/lazygrid/internal/provider/rest"
)

type URLOptions struct {
	Offset int
	Length int
	Sort   string
	Desc   bool
	Search string
}

func NewURLCommand(global *GlobalOptions) *cobra.Command {
	opts := &URLOptions{}

	cmd := &cobra.Command{
		Use:   "url <base-url> [row-id]",
		Short: "Print the page or row address a REST grid requests",
		Example: `  lazygrid url https://api.example.com/users --offset 25 --sort name --desc
  lazygrid url https://api.example.com/users 42`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runURL(global, opts, args, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.Offset, "offset", 0, "Index of the first row")
	flags.IntVar(&opts.Length, "length", 0, "Number of rows (default page size from config)")
	flags.StringVar(&opts.Sort, "sort", "", "Property to sort by")
	flags.BoolVar(&opts.Desc, "desc", false, "Sort descending")
	flags.StringVar(&opts.Search, "search", "", "Search text")

	return cmd
}

func runURL(global *GlobalOptions, opts *URLOptions, args []string, stdout io.Writer) error {
	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}

	p := rest.New[models.Record](rest.Options{Timeout: cfg.Provider.Timeout()})
	if len(args) == 2 {
		_, err := fmt.Fprintln(stdout, p.RowURL(args[0], args[1]))
		return err
	}

	length := opts.Length
	if length <= 0 {
		length = cfg.Grid.PageSize
	}
	params := models.RequestParameters{
		Offset:            opts.Offset,
		Length:            length,
		OrderBy:           opts.Sort,
		OrderByDescending: opts.Desc,
		SearchQuery:       opts.Search,
	}
	if err := params.Validate(); err != nil {
		return err
	}

	_, err = fmt.Fprintln(stdout, p.CollectionURL(args[0], params))
	return err
}
