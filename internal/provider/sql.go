package provider

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rebeliceyang/lazygrid/internal/filter"
	"github.com/rebeliceyang/lazygrid/internal/models"
)

// Querier runs the statements a SQL backed provider needs
type Querier interface {
	QueryCount(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) ([]models.Record, error)
}

// FetchTablePage runs the count and page queries for a table concurrently
func FetchTablePage(ctx context.Context, q Querier, b *filter.Builder, table string, schema *models.Schema[models.Record], params models.RequestParameters) (*models.DataPageResult[models.Record], error) {
	countQuery, err := b.BuildCount(table, params, schema)
	if err != nil {
		return nil, err
	}
	pageQuery, err := b.BuildPage(table, params, schema)
	if err != nil {
		return nil, err
	}

	var (
		total int64
		rows  []models.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := q.QueryCount(gctx, countQuery.SQL, countQuery.Args...)
		if err != nil {
			return fmt.Errorf("failed to count rows: %w", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		r, err := q.Query(gctx, pageQuery.SQL, pageQuery.Args...)
		if err != nil {
			return fmt.Errorf("failed to query page: %w", err)
		}
		rows = r
		return nil
	})

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("page query aborted: %w", ctxErr)
		}
		return nil, err
	}

	if rows == nil {
		rows = []models.Record{}
	}
	return &models.DataPageResult[models.Record]{Data: rows, TotalCount: int(total)}, nil
}
