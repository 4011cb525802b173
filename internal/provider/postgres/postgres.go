// Package postgres serves grid pages straight from a PostgreSQL table.
// The base URL of a request is the table name, optionally schema qualified.
package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rebeliceyang/lazygrid/internal/filter"
	"github.com/rebeliceyang/lazygrid/internal/logger"
	"github.com/rebeliceyang/lazygrid/internal/models"
	"github.com/rebeliceyang/lazygrid/internal/provider"
)

// Provider is a DataProvider over a pgx pool
type Provider struct {
	pool    *Pool
	builder *filter.Builder
	timeout time.Duration

	mu      sync.Mutex
	schemas map[string]*models.Schema[models.Record]
}

// New creates a provider on an open pool. A positive timeout bounds every page fetch.
func New(pool *Pool, timeout time.Duration) *Provider {
	return &Provider{
		pool:    pool,
		builder: filter.NewBuilder(filter.Postgres),
		timeout: timeout,
		schemas: make(map[string]*models.Schema[models.Record]),
	}
}

// Schema discovers the columns of table once and caches the result
func (p *Provider) Schema(ctx context.Context, table string) (*models.Schema[models.Record], error) {
	p.mu.Lock()
	s, ok := p.schemas[table]
	p.mu.Unlock()
	if ok {
		return s, nil
	}

	schemaName, tableName := SplitTable(table)
	columns, err := GetTableColumns(ctx, p.pool, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	s = models.NewRecordSchema(columns)

	p.mu.Lock()
	p.schemas[table] = s
	p.mu.Unlock()
	return s, nil
}

// FetchPage runs the count and page queries for table
func (p *Provider) FetchPage(ctx context.Context, table string, params models.RequestParameters) (*models.DataPageResult[models.Record], error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	schema, err := p.Schema(ctx, table)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := provider.FetchTablePage(ctx, p.pool, p.builder, qualified(table), schema, params)
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"table":    table,
		"rows":     len(result.Data),
		"total":    result.TotalCount,
		"duration": time.Since(start),
	}).Debug("postgres page fetched")
	return result, nil
}

// RowURL returns table/rowID
func (p *Provider) RowURL(table, rowID string) string {
	return provider.BuildRowURL(table, rowID)
}

// CollectionURL returns the table address with paging, sort and search
func (p *Provider) CollectionURL(table string, params models.RequestParameters) string {
	return provider.BuildCollectionURL(table, params)
}

func qualified(table string) string {
	s, t := SplitTable(table)
	return s + "." + t
}
