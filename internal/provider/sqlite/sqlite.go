// Package sqlite serves grid pages from a SQLite table. The base URL of a
// request is the table name.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/rebeliceyang/lazygrid/internal/filter"
	"github.com/rebeliceyang/lazygrid/internal/logger"
	"github.com/rebeliceyang/lazygrid/internal/models"
	"github.com/rebeliceyang/lazygrid/internal/provider"
)

// Provider is a DataProvider over a SQLite database
type Provider struct {
	db      *sql.DB
	builder *filter.Builder
	timeout time.Duration

	mu      sync.Mutex
	schemas map[string]*models.Schema[models.Record]
}

// Open opens the database at dsn
func Open(dsn string, timeout time.Duration) (*Provider, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second connection to :memory: would be a different database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return New(db, timeout), nil
}

// New creates a provider on an open database
func New(db *sql.DB, timeout time.Duration) *Provider {
	return &Provider{
		db:      db,
		builder: filter.NewBuilder(filter.SQLite),
		timeout: timeout,
		schemas: make(map[string]*models.Schema[models.Record]),
	}
}

// DB returns the underlying database
func (p *Provider) DB() *sql.DB {
	return p.db
}

// Close closes the database
func (p *Provider) Close() error {
	return p.db.Close()
}

// Columns reads column metadata with PRAGMA table_info
func (p *Provider) Columns(ctx context.Context, table string) ([]models.ColumnInfo, error) {
	rows, err := p.db.QueryContext(ctx, "PRAGMA table_info("+filter.QuoteIdent(table)+")")
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	defer rows.Close()

	var columns []models.ColumnInfo
	for rows.Next() {
		var (
			cid       int
			name      string
			declared  string
			notNull   bool
			defaultV  sql.NullString
			pkOrdinal int
		)
		if err := rows.Scan(&cid, &name, &declared, &notNull, &defaultV, &pkOrdinal); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, models.ColumnInfo{
			Name:       name,
			DataType:   declared,
			Nullable:   !notNull && pkOrdinal == 0,
			PrimaryKey: pkOrdinal > 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return columns, nil
}

// Tables lists the user tables with their row counts
func (p *Provider) Tables(ctx context.Context) ([]models.TableInfo, error) {
	rows, err := p.Query(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	tables := make([]models.TableInfo, 0, len(rows))
	for _, row := range rows {
		name, _ := row["name"].(string)
		n, err := p.QueryCount(ctx, "SELECT COUNT(*) FROM "+filter.QuoteIdent(name))
		if err != nil {
			return nil, fmt.Errorf("failed to count rows of %s: %w", name, err)
		}
		tables = append(tables, models.TableInfo{Name: name, RowCount: n})
	}
	return tables, nil
}

// Schema discovers the columns of table once and caches the result
func (p *Provider) Schema(ctx context.Context, table string) (*models.Schema[models.Record], error) {
	p.mu.Lock()
	s, ok := p.schemas[table]
	p.mu.Unlock()
	if ok {
		return s, nil
	}

	columns, err := p.Columns(ctx, table)
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
	result, err := provider.FetchTablePage(ctx, p, p.builder, table, schema, params)
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"table":    table,
		"rows":     len(result.Data),
		"total":    result.TotalCount,
		"duration": time.Since(start),
	}).Debug("sqlite page fetched")
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

// QueryCount executes a query returning a single count
func (p *Provider) QueryCount(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Query executes a query and returns one record per row
func (p *Provider) Query(ctx context.Context, query string, args ...any) ([]models.Record, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []models.Record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(models.Record, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
