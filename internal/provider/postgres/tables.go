package postgres

import (
	"context"
	"fmt"

	"github.com/spf13/cast"

	"github.com/rebeliceyang/lazygrid/internal/models"
)

// ListTables returns the tables of every user schema with an estimated row count
func ListTables(ctx context.Context, pool *Pool) ([]models.TableInfo, error) {
	query := `
		SELECT
			t.schemaname AS schema,
			t.tablename AS name,
			COALESCE(c.reltuples, 0)::bigint AS estimate
		FROM pg_catalog.pg_tables t
		LEFT JOIN pg_catalog.pg_namespace n ON n.nspname = t.schemaname
		LEFT JOIN pg_catalog.pg_class c ON c.relnamespace = n.oid AND c.relname = t.tablename
		WHERE t.schemaname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY t.schemaname, t.tablename
	`

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	tables := make([]models.TableInfo, 0, len(rows))
	for _, row := range rows {
		tables = append(tables, models.TableInfo{
			Name:     cast.ToString(row["schema"]) + "." + cast.ToString(row["name"]),
			RowCount: max(cast.ToInt64(row["estimate"]), 0),
		})
	}
	return tables, nil
}

// Tables lists the tables the provider can serve
func (p *Provider) Tables(ctx context.Context) ([]models.TableInfo, error) {
	return ListTables(ctx, p.pool)
}
