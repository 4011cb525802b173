package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/rebeliceyang/lazygrid/internal/models"
)

const defaultSchema = "public"

// SplitTable splits "schema.table" and defaults the schema to public
func SplitTable(name string) (schema, table string) {
	if s, t, ok := strings.Cut(name, "."); ok {
		return s, t
	}
	return defaultSchema, name
}

// GetTableColumns retrieves column metadata for a table
func GetTableColumns(ctx context.Context, pool *Pool, schema, table string) ([]models.ColumnInfo, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' AS nullable,
			EXISTS (
				SELECT 1
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON kcu.constraint_name = tc.constraint_name
					AND kcu.table_schema = tc.table_schema
					AND kcu.table_name = tc.table_name
				WHERE tc.constraint_type = 'PRIMARY KEY'
					AND tc.table_schema = c.table_schema
					AND tc.table_name = c.table_name
					AND kcu.column_name = c.column_name
			) AS primary_key
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := pool.Query(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("table %s.%s not found or has no columns", schema, table)
	}

	columns := make([]models.ColumnInfo, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, models.ColumnInfo{
			Name:       cast.ToString(row["column_name"]),
			DataType:   cast.ToString(row["data_type"]),
			Nullable:   cast.ToBool(row["nullable"]),
			PrimaryKey: cast.ToBool(row["primary_key"]),
		})
	}

	return columns, nil
}
