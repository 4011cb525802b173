package filter

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/rebeliceyang/lazygrid/internal/models"
)

// Dialect selects placeholder syntax
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// Query is a SQL statement with positional arguments
type Query struct {
	SQL  string
	Args []any
}

// Builder generates SQL from request parameters over a record schema.
// Operator semantics match Compile so local and remote grids filter alike.
type Builder struct {
	dialect Dialect
}

// NewBuilder creates a new filter builder
func NewBuilder(dialect Dialect) *Builder {
	return &Builder{dialect: dialect}
}

// args collects arguments and hands out placeholders
type args struct {
	dialect Dialect
	values  []any
}

func (a *args) add(v any) string {
	a.values = append(a.values, v)
	if a.dialect == Postgres {
		return fmt.Sprintf("$%d", len(a.values))
	}
	return "?"
}

// BuildWhere generates a WHERE clause from the filter and search of a request
func (b *Builder) BuildWhere(params models.RequestParameters, schema *models.Schema[models.Record]) (string, []any, error) {
	a := &args{dialect: b.dialect}
	clause, err := b.where(params, schema, a)
	if err != nil {
		return "", nil, err
	}
	return clause, a.values, nil
}

// BuildCount generates the COUNT query for the filtered set
func (b *Builder) BuildCount(table string, params models.RequestParameters, schema *models.Schema[models.Record]) (Query, error) {
	a := &args{dialect: b.dialect}
	where, err := b.where(params, schema, a)
	if err != nil {
		return Query{}, err
	}

	sql := "SELECT COUNT(*) AS count FROM " + QuoteTable(table)
	if where != "" {
		sql += " " + where
	}
	return Query{SQL: sql, Args: a.values}, nil
}

// BuildPage generates the SELECT for one page of the filtered, sorted set
func (b *Builder) BuildPage(table string, params models.RequestParameters, schema *models.Schema[models.Record]) (Query, error) {
	if err := params.Validate(); err != nil {
		return Query{}, err
	}

	a := &args{dialect: b.dialect}
	where, err := b.where(params, schema, a)
	if err != nil {
		return Query{}, err
	}

	names := schema.Names()
	columns := "*"
	if len(names) > 0 {
		quoted := make([]string, len(names))
		for i, n := range names {
			quoted[i] = QuoteIdent(n)
		}
		columns = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + columns + " FROM " + QuoteTable(table))
	if where != "" {
		sb.WriteString(" " + where)
	}

	if params.OrderBy != "" {
		if _, ok := schema.Lookup(params.OrderBy); !ok {
			return Query{}, &models.UnknownPropertyError{Property: params.OrderBy}
		}
		// nulls sort first ascending, like the in-memory sort
		if params.OrderByDescending {
			sb.WriteString(" ORDER BY " + QuoteIdent(params.OrderBy) + " DESC NULLS LAST")
		} else {
			sb.WriteString(" ORDER BY " + QuoteIdent(params.OrderBy) + " ASC NULLS FIRST")
		}
	}

	sb.WriteString(" LIMIT " + a.add(params.Length))
	sb.WriteString(" OFFSET " + a.add(params.Offset))

	return Query{SQL: sb.String(), Args: a.values}, nil
}

func (b *Builder) where(params models.RequestParameters, schema *models.Schema[models.Record], a *args) (string, error) {
	var parts []string

	if params.Filter != nil {
		clause, err := b.buildGroup(params.Filter, schema, a)
		if err != nil {
			return "", err
		}
		if clause != "" {
			parts = append(parts, "("+clause+")")
		}
	}

	if params.SearchQuery != "" {
		parts = append(parts, "("+b.buildSearch(params.SearchQuery, schema, a)+")")
	}

	if len(parts) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(parts, " AND "), nil
}

// buildGroup joins every condition of the descriptor with its connector
func (b *Builder) buildGroup(desc *models.FilterDescriptor, schema *models.Schema[models.Record], a *args) (string, error) {
	filters := desc.Filters()
	if len(filters) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(filters))
	for _, f := range filters {
		clause, err := b.buildCondition(f, schema, a)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, "("+clause+")")
	}

	return strings.Join(clauses, " "+desc.Connector().String()+" "), nil
}

// buildCondition builds a single filter condition
func (b *Builder) buildCondition(f models.PropertyFilter, schema *models.Schema[models.Record], a *args) (string, error) {
	typ, err := checkFilter(f, schema)
	if err != nil {
		return "", err
	}
	column := QuoteIdent(f.Property)

	var value any = f.Value
	switch typ {
	case models.TypeInteger:
		n, err := ParseInteger(f.Value)
		if err != nil {
			return "1 = 0", nil
		}
		value = n
	case models.TypeDecimal:
		n, err := ParseDecimal(f.Value)
		if err != nil {
			return "1 = 0", nil
		}
		value = n
	}

	switch f.Operator {
	case models.Equals:
		return fmt.Sprintf("%s = %s", column, a.add(value)), nil
	case models.NotEquals:
		return fmt.Sprintf("%s IS NULL OR %s <> %s", column, column, a.add(value)), nil
	case models.GreaterThan:
		return fmt.Sprintf("%s > %s", column, a.add(value)), nil
	case models.GreaterThanOrEqualTo:
		return fmt.Sprintf("%s >= %s", column, a.add(value)), nil
	case models.LessThan:
		return fmt.Sprintf("%s < %s", column, a.add(value)), nil
	case models.LessThanOrEqualTo:
		return fmt.Sprintf("%s <= %s", column, a.add(value)), nil
	case models.Contains:
		return likeClause(column, "LIKE", "%"+escapeLike(f.Value)+"%", a), nil
	case models.DoesNotContain:
		return likeClause(column, "NOT LIKE", "%"+escapeLike(f.Value)+"%", a), nil
	case models.StartsWith:
		return likeClause(column, "LIKE", escapeLike(f.Value)+"%", a), nil
	case models.EndsWith:
		return likeClause(column, "LIKE", "%"+escapeLike(f.Value), a), nil
	default:
		return "", fmt.Errorf("unsupported operator: %s", f.Operator)
	}
}

// buildSearch matches the search text against every String column. A table
// without String columns matches nothing.
func (b *Builder) buildSearch(search string, schema *models.Schema[models.Record], a *args) string {
	pattern := "%" + escapeLike(search) + "%"
	var clauses []string
	for _, p := range schema.Properties() {
		if ClassifyType(p.Declared) != models.TypeString {
			continue
		}
		clauses = append(clauses, likeClause(QuoteIdent(p.Name), "LIKE", pattern, a))
	}
	if len(clauses) == 0 {
		return "1 = 0"
	}
	return strings.Join(clauses, " OR ")
}

// likeClause is case-insensitive and treats NULL as the empty string
func likeClause(column, op, pattern string, a *args) string {
	return fmt.Sprintf(`LOWER(COALESCE(CAST(%s AS TEXT), '')) %s %s ESCAPE '\'`, column, op, a.add(strings.ToLower(pattern)))
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// QuoteIdent quotes a column name
func QuoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// QuoteTable quotes a possibly schema-qualified table name
func QuoteTable(table string) string {
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}
