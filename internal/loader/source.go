package loader

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/rebeliceyang/lazygrid/internal/filter"
	"github.com/rebeliceyang/lazygrid/internal/models"
	"github.com/rebeliceyang/lazygrid/internal/provider"
)

// Source produces pages for a loader
type Source[R any] interface {
	Fetch(ctx context.Context, schema *models.Schema[R], params models.RequestParameters) (*models.DataPageResult[R], error)
}

// Local serves pages from an in-memory row set
func Local[R any](rows []R) Source[R] {
	return &localSource[R]{rows: append([]R(nil), rows...)}
}

// Remote serves pages from a DataProvider
func Remote[R any](p provider.DataProvider[R], baseURL string) Source[R] {
	return &remoteSource[R]{provider: p, baseURL: baseURL}
}

type localSource[R any] struct {
	rows []R
}

// Fetch filters, searches, sorts and slices the in-memory rows
func (s *localSource[R]) Fetch(ctx context.Context, schema *models.Schema[R], params models.RequestParameters) (*models.DataPageResult[R], error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	compiled, err := filter.Compile(params.Filter, schema)
	if err != nil {
		return nil, err
	}
	rows := compiled.Apply(s.rows)

	if params.SearchQuery != "" {
		rows = searchRows(rows, schema, params.SearchQuery)
	}

	if params.OrderBy != "" {
		if err := sortRows(rows, schema, params.OrderBy, params.OrderByDescending); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := len(rows)
	start := min(params.Offset, total)
	end := min(params.Offset+params.Length, total)

	return &models.DataPageResult[R]{
		Data:       append([]R(nil), rows[start:end]...),
		TotalCount: total,
	}, nil
}

// searchRows keeps rows where any String property contains the text, ignoring case
func searchRows[R any](rows []R, schema *models.Schema[R], text string) []R {
	needle := strings.ToLower(text)

	var getters []func(R) any
	for _, p := range schema.Properties() {
		if filter.ClassifyType(p.Declared) == models.TypeString {
			getters = append(getters, p.Get)
		}
	}

	out := rows[:0]
	for _, row := range rows {
		for _, get := range getters {
			v, _ := filter.StringValue(get(row))
			if strings.Contains(strings.ToLower(v), needle) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// sortRows sorts stably by the resolved property type; nulls sort first ascending
func sortRows[R any](rows []R, schema *models.Schema[R], property string, descending bool) error {
	typ, err := filter.Resolve(schema, property)
	if err != nil {
		return err
	}
	prop, _ := schema.Lookup(property)

	var compare func(a, b any) int
	switch typ {
	case models.TypeInteger:
		compare = filter.CompareIntegers
	case models.TypeDecimal:
		compare = nullsFirst(filter.DecimalValue)
	default:
		compare = nullsFirst(filter.StringValue)
	}

	slices.SortStableFunc(rows, func(a, b R) int {
		c := compare(prop.Get(a), prop.Get(b))
		if descending {
			return -c
		}
		return c
	})
	return nil
}

func nullsFirst[T cmp.Ordered](value func(any) (T, bool)) func(a, b any) int {
	return func(a, b any) int {
		va, okA := value(a)
		vb, okB := value(b)
		switch {
		case !okA && !okB:
			return 0
		case !okA:
			return -1
		case !okB:
			return 1
		default:
			return cmp.Compare(va, vb)
		}
	}
}

type remoteSource[R any] struct {
	provider provider.DataProvider[R]
	baseURL  string
}

func (s *remoteSource[R]) Fetch(ctx context.Context, _ *models.Schema[R], params models.RequestParameters) (*models.DataPageResult[R], error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	result, err := s.provider.FetchPage(ctx, s.baseURL, params)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return &models.DataPageResult[R]{}, nil
	}
	return result, nil
}

// rowURL resolves a row address when the source is remote
func (s *remoteSource[R]) rowURL(rowID string) string {
	return s.provider.RowURL(s.baseURL, rowID)
}
