// Package provider defines the capability a grid uses to fetch remote pages.
package provider

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rebeliceyang/lazygrid/internal/models"
)

// DataProvider fetches pages of rows from a remote source.
// Implementations own transport concerns; FetchPage must abort when ctx is
// cancelled and return an error wrapping ctx.Err().
type DataProvider[R any] interface {
	// FetchPage returns the rows in [Offset, Offset+Length) of the filtered,
	// searched and sorted set, plus the size of that set.
	FetchPage(ctx context.Context, baseURL string, params models.RequestParameters) (*models.DataPageResult[R], error)

	// RowURL returns the address of a single row.
	RowURL(baseURL, rowID string) string

	// CollectionURL returns the address of a page; the filter is not part of it.
	CollectionURL(baseURL string, params models.RequestParameters) string
}

// Query string keys used by BuildCollectionURL
const (
	ParamOffset     = "offset"
	ParamLength     = "length"
	ParamOrderBy    = "orderBy"
	ParamDescending = "desc"
	ParamSearch     = "search"
	ParamFilter     = "filter"
)

// BuildRowURL appends an escaped row id to the base URL
func BuildRowURL(baseURL, rowID string) string {
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(rowID)
}

// BuildCollectionURL encodes paging, sort and search into the query string,
// keeping any query the base URL already carries
func BuildCollectionURL(baseURL string, params models.RequestParameters) string {
	base, query, _ := strings.Cut(baseURL, "?")
	values, err := url.ParseQuery(query)
	if err != nil {
		values = url.Values{}
	}

	values.Set(ParamOffset, strconv.Itoa(params.Offset))
	values.Set(ParamLength, strconv.Itoa(params.Length))
	if params.OrderBy != "" {
		values.Set(ParamOrderBy, params.OrderBy)
		if params.OrderByDescending {
			values.Set(ParamDescending, "true")
		}
	}
	if params.SearchQuery != "" {
		values.Set(ParamSearch, params.SearchQuery)
	}

	return base + "?" + values.Encode()
}
