// Package rest fetches grid pages from a JSON paging endpoint.
//
// A page request is a GET on the collection URL with offset, length, orderBy,
// desc and search query parameters. A bound filter travels as JSON in the
// filter parameter. The response body is {"data": [...], "totalCount": n}.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rebeliceyang/lazygrid/internal/logger"
	"github.com/rebeliceyang/lazygrid/internal/models"
	"github.com/rebeliceyang/lazygrid/internal/provider"
)

// maxErrorBody bounds how much of a failed response is kept in StatusError
const maxErrorBody = 512

// Options configures a Provider
type Options struct {
	Timeout time.Duration
	Header  http.Header
	Client  *http.Client
}

// Provider is a DataProvider over HTTP
type Provider[R any] struct {
	client *http.Client
	header http.Header
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("GET %s: %d %s: %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// New creates a REST provider
func New[R any](opts Options) *Provider[R] {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Provider[R]{
		client: client,
		header: opts.Header.Clone(),
	}
}

// FetchPage requests one page and decodes the result
func (p *Provider[R]) FetchPage(ctx context.Context, baseURL string, params models.RequestParameters) (*models.DataPageResult[R], error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	target, err := p.pageURL(baseURL, params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range p.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	log := logger.Log.WithFields(logrus.Fields{
		"url":    target,
		"offset": params.Offset,
		"length": params.Length,
	})
	start := time.Now()

	resp, err := p.client.Do(req)
	if err != nil {
		// *url.Error unwraps to the context error on cancellation
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.WithField("status", resp.StatusCode).Warn("page request failed")
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var result models.DataPageResult[R]
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("failed to read page: %w", ctxErr)
		}
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}
	if result.TotalCount < len(result.Data) {
		return nil, fmt.Errorf("invalid page: totalCount %d is less than the %d rows returned", result.TotalCount, len(result.Data))
	}

	log.WithFields(logrus.Fields{
		"rows":     len(result.Data),
		"total":    result.TotalCount,
		"duration": time.Since(start),
	}).Debug("page fetched")

	return &result, nil
}

// RowURL returns base/rowID
func (p *Provider[R]) RowURL(baseURL, rowID string) string {
	return provider.BuildRowURL(baseURL, rowID)
}

// CollectionURL returns the page address without the filter
func (p *Provider[R]) CollectionURL(baseURL string, params models.RequestParameters) string {
	return provider.BuildCollectionURL(baseURL, params)
}

func (p *Provider[R]) pageURL(baseURL string, params models.RequestParameters) (string, error) {
	target := p.CollectionURL(baseURL, params)
	if !params.HasFilter() {
		return target, nil
	}

	encoded, err := EncodeFilter(params.Filter)
	if err != nil {
		return "", err
	}
	return target + "&" + provider.ParamFilter + "=" + url.QueryEscape(encoded), nil
}

type wireFilter struct {
	Property string `json:"property"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type wireDescriptor struct {
	Connector string       `json:"connector"`
	Filters   []wireFilter `json:"filters"`
}

// EncodeFilter serializes a descriptor as
// {"connector":"AND","filters":[{"property":..,"operator":"GreaterThan","value":..}]}
func EncodeFilter(desc *models.FilterDescriptor) (string, error) {
	w := wireDescriptor{Connector: desc.Connector().String()}
	for _, f := range desc.Filters() {
		w.Filters = append(w.Filters, wireFilter{
			Property: f.Property,
			Operator: f.Operator.String(),
			Value:    f.Value,
		})
	}

	b, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("failed to encode filter: %w", err)
	}
	return string(b), nil
}

// DecodeFilter parses the output of EncodeFilter
func DecodeFilter(s string) (*models.FilterDescriptor, error) {
	var w wireDescriptor
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return nil, fmt.Errorf("failed to decode filter: %w", err)
	}

	var connector models.FilterConnector
	switch strings.ToUpper(w.Connector) {
	case "", "AND":
		connector = models.And
	case "OR":
		connector = models.Or
	default:
		return nil, fmt.Errorf("unknown filter connector: %s", w.Connector)
	}

	filters := make([]models.PropertyFilter, 0, len(w.Filters))
	for _, f := range w.Filters {
		op, err := models.ParseFilterOperator(f.Operator)
		if err != nil {
			return nil, err
		}
		filters = append(filters, models.PropertyFilter{Property: f.Property, Operator: op, Value: f.Value})
	}
	return models.NewFilterDescriptor(connector, filters...), nil
}
