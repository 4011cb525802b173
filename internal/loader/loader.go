// Package loader coordinates paged fetching for a grid: sorting, debounced
// search, filter changes and incremental growth of the row window.
//
// Every reload takes a new request token. A fetch commits its result only if
// its token is still current, so a superseded fetch resolves without effect.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rebeliceyang/lazygrid/internal/filter"
	"github.com/rebeliceyang/lazygrid/internal/logger"
	"github.com/rebeliceyang/lazygrid/internal/models"
)

const (
	DefaultPageSize       = 25
	DefaultSearchDebounce = 400 * time.Millisecond
)

// Option configures a Loader
type Option func(*options)

type options struct {
	pageSize    int
	debounce    time.Duration
	defaultSort string
	defaultDesc bool
	onChange    func()
	log         *logrus.Logger
}

// WithPageSize sets the number of rows fetched per page
func WithPageSize(n int) Option {
	return func(o *options) { o.pageSize = n }
}

// WithSearchDebounce sets the quiet period before search text is committed
func WithSearchDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

// WithDefaultSort sets the sort applied when the loader is initialized
func WithDefaultSort(property string, descending bool) Option {
	return func(o *options) {
		o.defaultSort = property
		o.defaultDesc = descending
	}
}

// WithOnChange registers a callback run after every state change
func WithOnChange(fn func()) Option {
	return func(o *options) { o.onChange = fn }
}

// WithLogger overrides the global logger
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.log = l }
}

// Snapshot is a consistent copy of the loader state
type Snapshot[R any] struct {
	State             models.LoaderState
	Rows              []R
	TotalCount        int
	Err               error
	Loaded            bool // a reload has committed since the last reset
	OrderBy           string
	OrderByDescending bool
	SearchInput       string // latest text passed to SetSearch
	Search            string // committed search text
}

// HasMore reports whether rows beyond the window exist
func (s Snapshot[R]) HasMore() bool {
	return s.Loaded && len(s.Rows) < s.TotalCount
}

type fetch struct {
	token  uint64
	append bool
	offset int
	length int
	cancel context.CancelFunc
	done   chan struct{}
}

// Loader is the paged data loader of one grid instance
type Loader[R any] struct {
	id     string
	schema *models.Schema[R]
	opts   options
	log    *logrus.Entry
	search *Debouncer

	mu          sync.Mutex
	source      Source[R]
	state       models.LoaderState
	rows        []R
	total       int
	err         error
	loaded      bool
	orderBy     string
	desc        bool
	searchInput string
	searchValue string
	filter      *models.FilterDescriptor
	unsubscribe func()
	token       uint64
	inflight    *fetch
	closed      bool
}

// New creates a loader for rows described by schema
func New[R any](schema *models.Schema[R], opts ...Option) (*Loader[R], error) {
	o := options{
		pageSize: DefaultPageSize,
		debounce: DefaultSearchDebounce,
		log:      logger.Log,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if schema == nil {
		return nil, errors.New("loader requires a row schema")
	}
	if o.pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", o.pageSize)
	}
	if o.defaultSort != "" {
		if _, ok := schema.Lookup(o.defaultSort); !ok {
			return nil, &models.UnknownPropertyError{Property: o.defaultSort}
		}
	}

	id := uuid.NewString()
	return &Loader[R]{
		id:     id,
		schema: schema,
		opts:   o,
		log:    o.log.WithField("grid", id),
		search: NewDebouncer(o.debounce),
	}, nil
}

// ID identifies the grid instance in logs
func (l *Loader[R]) ID() string {
	return l.id
}

// Schema returns the row schema
func (l *Loader[R]) Schema() *models.Schema[R] {
	return l.schema
}

// PageSize returns the configured page size
func (l *Loader[R]) PageSize() int {
	return l.opts.pageSize
}

// Initialize sets the data source and reloads
func (l *Loader[R]) Initialize(src Source[R]) <-chan struct{} {
	l.mu.Lock()
	l.source = src
	if l.orderBy == "" && l.opts.defaultSort != "" {
		l.orderBy = l.opts.defaultSort
		l.desc = l.opts.defaultDesc
	}
	done := l.reloadLocked(context.Background())
	l.mu.Unlock()

	l.emit()
	return done
}

// Reload clears the window and fetches the first page
func (l *Loader[R]) Reload() <-chan struct{} {
	return l.ReloadContext(context.Background())
}

// ReloadContext is Reload with a caller-controlled context for the fetch
func (l *Loader[R]) ReloadContext(ctx context.Context) <-chan struct{} {
	l.mu.Lock()
	done := l.reloadLocked(ctx)
	l.mu.Unlock()

	l.emit()
	return done
}

// LoadMore appends the next page. It is a no-op while a fetch is running.
func (l *Loader[R]) LoadMore() <-chan struct{} {
	return l.LoadMoreContext(context.Background(), l.opts.pageSize)
}

// LoadMoreContext appends up to length rows after the current window
func (l *Loader[R]) LoadMoreContext(ctx context.Context, length int) <-chan struct{} {
	if length <= 0 {
		length = l.opts.pageSize
	}

	l.mu.Lock()
	if l.closed || l.source == nil || l.state == models.StateLoading {
		l.mu.Unlock()
		return closedChan()
	}
	l.state = models.StateLoading
	l.err = nil
	done := l.startLocked(ctx, len(l.rows), length, true)
	l.mu.Unlock()

	l.emit()
	return done
}

// SetSort sorts by property, toggling the direction when it is already the sort key
func (l *Loader[R]) SetSort(property string) (<-chan struct{}, error) {
	if _, ok := l.schema.Lookup(property); !ok {
		return closedChan(), &models.UnknownPropertyError{Property: property}
	}

	l.mu.Lock()
	if l.orderBy == property {
		l.desc = !l.desc
	} else {
		l.orderBy = property
		l.desc = false
	}
	done := l.reloadLocked(context.Background())
	l.mu.Unlock()

	l.emit()
	return done, nil
}

// SetSearch records text for display and commits it after the quiet period
func (l *Loader[R]) SetSearch(text string) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.searchInput = text
	committed := l.searchValue
	l.mu.Unlock()

	if text == committed {
		l.search.Cancel()
		return
	}
	if l.opts.debounce <= 0 {
		l.commitSearch(text)
		return
	}
	l.search.Trigger(func() { l.commitSearch(text) })
}

// SetQuery commits search text immediately, bypassing the debounce
func (l *Loader[R]) SetQuery(text string) <-chan struct{} {
	l.search.Cancel()

	l.mu.Lock()
	l.searchInput = text
	l.mu.Unlock()

	return l.commitSearch(text)
}

func (l *Loader[R]) commitSearch(text string) <-chan struct{} {
	l.mu.Lock()
	if l.closed || text == l.searchValue {
		l.mu.Unlock()
		return closedChan()
	}
	l.searchValue = text
	l.log.WithField("search", text).Debug("search committed")
	done := l.reloadLocked(context.Background())
	l.mu.Unlock()

	l.emit()
	return done
}

// Bind attaches the filter descriptor of the grid. Every later change to it reloads.
// Unknown properties and unsupported operators are reported before any fetch.
func (l *Loader[R]) Bind(desc *models.FilterDescriptor) error {
	if desc == nil {
		return errors.New("cannot bind a nil filter descriptor")
	}
	if err := filter.Validate(desc, l.schema); err != nil {
		return err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errors.New("loader is closed")
	}
	if l.unsubscribe != nil {
		l.unsubscribe()
	}
	l.filter = desc
	l.unsubscribe = desc.Subscribe(func(models.FilterChange) { l.onFilterChanged() })
	initialized := l.source != nil
	l.mu.Unlock()

	if initialized {
		l.Reload()
	}
	return nil
}

// Filter returns the bound descriptor
func (l *Loader[R]) Filter() *models.FilterDescriptor {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

func (l *Loader[R]) onFilterChanged() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}

	if err := filter.Validate(l.filter, l.schema); err != nil {
		// Structural error: no fetch, and nothing stale stays visible
		l.token++
		if l.inflight != nil {
			l.inflight.cancel()
			l.inflight = nil
		}
		l.rows = nil
		l.total = 0
		l.loaded = false
		l.err = err
		l.state = models.StateError
		l.log.WithError(err).Warn("filter rejected")
		l.mu.Unlock()
		l.emit()
		return
	}

	l.reloadLocked(context.Background())
	l.mu.Unlock()
	l.emit()
}

// Close detaches from the filter, stops the debounce timer and drops any fetch in flight
func (l *Loader[R]) Close() {
	l.search.Cancel()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
	l.token++
	if l.inflight != nil {
		l.inflight.cancel()
		l.inflight = nil
	}
}

// Snapshot returns a copy of the current state
func (l *Loader[R]) Snapshot() Snapshot[R] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot[R]{
		State:             l.state,
		Rows:              append([]R(nil), l.rows...),
		TotalCount:        l.total,
		Err:               l.err,
		Loaded:            l.loaded,
		OrderBy:           l.orderBy,
		OrderByDescending: l.desc,
		SearchInput:       l.searchInput,
		Search:            l.searchValue,
	}
}

// State returns the current loader state
func (l *Loader[R]) State() models.LoaderState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Pending returns a channel closed when the fetch in flight finishes
func (l *Loader[R]) Pending() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inflight == nil {
		return closedChan()
	}
	return l.inflight.done
}

// IsSortedBy reports whether property is the current sort key
func (l *Loader[R]) IsSortedBy(property string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.orderBy != "" && l.orderBy == property
}

// IsFilteredBy reports whether any bound filter references property
func (l *Loader[R]) IsFilteredBy(property string) bool {
	l.mu.Lock()
	desc := l.filter
	l.mu.Unlock()
	return desc != nil && desc.HasProperty(property)
}

// RowURL returns the address of a row when the source is remote
func (l *Loader[R]) RowURL(rowID string) (string, bool) {
	l.mu.Lock()
	src := l.source
	l.mu.Unlock()

	remote, ok := src.(*remoteSource[R])
	if !ok {
		return "", false
	}
	return remote.rowURL(rowID), true
}

func (l *Loader[R]) reloadLocked(ctx context.Context) <-chan struct{} {
	if l.closed || l.source == nil {
		return closedChan()
	}

	l.token++
	if l.inflight != nil {
		l.inflight.cancel()
	}
	l.rows = nil
	l.total = 0
	l.loaded = false
	l.err = nil
	l.state = models.StateLoading
	return l.startLocked(ctx, 0, l.opts.pageSize, false)
}

func (l *Loader[R]) startLocked(ctx context.Context, offset, length int, appendRows bool) <-chan struct{} {
	params := models.RequestParameters{
		Offset:            offset,
		Length:            length,
		OrderBy:           l.orderBy,
		OrderByDescending: l.desc,
		SearchQuery:       l.searchValue,
		Filter:            l.filter.Snapshot(),
	}

	fctx, cancel := context.WithCancel(ctx)
	f := &fetch{
		token:  l.token,
		append: appendRows,
		offset: offset,
		length: length,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	l.inflight = f

	go l.run(fctx, f, l.source, params)
	return f.done
}

func (l *Loader[R]) run(ctx context.Context, f *fetch, src Source[R], params models.RequestParameters) {
	defer close(f.done)

	entry := l.log.WithFields(logrus.Fields{
		"token":  f.token,
		"offset": params.Offset,
		"length": params.Length,
	})
	entry.Debug("fetch started")

	start := time.Now()
	result, err := src.Fetch(ctx, l.schema, params)
	elapsed := time.Since(start)

	l.mu.Lock()
	committed := l.completeLocked(ctx, f, result, err, entry.WithField("duration", elapsed))
	l.mu.Unlock()

	if committed {
		l.emit()
	}
}

// completeLocked applies a finished fetch if its token is still current
func (l *Loader[R]) completeLocked(ctx context.Context, f *fetch, result *models.DataPageResult[R], err error, entry *logrus.Entry) bool {
	cancelled := ctx.Err() != nil
	f.cancel()
	if l.inflight == f {
		l.inflight = nil
	}

	if l.closed || f.token != l.token {
		entry.Debug("discarding superseded fetch")
		return false
	}

	if err != nil && cancelled && errors.Is(err, ctx.Err()) {
		// Cancelled by the caller: nothing is applied and no error is shown
		entry.Debug("fetch cancelled")
		l.state = models.StateIdle
		return true
	}

	if err != nil {
		l.err = &models.FetchError{Offset: f.offset, Length: f.length, Err: err}
		l.state = models.StateError
		if !f.append {
			l.rows = nil
			l.total = 0
			l.loaded = false
		}
		entry.WithError(err).Warn("fetch failed")
		return true
	}

	if f.append {
		l.rows = append(l.rows, result.Data...)
	} else {
		l.rows = append([]R(nil), result.Data...)
	}
	l.loaded = true
	l.total = result.TotalCount
	l.state = models.StateIdle
	entry.WithFields(logrus.Fields{
		"rows":  len(result.Data),
		"total": result.TotalCount,
	}).Debug("fetch committed")
	return true
}

func (l *Loader[R]) emit() {
	if l.opts.onChange != nil {
		l.opts.onChange()
	}
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
