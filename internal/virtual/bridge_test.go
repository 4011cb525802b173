package virtual

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebeliceyang/lazygrid/internal/loader"
	"github.com/rebeliceyang/lazygrid/internal/logger"
	"github.com/rebeliceyang/lazygrid/internal/models"
)

type row struct{ ID int }

func schema() *models.Schema[row] {
	return models.NewSchema(models.Field("ID", func(r row) int { return r.ID }, nil))
}

func rows(n int) []row {
	out := make([]row, n)
	for i := range out {
		out[i] = row{ID: i}
	}
	return out
}

func ids(rs []row) []int {
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

// recordingSource serves from memory and records every request
type recordingSource struct {
	loader.Source[row]
	requests []models.RequestParameters
	fail     atomic.Bool
	block    chan struct{}
}

func (s *recordingSource) Fetch(ctx context.Context, sc *models.Schema[row], p models.RequestParameters) (*models.DataPageResult[row], error) {
	s.requests = append(s.requests, p)
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.fail.Load() {
		return nil, errors.New("unavailable")
	}
	return s.Source.Fetch(ctx, sc, p)
}

func newBridge(t *testing.T, src loader.Source[row], pageSize int) *Bridge[row] {
	t.Helper()
	logger.Discard()
	l, err := loader.New(schema(), loader.WithPageSize(pageSize))
	require.NoError(t, err)
	t.Cleanup(l.Close)
	l.Initialize(src)
	return New(l)
}

func TestRequestWindow_ServesFromWindow(t *testing.T) {
	src := &recordingSource{Source: loader.Local(rows(100))}
	b := newBridge(t, src, 25)

	got, total, err := b.RequestWindow(context.Background(), 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 100, total)
	assert.Equal(t, []int{5, 6, 7, 8, 9, 10, 11, 12, 13, 14}, ids(got))

	_, _, err = b.RequestWindow(context.Background(), 10, 15)
	require.NoError(t, err)
	assert.Len(t, src.requests, 1, "a covered window must not fetch")
}

func TestRequestWindow_GrowsByMaxOfCountAndPageSize(t *testing.T) {
	src := &recordingSource{Source: loader.Local(rows(100))}
	b := newBridge(t, src, 25)

	got, total, err := b.RequestWindow(context.Background(), 20, 40)
	require.NoError(t, err)
	assert.Equal(t, 100, total)
	assert.Len(t, got, 40)
	assert.Equal(t, 20, got[0].ID)
	assert.Equal(t, 59, got[39].ID)

	require.Len(t, src.requests, 2)
	assert.Equal(t, 25, src.requests[1].Offset)
	assert.Equal(t, 40, src.requests[1].Length)
	assert.Len(t, b.Loader().Snapshot().Rows, 65)
}

func TestRequestWindow_ClampsAtEnd(t *testing.T) {
	src := &recordingSource{Source: loader.Local(rows(30))}
	b := newBridge(t, src, 25)

	got, total, err := b.RequestWindow(context.Background(), 20, 50)
	require.NoError(t, err)
	assert.Equal(t, 30, total)
	assert.Len(t, got, 10)

	got, _, err = b.RequestWindow(context.Background(), 40, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRequestWindow_ReloadsAfterFailedReload(t *testing.T) {
	src := &recordingSource{Source: loader.Local(rows(10))}
	src.fail.Store(true)
	b := newBridge(t, src, 5)

	_, _, err := b.RequestWindow(context.Background(), 0, 5)
	var fetchErr *models.FetchError
	require.ErrorAs(t, err, &fetchErr)

	src.fail.Store(false)
	got, total, err := b.RequestWindow(context.Background(), 0, 5)
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, ids(got))
}

func TestRequestWindow_LoadMoreFailureKeepsWindow(t *testing.T) {
	src := &recordingSource{Source: loader.Local(rows(10))}
	b := newBridge(t, src, 5)

	_, _, err := b.RequestWindow(context.Background(), 0, 5)
	require.NoError(t, err)

	src.fail.Store(true)
	_, _, err = b.RequestWindow(context.Background(), 5, 5)
	assert.Error(t, err)
	assert.Len(t, b.Loader().Snapshot().Rows, 5)
}

func TestRequestWindow_CancellationDiscardsFetch(t *testing.T) {
	src := &recordingSource{Source: loader.Local(rows(10))}
	b := newBridge(t, src, 5)

	_, _, err := b.RequestWindow(context.Background(), 0, 5)
	require.NoError(t, err)

	src.block = make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err = b.RequestWindow(ctx, 5, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	l := b.Loader()
	assert.Eventually(t, func() bool {
		return l.State() == models.StateIdle
	}, time.Second, 5*time.Millisecond)
	snap := l.Snapshot()
	assert.NoError(t, snap.Err)
	assert.Len(t, snap.Rows, 5, "cancelled fetch must not touch the window")
}

func TestRequestWindow_InvalidArguments(t *testing.T) {
	b := newBridge(t, loader.Local(rows(1)), 5)

	_, _, err := b.RequestWindow(context.Background(), -1, 5)
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
	_, _, err = b.RequestWindow(context.Background(), 0, 0)
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
}
