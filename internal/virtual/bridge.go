// Package virtual serves "rows [start, start+count)" requests from a paged loader.
package virtual

import (
	"context"
	"fmt"

	"github.com/rebeliceyang/lazygrid/internal/loader"
	"github.com/rebeliceyang/lazygrid/internal/logger"
	"github.com/rebeliceyang/lazygrid/internal/models"
)

// Bridge adapts a Loader's page fetches to window requests
type Bridge[R any] struct {
	loader *loader.Loader[R]
}

// New creates a bridge over l
func New[R any](l *loader.Loader[R]) *Bridge[R] {
	return &Bridge[R]{loader: l}
}

// Loader returns the underlying loader
func (b *Bridge[R]) Loader() *loader.Loader[R] {
	return b.loader
}

// RequestWindow returns up to count rows starting at start, plus the total row count.
//
// Rows already in the loader's window are served directly. Otherwise the window is
// reloaded (nothing loaded, or the last reload failed) or grown by max(count, page size)
// until it covers the request or the data runs out. Cancelling ctx cancels the fetch in
// flight; its result is never applied.
func (b *Bridge[R]) RequestWindow(ctx context.Context, start, count int) ([]R, int, error) {
	if start < 0 || count <= 0 {
		return nil, 0, fmt.Errorf("%w: window start %d count %d", models.ErrInvalidRequest, start, count)
	}
	length := max(count, b.loader.PageSize())

	for {
		if err := await(ctx, b.loader.Pending()); err != nil {
			return nil, 0, err
		}

		snap := b.loader.Snapshot()
		if snap.Loaded && (start+count <= len(snap.Rows) || !snap.HasMore()) {
			return window(snap.Rows, start, count), snap.TotalCount, nil
		}

		var done <-chan struct{}
		if !snap.Loaded {
			logger.Log.WithField("grid", b.loader.ID()).Debug("window reload")
			done = b.loader.ReloadContext(ctx)
		} else {
			done = b.loader.LoadMoreContext(ctx, length)
		}
		if err := await(ctx, done); err != nil {
			return nil, 0, err
		}
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		next := b.loader.Snapshot()
		if next.State == models.StateError {
			return nil, next.TotalCount, next.Err
		}
		if next.Loaded == snap.Loaded && len(next.Rows) == len(snap.Rows) && next.State == models.StateIdle {
			// No progress, e.g. the source returned an empty page
			return window(next.Rows, start, count), next.TotalCount, nil
		}
	}
}

func await(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func window[R any](rows []R, start, count int) []R {
	if start >= len(rows) {
		return []R{}
	}
	return rows[start:min(start+count, len(rows))]
}
