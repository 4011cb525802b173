package loader

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_OnlyLastRuns(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var last atomic.Int32
	var runs atomic.Int32
	for i := int32(1); i <= 5; i++ {
		i := i
		d.Trigger(func() {
			last.Store(i)
			runs.Add(1)
		})
	}
	assert.True(t, d.Pending())

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, int32(5), last.Load())
	assert.False(t, d.Pending())
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)

	var runs atomic.Int32
	d.Trigger(func() { runs.Add(1) })
	d.Cancel()
	assert.False(t, d.Pending())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}
