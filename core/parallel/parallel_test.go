package parallel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParallelize(t *testing.T) {
	tests := []struct {
		name  string
		items int
	}{
		{"empty", 0},
		{"single", 1},
		{"many", 1003},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make([]int32, tt.items)
			Parallelize(tt.items, func(start, end int) {
				for i := start; i < end; i++ {
					atomic.AddInt32(&seen[i], 1)
				}
			})
			for i, c := range seen {
				assert.Equal(t, int32(1), c, "index %d", i)
			}
		})
	}
}

func TestParallelizeWithThreshold(t *testing.T) {
	calls := 0
	ParallelizeWithThreshold(10, 100, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, 1, calls)
}

func TestForEachVisitsAll(t *testing.T) {
	var mu sync.Mutex
	seen := map[int]bool{}

	err := ForEach(context.Background(), 50, 4, func(_ context.Context, i int) error {
		mu.Lock()
		seen[i] = true
		mu.Unlock()
		return nil
	})

	assert.NoError(t, err)
	assert.Len(t, seen, 50)
}

func TestForEachRespectsLimit(t *testing.T) {
	var inFlight, peak int32

	err := ForEach(context.Background(), 40, 3, func(_ context.Context, _ int) error {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		atomic.AddInt32(&inFlight, -1)
		return nil
	})

	assert.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestForEachStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var ran int32

	err := ForEach(context.Background(), 1000, 1, func(_ context.Context, i int) error {
		atomic.AddInt32(&ran, 1)
		if i == 5 {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Less(t, atomic.LoadInt32(&ran), int32(1000))
}

func TestForEachCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran int32
	err := ForEach(ctx, 10, 2, func(_ context.Context, _ int) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}
