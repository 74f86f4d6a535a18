package parallel

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	var counter int64
	n := 1000

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, DefaultConfig().WithWorkers(4))

	assert.Equal(t, int64(n), counter)
}

func TestFor_Sequential(t *testing.T) {
	var counter int64
	For(100, func(_ int) {
		counter++
	}, Sequential())

	assert.Equal(t, int64(100), counter)
}

func TestForRange_CoversDisjointRanges(t *testing.T) {
	tests := []struct {
		name string
		n    int
		cfg  Config
	}{
		{"sequential", 37, Sequential()},
		{"small input falls back", 5, DefaultConfig().WithWorkers(8)},
		{"parallel", 1000, Config{Enabled: true, NumWorkers: 4, MinChunkSize: 10}},
		{"uneven split", 101, Config{Enabled: true, NumWorkers: 3, MinChunkSize: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make([]int32, tt.n)
			var mu sync.Mutex
			calls := 0

			ForRange(tt.n, func(start, end int) {
				mu.Lock()
				calls++
				mu.Unlock()
				for i := start; i < end; i++ {
					atomic.AddInt32(&seen[i], 1)
				}
			}, tt.cfg)

			for i, v := range seen {
				assert.Equal(t, int32(1), v, "index %d visited %d times", i, v)
			}
			assert.GreaterOrEqual(t, calls, 1)
		})
	}
}

func TestForRange_Empty(t *testing.T) {
	called := false
	ForRange(0, func(_, _ int) { called = true }, DefaultConfig())
	assert.False(t, called)
}

func TestWithWorkers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, cfg, cfg.WithWorkers(0))

	one := cfg.WithWorkers(1)
	assert.False(t, one.Enabled)
	assert.Equal(t, 1, one.NumWorkers)

	many := Sequential().WithWorkers(6)
	assert.True(t, many.Enabled)
	assert.Equal(t, 6, many.NumWorkers)
}
