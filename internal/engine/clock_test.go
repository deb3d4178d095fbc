package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_StartsAtOne(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestClock_NewClockAt(t *testing.T) {
	tests := []struct {
		start int64
		want  int64
	}{
		{start: 0, want: 1},
		{start: 41, want: 42},
		{start: 1000, want: 1001},
	}

	for _, tt := range tests {
		c := NewClockAt(tt.start)
		assert.Equal(t, tt.start, c.Current())
		assert.Equal(t, tt.want, c.Next())
	}
}

func TestClock_ConcurrentNextIsDense(t *testing.T) {
	c := NewClock()
	const goroutines = 50
	const perGoroutine = 20

	seen := make(chan int64, goroutines*perGoroutine)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				seen <- c.Next()
			}
		}()
	}
	wg.Wait()
	close(seen)

	got := make(map[int64]bool)
	for seq := range seen {
		assert.False(t, got[seq], "seq %d handed out twice", seq)
		got[seq] = true
	}
	for seq := int64(1); seq <= goroutines*perGoroutine; seq++ {
		assert.True(t, got[seq], "seq %d missing", seq)
	}
}
