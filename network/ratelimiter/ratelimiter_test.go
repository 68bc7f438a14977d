package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowBurst(t *testing.T) {
	rl := New(2, nil)

	for i := 0; i < 20; i++ {
		require.True(t, rl.Allow("1.1.1.1"), "request %d", i)
	}
	assert.False(t, rl.Allow("1.1.1.1"))
	// keys are independent
	assert.True(t, rl.Allow("2.2.2.2"))
}

func TestDrain(t *testing.T) {
	var tracked []int
	rl := New(2, func(n int) { tracked = append(tracked, n) })

	for rl.Allow("a") {
	}
	rl.Allow("b")

	rl.drain(time.Second)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	// "b" leaked out completely and is forgotten
	assert.Equal(t, []int{1}, tracked)
}

func TestDisabled(t *testing.T) {
	rl := New(0, nil)
	for i := 0; i < 1000; i++ {
		require.True(t, rl.Allow("a"))
	}
}

func TestRunStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		New(1, nil).Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
