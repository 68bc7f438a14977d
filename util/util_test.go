package util

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverToError(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "panics"})

	assert.NoError(t, RecoverToError(nil, counter))

	cause := errors.New("boom")
	err := RecoverToError(cause, counter)
	require.ErrorIs(t, err, cause)

	err = RecoverToError("plain string", counter)
	assert.EqualError(t, err, "recovered panic: plain string")

	assert.Equal(t, 2.0, testutil.ToFloat64(counter))
}

func TestSyncPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0o644))

	require.NoError(t, SyncPath(dir))
	require.NoError(t, SyncPath(filepath.Join(dir, "f")))
	require.ErrorIs(t, SyncPath(filepath.Join(dir, "missing")), os.ErrNotExist)
}

func TestRunEvery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan struct{})
	go func() {
		RunEvery(ctx, time.Hour, func() { calls++ })
		close(done)
	}()
	cancel()
	<-done
	assert.Equal(t, 1, calls)
}

func TestSizeStr(t *testing.T) {
	assert.Contains(t, SizeStr(3*1024*1024), "MB")
}

func TestIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.False(t, IsCancelled(ctx))
	cancel()
	assert.True(t, IsCancelled(ctx))
}
