package util

import (
	"context"
	"time"

	"github.com/c2h5oh/datasize"
	"go.uber.org/zap"
)

func SizeStr(bytes uint64) string {
	return datasize.ByteSize(bytes).HR()
}

// ZapSize forms a string field with val in human readable units.
func ZapSize(key string, val uint64) zap.Field {
	return zap.String(key, SizeStr(val))
}

// RunEvery calls actionFn every interval until ctx is done.
// The first call happens without delay.
func RunEvery(ctx context.Context, interval time.Duration, actionFn func()) {
	t := time.NewTicker(interval)
	defer t.Stop()

	actionFn()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			actionFn()
		}
	}
}

// IsCancelled is a faster way to check if the context has been canceled, compared to ctx.Err() != nil
func IsCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
