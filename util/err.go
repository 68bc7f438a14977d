package util

import (
	"fmt"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ozontech/seq-registry/logger"
)

type panicWrapper struct {
	e error
}

func (p *panicWrapper) Unwrap() error {
	return p.e
}

func (p *panicWrapper) Error() string {
	return "recovered panic: " + p.e.Error()
}

// RecoverToError turns the value of recover() into an error, counting and
// logging it. It returns nil if there was no panic.
func RecoverToError(panicData any, metric prometheus.Counter) error {
	if panicData == nil {
		return nil
	}

	err, ok := panicData.(error)
	if !ok {
		err = fmt.Errorf("%v", panicData)
	}

	metric.Inc()
	logger.Error("panic recovered", zap.Error(err), zap.ByteString("stack", debug.Stack()))
	return &panicWrapper{e: err}
}
