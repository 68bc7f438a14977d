package limits

import (
	"fmt"
	"runtime"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/ozontech/seq-registry/logger"
)

// NumCPU is GOMAXPROCS adjusted to the container cpu quota.
var NumCPU int

func init() {
	_, _ = maxprocs.Set(maxprocs.Logger(func(tpl string, args ...any) { logger.Info(fmt.Sprintf(tpl, args...)) }))

	NumCPU = runtime.GOMAXPROCS(0)
}
