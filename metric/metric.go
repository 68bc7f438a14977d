package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ozontech/seq-registry/buildinfo"
)

var (
	Version = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seq_registry",
		Name:      "version",
		Help:      "",
	},
		[]string{"version"})

	// SecondsBuckets covers range from 1ms to 177s.
	SecondsBuckets = prometheus.ExponentialBuckets(0.001, 3, 12)
	// SecondsBucketsFast covers range from 10us to 1.3s.
	SecondsBucketsFast = prometheus.ExponentialBuckets(0.00001, 2, 18)
)

func init() {
	Version.WithLabelValues(buildinfo.Version).Inc()
}
