package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PagedQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seq_registry",
		Subsystem: "paging",
		Name:      "queries_total",
		Help:      "Paged queries by endpoint and result",
	}, []string{"endpoint", "status"})

	PageRecords = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "seq_registry",
		Subsystem: "paging",
		Name:      "page_records",
		Help:      "Number of records in returned pages",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 30, 50, 100},
	}, []string{"endpoint"})

	PagedQueryDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "seq_registry",
		Subsystem: "paging",
		Name:      "query_duration_seconds",
		Help:      "",
		Buckets:   SecondsBucketsFast,
	}, []string{"endpoint"})

	MalformedCursorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seq_registry",
		Subsystem: "paging",
		Name:      "malformed_cursors_total",
		Help:      "",
	}, []string{"endpoint"})

	StoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seq_registry",
		Subsystem: "store",
		Name:      "errors_total",
		Help:      "Failures reported by the key-value backend",
	}, []string{"op"})

	BondsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seq_registry",
		Subsystem: "registry",
		Name:      "bonds_total",
		Help:      "Accepted bond and unbond operations",
	}, []string{"op"})

	SnapshotDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "seq_registry",
		Subsystem: "snapshot",
		Name:      "duration_seconds",
		Help:      "",
		Buckets:   SecondsBuckets,
	}, []string{"op"})

	SnapshotSizeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "seq_registry",
		Subsystem: "snapshot",
		Name:      "size_bytes",
		Help:      "Size of the last written snapshot on disk",
	})
)
