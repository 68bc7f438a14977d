package consts

import (
	"errors"
	"time"
)

const (
	KB = 1024
	MB = 1024 * 1024
	GB = 1024 * 1024 * 1024

	// paging
	DefaultPageLimit = 10
	MaxPageLimit     = 30

	// MaxKeySize bounds both stored keys and incoming cursors.
	MaxKeySize = 128

	// store iteration
	DefaultIteratorBatchSize = 32

	// namespaces
	MixnodesNamespace = "mixnodes"

	// http api
	MaxBondBodySize      = 64 * KB
	HTTPReadTimeout      = 10 * time.Second
	HTTPWriteTimeout     = 30 * time.Second
	HTTPShutdownTimeout  = 10 * time.Second
	DebugShutdownTimeout = 3 * time.Second

	// metrics client
	DefaultMetricsPostTimeout = 10 * time.Second
	MixMetricsPath            = "/api/metrics/mixes"

	// snapshots
	SnapshotMagic         = "SQRS"
	SnapshotVersion       = 1
	DefaultZstdLevel      = 3
	SnapshotSaveTimeout   = time.Minute
	MaxSnapshotRecordSize = 4 * MB
	MaxSnapshotSize       = 4 * GB
)

const (
	SnapshotFileName      = "registry.snapshot"
	SnapshotTmpFileSuffix = "._snapshot"
	PrivateKeyFileName    = "private.pem"
	PublicKeyFileName     = "public.pem"
	SQLiteFileName        = "registry.db"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrStoreClosed     = errors.New("store is closed")
)

const (
	JaegerDebugKey  = "jaeger-debug-id"
	DebugHeader     = "x-o3-sample-trace"
	RequestIDHeader = "X-Request-Id"
)
