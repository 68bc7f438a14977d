package config

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/c2h5oh/datasize"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"

	"github.com/ozontech/seq-registry/consts"
	"github.com/ozontech/seq-registry/kv/redis"
	"github.com/ozontech/seq-registry/kv/snapshot"
	"github.com/ozontech/seq-registry/kv/sqlite"
	"github.com/ozontech/seq-registry/limits"
	"github.com/ozontech/seq-registry/mixmetrics"
	"github.com/ozontech/seq-registry/network/circuitbreaker"
	"github.com/ozontech/seq-registry/paging"
	"github.com/ozontech/seq-registry/pathfinder"
	"github.com/ozontech/seq-registry/proxyapi"
	"github.com/ozontech/seq-registry/tracing"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Parse reads the yaml file at path. An empty path gives the defaults.
func Parse(path string) (Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.UnmarshalStrict(data, &c); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	/* Set computed defaults if user did not override them */

	c.Storage.SQLite.DSN = cmp.Or(c.Storage.SQLite.DSN, sqliteDSN(c.Storage.DataDir))
	c.Storage.SQLite.MaxOpenConns = cmp.Or(c.Storage.SQLite.MaxOpenConns, limits.NumCPU)
	c.Storage.SQLite.BatchSize = cmp.Or(c.Storage.SQLite.BatchSize, consts.DefaultIteratorBatchSize)
	c.Storage.Redis.BatchSize = cmp.Or(c.Storage.Redis.BatchSize, consts.DefaultIteratorBatchSize)

	return c, c.Validate()
}

type Config struct {
	Address struct {
		// HTTP listen address of the registry api.
		HTTP string `yaml:"http"`
		// Debug listen address.
		Debug string `yaml:"debug"`
	} `yaml:"address"`

	Storage Storage `yaml:"storage"`

	Paging struct {
		// Mixnodes is the page size policy of the mixnode listing.
		Mixnodes paging.Config `yaml:"mixnodes"`
	} `yaml:"paging"`

	API struct {
		proxyapi.Config `yaml:",inline"`
		// MaxBodySize limits bond requests after decompression.
		MaxBodySize Bytes `yaml:"maxBodySize"`
	} `yaml:"api"`

	Keys    pathfinder.Config `yaml:"keys"`
	Metrics mixmetrics.Config `yaml:"metrics"`
	Tracing tracing.Config    `yaml:"tracing"`
}

type Storage struct {
	// Backend is one of memory, sqlite or redis.
	Backend string `yaml:"backend"`
	// DataDir keeps the snapshot of the memory backend and the sqlite database.
	DataDir string `yaml:"dataDir"`

	Snapshot struct {
		// Codec is none, lz4 or zstd.
		Codec string `yaml:"codec"`
		// Level is the zstd compression level.
		Level int `yaml:"level"`
		// Interval between periodic snapshots, zero saves on shutdown only.
		Interval time.Duration `yaml:"interval"`
	} `yaml:"snapshot"`

	SQLite sqlite.Config `yaml:"sqlite"`
	Redis  redis.Config  `yaml:"redis"`
}

// SetDataDir moves the data directory. A sqlite DSN derived from the old
// directory follows it.
func (s *Storage) SetDataDir(dir string) {
	if s.SQLite.DSN == sqliteDSN(s.DataDir) {
		s.SQLite.DSN = sqliteDSN(dir)
	}
	s.DataDir = dir
}

func sqliteDSN(dataDir string) string {
	return "file:" + filepath.Join(dataDir, consts.SQLiteFileName) + "?_journal_mode=WAL"
}

func Default() Config {
	var c Config
	c.Address.HTTP = ":9002"
	c.Address.Debug = ":9200"

	c.Storage.Backend = BackendMemory
	c.Storage.DataDir = "data"
	c.Storage.Snapshot.Codec = snapshot.CodecZSTD.String()
	c.Storage.Snapshot.Level = consts.DefaultZstdLevel
	c.Storage.Redis.Addr = "127.0.0.1:6379"
	c.Storage.Redis.Name = "seq-registry"

	c.Paging.Mixnodes = paging.DefaultConfig()

	c.API.ReadTimeout = consts.HTTPReadTimeout
	c.API.WriteTimeout = consts.HTTPWriteTimeout
	c.API.MaxBodySize = Bytes(consts.MaxBondBodySize)

	c.Keys.ID = "default"

	c.Metrics.Timeout = consts.DefaultMetricsPostTimeout
	c.Metrics.CircuitBreaker = circuitbreaker.DefaultConfig()

	c.Tracing = tracing.DefaultConfig()
	return c
}

func (c Config) Validate() error {
	var err error
	switch c.Storage.Backend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		err = multierr.Append(err, fmt.Errorf("%w: unknown storage backend %q", consts.ErrInvalidArgument, c.Storage.Backend))
	}
	if _, codecErr := snapshot.ParseCodec(c.Storage.Snapshot.Codec); codecErr != nil {
		err = multierr.Append(err, codecErr)
	}
	if pagingErr := c.Paging.Mixnodes.Validate(); pagingErr != nil {
		err = multierr.Append(err, fmt.Errorf("paging.mixnodes: %w", pagingErr))
	}
	if c.API.MaxBodySize == 0 {
		err = multierr.Append(err, fmt.Errorf("%w: api.maxBodySize must be positive", consts.ErrInvalidArgument))
	}
	if c.Tracing.Probability < 0 || c.Tracing.Probability > 1 {
		err = multierr.Append(err, fmt.Errorf("%w: tracing.probability must be within [0, 1]", consts.ErrInvalidArgument))
	}
	return err
}

// APIConfig is the api section with the body size resolved.
func (c Config) APIConfig() proxyapi.Config {
	api := c.API.Config
	api.MaxBodySize = int(c.API.MaxBodySize)
	return api
}

// Bytes is a size in yaml written like "64KB" or "4MB".
type Bytes datasize.ByteSize

func (b *Bytes) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	var v datasize.ByteSize
	if err := v.UnmarshalText([]byte(s)); err != nil {
		return fmt.Errorf("bad size %q: %w", s, err)
	}
	*b = Bytes(v)
	return nil
}

func (b Bytes) MarshalYAML() (any, error) {
	return datasize.ByteSize(b).String(), nil
}
