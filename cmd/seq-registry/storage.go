package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ozontech/seq-registry/config"
	"github.com/ozontech/seq-registry/consts"
	"github.com/ozontech/seq-registry/kv"
	"github.com/ozontech/seq-registry/kv/redis"
	"github.com/ozontech/seq-registry/kv/snapshot"
	"github.com/ozontech/seq-registry/kv/sqlite"
	"github.com/ozontech/seq-registry/logger"
	"github.com/ozontech/seq-registry/util"
)

type storage struct {
	kv.ReadWriter
	close func() error

	// snapshotPath is set for the memory backend only, which has no other
	// persistence.
	snapshotPath string
	codec        snapshot.Codec
	level        int
}

// openStorage opens the configured backend. The memory backend loads its
// snapshot from DataDir unless loadSnapshot is false.
func openStorage(ctx context.Context, cfg config.Storage, loadSnapshot bool) (*storage, error) {
	codec, err := snapshot.ParseCodec(cfg.Snapshot.Codec)
	if err != nil {
		return nil, err
	}
	st := &storage{codec: codec, level: cfg.Snapshot.Level}

	switch cfg.Backend {
	case config.BackendMemory:
		mem := kv.NewMemStore()
		st.ReadWriter, st.close = mem, mem.Close

		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		st.snapshotPath = filepath.Join(cfg.DataDir, consts.SnapshotFileName)
		if !loadSnapshot {
			break
		}
		if _, err := snapshot.LoadFile(ctx, st.snapshotPath, mem); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
			logger.Info("no snapshot found, starting empty", zap.String("path", st.snapshotPath))
		}

	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		db, err := sqlite.Open(ctx, cfg.SQLite)
		if err != nil {
			return nil, err
		}
		st.ReadWriter, st.close = db, db.Close

	case config.BackendRedis:
		r, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		st.ReadWriter, st.close = r, r.Close

	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", consts.ErrInvalidArgument, cfg.Backend)
	}

	logger.Info("storage opened", zap.String("backend", cfg.Backend))
	return st, nil
}

// persist saves the memory backend to its snapshot file.
func (st *storage) persist(ctx context.Context) error {
	if st.snapshotPath == "" {
		return nil
	}
	_, err := snapshot.SaveFile(ctx, st.snapshotPath, st, st.codec, st.level)
	return err
}

// persistEvery saves the memory backend every interval until ctx is done.
// The returned func waits for a save in flight.
func (st *storage) persistEvery(ctx context.Context, interval time.Duration) (wait func()) {
	var wg sync.WaitGroup
	if interval > 0 && st.snapshotPath != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			util.RunEvery(ctx, interval, func() {
				if err := st.persist(ctx); err != nil && !util.IsCancelled(ctx) {
					logger.Error("periodic snapshot failed", zap.Error(err))
				}
			})
		}()
	}
	return wg.Wait
}

// restore replaces the whole content of the storage with the snapshot at path.
func (st *storage) restore(ctx context.Context, path string) (snapshot.Stats, error) {
	removed, err := kv.DeleteAll(ctx, st, consts.DefaultIteratorBatchSize)
	if err != nil {
		return snapshot.Stats{}, fmt.Errorf("clearing storage: %w", err)
	}
	if removed > 0 {
		logger.Warn("storage cleared before restore", zap.Int("removed", removed))
	}

	stats, err := snapshot.LoadFile(ctx, path, st)
	if err != nil {
		return snapshot.Stats{}, err
	}
	return stats, st.persist(ctx)
}
