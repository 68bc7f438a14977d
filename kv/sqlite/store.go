// Package sqlite implements kv.ReadWriter on top of a single SQLite table.
//
// Keys are stored as BLOBs in a WITHOUT ROWID table whose primary key is the
// key itself. SQLite compares BLOBs with memcmp, which matches bytes.Compare,
// so range scans run on the primary key index in key order.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ozontech/seq-registry/consts"
	"github.com/ozontech/seq-registry/kv"
	"github.com/ozontech/seq-registry/logger"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key   BLOB PRIMARY KEY,
	value BLOB NOT NULL
) WITHOUT ROWID`

type Config struct {
	// DSN is a go-sqlite3 data source, e.g. "file:registry.db?_journal_mode=WAL".
	DSN string `yaml:"dsn"`
	// BatchSize is the maximum number of rows fetched by a single range query.
	BatchSize int `yaml:"batchSize"`
	// MaxOpenConns defaults to 1, SQLite serializes writers anyway.
	MaxOpenConns int `yaml:"maxOpenConns"`
}

type Store struct {
	db        *sql.DB
	batchSize int
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("sqlite: data source is empty")
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open connection: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = consts.DefaultIteratorBatchSize
	}

	logger.Info("sqlite store opened", zap.String("dsn", cfg.DSN), zap.Int("batch_size", batchSize))

	return &Store{
		db:        db,
		batchSize: batchSize,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get: %w", err)
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key, value []byte) error {
	if len(key) == 0 {
		return kv.ErrEmptyKey
	}
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("sqlite: put: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key []byte) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite: delete: %w", err)
	}
	return nil
}

func (s *Store) NewIterator(ctx context.Context, r kv.Range) kv.Iterator {
	batch := s.batchSize
	if r.Limit > 0 && r.Limit < batch {
		batch = r.Limit
	}
	return &iterator{
		ctx:   ctx,
		db:    s.db,
		next:  r.From,
		batch: batch,
	}
}

// iterator reads rows in batches, each batch is a separate statement that
// starts strictly after the last key of the previous one.
type iterator struct {
	ctx   context.Context
	db    *sql.DB
	next  *kv.Bound
	batch int

	buf      []kv.Pair
	pos      int
	cur      kv.Pair
	err      error
	drained  bool
	released bool
}

func (it *iterator) Next() bool {
	if it.released || it.err != nil {
		return false
	}
	if it.pos == len(it.buf) {
		if it.drained {
			return false
		}
		if err := it.fetch(); err != nil {
			it.err = err
			return false
		}
		if len(it.buf) == 0 {
			return false
		}
	}
	it.cur = it.buf[it.pos]
	it.pos++
	return true
}

func (it *iterator) fetch() error {
	query, args := rangeQuery(it.next, it.batch)
	rows, err := it.db.QueryContext(it.ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: range query: %w", err)
	}
	defer rows.Close()

	it.buf = it.buf[:0]
	it.pos = 0
	for rows.Next() {
		var p kv.Pair
		if err := rows.Scan(&p.Key, &p.Value); err != nil {
			return fmt.Errorf("sqlite: scan row: %w", err)
		}
		it.buf = append(it.buf, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterate rows: %w", err)
	}

	if len(it.buf) < it.batch {
		it.drained = true
	}
	if len(it.buf) > 0 {
		it.next = kv.After(it.buf[len(it.buf)-1].Key)
	}
	return nil
}

func rangeQuery(from *kv.Bound, limit int) (string, []any) {
	switch {
	case from == nil:
		return `SELECT key, value FROM kv ORDER BY key LIMIT ?`, []any{limit}
	case from.Inclusive:
		return `SELECT key, value FROM kv WHERE key >= ? ORDER BY key LIMIT ?`, []any{from.Key, limit}
	default:
		return `SELECT key, value FROM kv WHERE key > ? ORDER BY key LIMIT ?`, []any{from.Key, limit}
	}
}

func (it *iterator) Key() []byte {
	return it.cur.Key
}

func (it *iterator) Value() []byte {
	return it.cur.Value
}

func (it *iterator) Err() error {
	return it.err
}

func (it *iterator) Release() {
	it.released = true
	it.buf = nil
	it.cur = kv.Pair{}
}
