// Package redis implements kv.ReadWriter on a Redis server.
//
// Keys are members of a sorted set where every member has score 0, so the set
// is ordered lexicographically by member bytes and ranges are served by
// ZRANGEBYLEX. Values live in a hash next to the set.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ozontech/seq-registry/consts"
	"github.com/ozontech/seq-registry/kv"
	"github.com/ozontech/seq-registry/logger"
)

type Config struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Name prefixes the sorted set and the hash used by the store.
	Name      string `yaml:"name"`
	BatchSize int    `yaml:"batchSize"`

	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

type Store struct {
	client    *redis.Client
	keysKey   string
	valuesKey string
	batchSize int
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis: address is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	s := New(client, cfg.Name, cfg.BatchSize)
	logger.Info("redis store opened",
		zap.String("addr", cfg.Addr),
		zap.String("keys", s.keysKey),
		zap.Int("batch_size", s.batchSize),
	)
	return s, nil
}

// New wraps an existing client.
func New(client *redis.Client, name string, batchSize int) *Store {
	if name == "" {
		name = "registry"
	}
	if batchSize <= 0 {
		batchSize = consts.DefaultIteratorBatchSize
	}
	return &Store{
		client:    client,
		keysKey:   name + ":keys",
		valuesKey: name + ":values",
		batchSize: batchSize,
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	v, err := s.client.HGet(ctx, s.valuesKey, string(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get: %w", err)
	}
	return v, nil
}

func (s *Store) Put(ctx context.Context, key, value []byte) error {
	if len(key) == 0 {
		return kv.ErrEmptyKey
	}
	member := string(key)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, s.valuesKey, member, value)
		p.ZAdd(ctx, s.keysKey, redis.Z{Score: 0, Member: member})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: put: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key []byte) error {
	member := string(key)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRem(ctx, s.keysKey, member)
		p.HDel(ctx, s.valuesKey, member)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: delete: %w", err)
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
		store: s,
		next:  r.From,
		batch: batch,
	}
}

// lexMin renders a bound in ZRANGEBYLEX syntax.
func lexMin(b *kv.Bound) string {
	switch {
	case b == nil:
		return "-"
	case b.Inclusive:
		return "[" + string(b.Key)
	default:
		return "(" + string(b.Key)
	}
}

type iterator struct {
	ctx   context.Context
	store *Store
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
	for it.pos == len(it.buf) {
		if it.drained {
			return false
		}
		if err := it.fetch(); err != nil {
			it.err = err
			return false
		}
	}
	it.cur = it.buf[it.pos]
	it.pos++
	return true
}

func (it *iterator) fetch() error {
	s := it.store
	members, err := s.client.ZRangeByLex(it.ctx, s.keysKey, &redis.ZRangeBy{
		Min:   lexMin(it.next),
		Max:   "+",
		Count: int64(it.batch),
	}).Result()
	if err != nil {
		return fmt.Errorf("redis: range by lex: %w", err)
	}

	it.buf = it.buf[:0]
	it.pos = 0
	if len(members) < it.batch {
		it.drained = true
	}
	if len(members) == 0 {
		return nil
	}
	it.next = kv.After([]byte(members[len(members)-1]))

	values, err := s.client.HMGet(it.ctx, s.valuesKey, members...).Result()
	if err != nil {
		return fmt.Errorf("redis: fetch values: %w", err)
	}
	for i, m := range members {
		v, ok := values[i].(string)
		if !ok {
			// removed between the two reads
			continue
		}
		it.buf = append(it.buf, kv.Pair{Key: []byte(m), Value: []byte(v)})
	}
	return nil
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
