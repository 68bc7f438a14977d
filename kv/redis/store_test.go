package redis

import (
	"context"
	"os"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozontech/seq-registry/kv"
)

func TestLexMin(t *testing.T) {
	assert.Equal(t, "-", lexMin(nil))
	assert.Equal(t, "[abc", lexMin(kv.From([]byte("abc"))))
	assert.Equal(t, "(abc", lexMin(kv.After([]byte("abc"))))
	assert.Equal(t, "(a\x00", lexMin(kv.After([]byte("a\x00"))))
}

// openTestStore connects to REDIS_ADDR, tests are skipped without it.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR is not set")
	}

	s, err := Open(context.Background(), Config{
		Addr:      addr,
		Name:      "test-" + ulid.Make().String(),
		BatchSize: 2,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.client.Del(context.Background(), s.keysKey, s.valuesKey).Err()
		_ = s.Close()
	})
	return s
}

func TestStoreRange(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, k := range []string{"c", "a", "b\x00", "b"} {
		require.NoError(t, s.Put(ctx, []byte(k), []byte("v-"+k)))
	}

	read := func(r kv.Range) []string {
		it := s.NewIterator(ctx, r)
		defer it.Release()
		var res []string
		for it.Next() {
			res = append(res, string(it.Key()))
			assert.Equal(t, "v-"+string(it.Key()), string(it.Value()))
		}
		require.NoError(t, it.Err())
		return res
	}

	assert.Equal(t, []string{"a", "b", "b\x00", "c"}, read(kv.Range{}))
	assert.Equal(t, []string{"b\x00", "c"}, read(kv.Range{From: kv.After([]byte("b"))}))
	assert.Equal(t, []string{"b", "b\x00", "c"}, read(kv.Range{From: kv.From([]byte("b"))}))

	require.NoError(t, s.Delete(ctx, []byte("b")))
	_, err := s.Get(ctx, []byte("b"))
	require.ErrorIs(t, err, kv.ErrNotFound)
	assert.Equal(t, []string{"a", "b\x00", "c"}, read(kv.Range{}))
}
