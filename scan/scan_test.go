package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozontech/seq-registry/kv"
	"github.com/ozontech/seq-registry/kv/mock"
)

func memStore(t *testing.T, keys ...string) *kv.MemStore {
	t.Helper()
	s := kv.NewMemStore()
	for _, k := range keys {
		require.NoError(t, s.Put(context.Background(), []byte(k), []byte("v"+k)))
	}
	return s
}

func keysOf(pairs []kv.Pair) []string {
	res := make([]string, 0, len(pairs))
	for _, p := range pairs {
		res = append(res, string(p.Key))
	}
	return res
}

func TestScanLimit(t *testing.T) {
	ctx := context.Background()
	s := memStore(t, "1", "2", "3", "4")

	test := func(from *kv.Bound, limit int, want []string) {
		t.Helper()
		pairs, err := New(ctx, s, from, limit).Collect()
		require.NoError(t, err)
		assert.Equal(t, want, keysOf(pairs))
	}

	test(nil, 2, []string{"1", "2"})
	test(nil, 10, []string{"1", "2", "3", "4"})
	test(nil, 0, []string{})
	test(kv.After([]byte("2")), 10, []string{"3", "4"})
	test(kv.From([]byte("2")), 1, []string{"2"})
	test(kv.After([]byte("4")), 10, []string{})
}

func TestScanRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := memStore(t, "a", "b")

	sc := New(ctx, s, nil, 2)
	defer sc.Close()

	require.True(t, sc.Next())
	first := sc.Record()
	require.True(t, sc.Next())
	require.False(t, sc.Next())

	assert.Equal(t, "a", string(first.Key))
	assert.Equal(t, "va", string(first.Value))
}

func TestScanDoesNotReadPastLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockStore(ctrl)
	it := mock.NewMockIterator(ctrl)

	from := kv.After([]byte("a"))
	store.EXPECT().NewIterator(gomock.Any(), kv.Range{From: from, Limit: 2}).Return(it)

	keys := []string{"b", "c"}
	i := -1
	it.EXPECT().Next().Times(2).DoAndReturn(func() bool { i++; return true })
	it.EXPECT().Key().AnyTimes().DoAndReturn(func() []byte { return []byte(keys[i]) })
	it.EXPECT().Value().AnyTimes().Return([]byte("v"))
	it.EXPECT().Release().Times(1)

	pairs, err := New(context.Background(), store, from, 2).Collect()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, keysOf(pairs))
}

func TestScanPropagatesStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockStore(ctrl)
	it := mock.NewMockIterator(ctrl)

	storeErr := errors.New("disk is on fire")
	store.EXPECT().NewIterator(gomock.Any(), gomock.Any()).Return(it)
	gomock.InOrder(
		it.EXPECT().Next().Return(true),
		it.EXPECT().Next().Return(false),
	)
	it.EXPECT().Key().AnyTimes().Return([]byte("a"))
	it.EXPECT().Value().AnyTimes().Return([]byte("v"))
	it.EXPECT().Err().Return(storeErr)
	it.EXPECT().Release()

	pairs, err := New(context.Background(), store, nil, 10).Collect()
	require.Len(t, pairs, 1)

	var se *StoreError
	require.ErrorAs(t, err, &se)
	require.ErrorIs(t, err, storeErr)
	assert.Equal(t, storeErr, se.Err)
}

func TestScanDetectsDisorder(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockStore(ctrl)
	it := mock.NewMockIterator(ctrl)

	store.EXPECT().NewIterator(gomock.Any(), gomock.Any()).Return(it)
	keys := []string{"b", "a"}
	i := -1
	it.EXPECT().Next().Times(2).DoAndReturn(func() bool { i++; return true })
	it.EXPECT().Key().AnyTimes().DoAndReturn(func() []byte { return []byte(keys[i]) })
	it.EXPECT().Value().AnyTimes().Return([]byte("v"))
	it.EXPECT().Release()

	_, err := New(context.Background(), store, nil, 10).Collect()
	require.ErrorIs(t, err, ErrOutOfOrder)
}

func TestScanDetectsKeyBelowBound(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockStore(ctrl)
	it := mock.NewMockIterator(ctrl)

	store.EXPECT().NewIterator(gomock.Any(), gomock.Any()).Return(it)
	it.EXPECT().Next().Return(true)
	it.EXPECT().Key().AnyTimes().Return([]byte("b"))
	it.EXPECT().Release()

	_, err := New(context.Background(), store, kv.After([]byte("b")), 10).Collect()
	require.ErrorIs(t, err, ErrOutOfOrder)
}

func TestScanContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(ctx, memStore(t, "a"), nil, 10).Collect()
	require.ErrorIs(t, err, context.Canceled)

	var se *StoreError
	require.ErrorAs(t, err, &se)
}
