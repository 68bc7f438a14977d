package snapshot

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"

	"github.com/ozontech/seq-registry/consts"
	"github.com/ozontech/seq-registry/kv"
)

func filledStore(t *testing.T, n int) *kv.MemStore {
	t.Helper()
	s := kv.NewMemStore()
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("bond%05d", i))
		value := []byte(fmt.Sprintf(`{"owner":"bond%05d","mix_node":{"host":"10.0.0.1:1789","layer":%d}}`, i, i%3+1))
		require.NoError(t, s.Put(context.Background(), key, value))
	}
	return s
}

func dump(t *testing.T, s kv.Store) []kv.Pair {
	t.Helper()
	it := s.NewIterator(context.Background(), kv.Range{})
	defer it.Release()

	var res []kv.Pair
	for it.Next() {
		res = append(res, kv.Pair{Key: bytes.Clone(it.Key()), Value: bytes.Clone(it.Value())})
	}
	require.NoError(t, it.Err())
	return res
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	src := filledStore(t, 500)

	for _, codec := range []Codec{CodecNo, CodecLZ4, CodecZSTD} {
		t.Run(codec.String(), func(t *testing.T) {
			buf := bytes.NewBuffer(nil)
			saved, err := Save(ctx, buf, src, codec, 0)
			require.NoError(t, err)
			assert.Equal(t, 500, saved.Records)
			assert.Equal(t, codec, saved.Codec)
			if codec != CodecNo {
				assert.Less(t, saved.DiskSize, saved.RawSize)
			}

			dst := kv.NewMemStore()
			loaded, err := Load(ctx, buf, dst)
			require.NoError(t, err)
			assert.Equal(t, saved.Records, loaded.Records)
			assert.Equal(t, dump(t, src), dump(t, dst))
		})
	}
}

func TestSaveLoadEmpty(t *testing.T) {
	ctx := context.Background()
	for _, codec := range []Codec{CodecNo, CodecLZ4, CodecZSTD} {
		buf := bytes.NewBuffer(nil)
		saved, err := Save(ctx, buf, kv.NewMemStore(), codec, 0)
		require.NoError(t, err)
		assert.Equal(t, CodecNo, saved.Codec)

		dst := kv.NewMemStore()
		_, err = Load(ctx, buf, dst)
		require.NoError(t, err)
		assert.Equal(t, 0, dst.Len())
	}
}

func TestLZ4FallsBackOnIncompressible(t *testing.T) {
	s := kv.NewMemStore()
	require.NoError(t, s.Put(context.Background(), []byte("k"), frand.Bytes(256)))

	buf := bytes.NewBuffer(nil)
	stats, err := Save(context.Background(), buf, s, CodecLZ4, 0)
	require.NoError(t, err)
	assert.Equal(t, CodecNo, stats.Codec)
}

func TestLoadCorrupted(t *testing.T) {
	ctx := context.Background()
	buf := bytes.NewBuffer(nil)
	_, err := Save(ctx, buf, filledStore(t, 10), CodecZSTD, 0)
	require.NoError(t, err)
	data := buf.Bytes()

	_, err = Load(ctx, bytes.NewReader([]byte("nope-nope")), kv.NewMemStore())
	assert.ErrorIs(t, err, ErrBadMagic)

	bad := bytes.Clone(data)
	bad[4] = 99
	_, err = Load(ctx, bytes.NewReader(bad), kv.NewMemStore())
	assert.ErrorIs(t, err, ErrBadVersion)

	_, err = Load(ctx, bytes.NewReader(data[:len(data)-3]), kv.NewMemStore())
	assert.ErrorIs(t, err, ErrCorrupted)

	bad = bytes.Clone(data)
	bad[len(bad)-1] ^= 0xff
	_, err = Load(ctx, bytes.NewReader(bad), kv.NewMemStore())
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestLoadRejectsLyingHeader(t *testing.T) {
	header := func(rawLen, blockLen uint64) []byte {
		h := []byte(consts.SnapshotMagic)
		h = append(h, consts.SnapshotVersion, byte(CodecZSTD))
		h = binary.AppendUvarint(h, 1)
		h = binary.AppendUvarint(h, rawLen)
		h = binary.LittleEndian.AppendUint32(h, 0)
		h = binary.AppendUvarint(h, blockLen)
		return append(h, "tiny block"...)
	}

	for _, tc := range []struct {
		name             string
		rawLen, blockLen uint64
	}{
		{"huge block", 16, 1 << 62},
		{"huge raw", 1 << 62, 10},
		{"block past eof", 16, 1 << 20},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(context.Background(), bytes.NewReader(header(tc.rawLen, tc.blockLen)), kv.NewMemStore())
			require.ErrorIs(t, err, ErrCorrupted)
		})
	}
}

func TestSaveLoadFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.snapshot")

	_, err := LoadFile(ctx, path, kv.NewMemStore())
	require.True(t, errors.Is(err, os.ErrNotExist))

	src := filledStore(t, 42)
	_, err = SaveFile(ctx, path, src, CodecZSTD, 1)
	require.NoError(t, err)

	_, err = os.Stat(path + consts.SnapshotTmpFileSuffix)
	require.True(t, os.IsNotExist(err))

	dst := kv.NewMemStore()
	stats, err := LoadFile(ctx, path, dst)
	require.NoError(t, err)
	assert.Equal(t, 42, stats.Records)
	assert.Equal(t, dump(t, src), dump(t, dst))
}

func TestParseCodec(t *testing.T) {
	for in, want := range map[string]Codec{"": CodecZSTD, "zstd": CodecZSTD, "LZ4": CodecLZ4, "none": CodecNo} {
		got, err := ParseCodec(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCodec("gzip")
	require.Error(t, err)
}

func TestLoadCanceled(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	_, err := Save(context.Background(), buf, filledStore(t, 10), CodecZSTD, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dst := kv.NewMemStore()
	_, err = Load(ctx, buf, dst)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, dst.Len())
}
