package zstd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompressDecompress(t *testing.T) {
	src := bytes.Repeat([]byte("mixnode bond "), 1000)

	for _, level := range []int{1, 3, 9} {
		compressed := CompressLevel(src, nil, level)
		require.Less(t, len(compressed), len(src))

		res, err := Decompress(compressed, nil)
		require.NoError(t, err)
		require.Equal(t, src, res)
	}
}

func TestDecompressAppends(t *testing.T) {
	compressed := CompressLevel([]byte("tail"), nil, 3)
	res, err := Decompress(compressed, []byte("head-"))
	require.NoError(t, err)
	require.Equal(t, "head-tail", string(res))
}

func TestDecompressGarbage(t *testing.T) {
	_, err := Decompress([]byte("definitely not zstd"), nil)
	require.Error(t, err)
}
