// Package zstd wraps klauspost/compress/zstd with shared, stateless
// encoders per compression level and a single shared decoder.
package zstd

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	decoder *zstd.Decoder

	// encoders holds *zstd.Encoder keyed by zstd compression level.
	encoders sync.Map
)

func init() {
	var err error
	decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Errorf("BUG: failed to create ZSTD reader: %s", err))
	}
}

// Decompress appends decompressed src to dst and returns the result.
func Decompress(src, dst []byte) ([]byte, error) {
	return decoder.DecodeAll(src, dst)
}

// CompressLevel appends compressed src to dst and returns the result.
func CompressLevel(src, dst []byte, compressionLevel int) []byte {
	return getEncoder(compressionLevel).EncodeAll(src, dst)
}

func getEncoder(compressionLevel int) *zstd.Encoder {
	if e, ok := encoders.Load(compressionLevel); ok {
		return e.(*zstd.Encoder)
	}
	e, err := zstd.NewWriter(nil,
		zstd.WithEncoderCRC(true),
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)),
	)
	if err != nil {
		panic(fmt.Errorf("BUG: failed to create ZSTD writer: %s", err))
	}
	actual, loaded := encoders.LoadOrStore(compressionLevel, e)
	if loaded {
		_ = e.Close()
	}
	return actual.(*zstd.Encoder)
}
