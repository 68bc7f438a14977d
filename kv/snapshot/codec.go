package snapshot

import (
	"fmt"
	"strings"

	"github.com/pierrec/lz4/v4"

	"github.com/ozontech/seq-registry/consts"
	"github.com/ozontech/seq-registry/zstd"
)

const (
	CodecNo Codec = iota
	CodecLZ4
	CodecZSTD
)

type Codec byte

func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(s) {
	case "", "zstd":
		return CodecZSTD, nil
	case "lz4":
		return CodecLZ4, nil
	case "no", "none":
		return CodecNo, nil
	default:
		return 0, fmt.Errorf("unknown snapshot codec %q", s)
	}
}

func (codec Codec) String() string {
	switch codec {
	case CodecNo:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", byte(codec))
	}
}

// compressBlock returns the encoded block and the codec that was actually
// used: incompressible input is stored as is.
func (codec Codec) compressBlock(src []byte, level int) ([]byte, Codec, error) {
	if len(src) == 0 {
		return src, CodecNo, nil
	}
	switch codec {
	case CodecNo:
		return src, CodecNo, nil
	case CodecLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(src)))
		n, err := lz4.CompressBlock(src, dst, nil)
		if err != nil {
			return nil, codec, err
		}
		if n == 0 || n >= len(src) {
			return src, CodecNo, nil
		}
		return dst[:n], CodecLZ4, nil
	case CodecZSTD:
		if level == 0 {
			level = consts.DefaultZstdLevel
		}
		return zstd.CompressLevel(src, nil, level), CodecZSTD, nil
	default:
		return nil, codec, fmt.Errorf("unimplemented codec %d", codec)
	}
}

func (codec Codec) decompressBlock(rawLen int, src []byte) ([]byte, error) {
	switch codec {
	case CodecNo:
		return src, nil
	case CodecLZ4:
		dst := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return nil, err
		}
		return dst[:n], nil
	case CodecZSTD:
		return zstd.Decompress(src, make([]byte, 0, rawLen))
	default:
		return nil, fmt.Errorf("unimplemented codec %d", codec)
	}
}
