// Package snapshot dumps an ordered store into a single compressed block and
// loads it back.
//
// Layout:
//
//	magic "SQRS" | version u8 | codec u8 | records uvarint | raw len uvarint |
//	crc32 (IEEE, of raw block) u32 LE | block len uvarint | block
//
// The raw block is a sequence of (uvarint key len, key, uvarint value len, value)
// in ascending key order.
package snapshot

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ozontech/seq-registry/consts"
	"github.com/ozontech/seq-registry/kv"
	"github.com/ozontech/seq-registry/logger"
	"github.com/ozontech/seq-registry/metric"
	"github.com/ozontech/seq-registry/util"
)

var (
	ErrBadMagic    = errors.New("not a snapshot")
	ErrBadVersion  = errors.New("unsupported snapshot version")
	ErrCorrupted   = errors.New("snapshot is corrupted")
	ErrRecordLimit = errors.New("snapshot record is too large")
)

type Stats struct {
	Records  int
	RawSize  uint64
	DiskSize uint64
	Codec    Codec
	Took     time.Duration
}

func (s Stats) fields() []zap.Field {
	return []zap.Field{
		zap.Int("records", s.Records),
		util.ZapSize("raw", s.RawSize),
		util.ZapSize("disk", s.DiskSize),
		zap.Stringer("codec", s.Codec),
		zap.Duration("took", s.Took),
	}
}

// Save writes every pair of store to w.
func Save(ctx context.Context, w io.Writer, store kv.Store, codec Codec, level int) (Stats, error) {
	start := time.Now()

	it := store.NewIterator(ctx, kv.Range{})
	defer it.Release()

	var (
		raw   []byte
		count int
	)
	for it.Next() {
		raw = binary.AppendUvarint(raw, uint64(len(it.Key())))
		raw = append(raw, it.Key()...)
		raw = binary.AppendUvarint(raw, uint64(len(it.Value())))
		raw = append(raw, it.Value()...)
		count++
	}
	if err := it.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterating store: %w", err)
	}

	block, used, err := codec.compressBlock(raw, level)
	if err != nil {
		return Stats{}, fmt.Errorf("compressing block: %w", err)
	}

	header := make([]byte, 0, 32)
	header = append(header, consts.SnapshotMagic...)
	header = append(header, consts.SnapshotVersion, byte(used))
	header = binary.AppendUvarint(header, uint64(count))
	header = binary.AppendUvarint(header, uint64(len(raw)))
	header = binary.LittleEndian.AppendUint32(header, crc32.ChecksumIEEE(raw))
	header = binary.AppendUvarint(header, uint64(len(block)))

	if _, err := w.Write(header); err != nil {
		return Stats{}, err
	}
	if _, err := w.Write(block); err != nil {
		return Stats{}, err
	}

	return Stats{
		Records:  count,
		RawSize:  uint64(len(raw)),
		DiskSize: uint64(len(header) + len(block)),
		Codec:    used,
		Took:     time.Since(start),
	}, nil
}

// Load reads a snapshot from r and puts every pair into dst.
func Load(ctx context.Context, r io.Reader, dst kv.Writer) (Stats, error) {
	start := time.Now()
	br := bufio.NewReader(r)

	head := make([]byte, len(consts.SnapshotMagic)+2)
	if _, err := io.ReadFull(br, head); err != nil {
		return Stats{}, fmt.Errorf("%w: reading header: %s", ErrCorrupted, err)
	}
	if string(head[:len(consts.SnapshotMagic)]) != consts.SnapshotMagic {
		return Stats{}, ErrBadMagic
	}
	if v := head[len(consts.SnapshotMagic)]; v != consts.SnapshotVersion {
		return Stats{}, fmt.Errorf("%w: %d", ErrBadVersion, v)
	}
	codec := Codec(head[len(consts.SnapshotMagic)+1])

	count, err := binary.ReadUvarint(br)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: records count: %s", ErrCorrupted, err)
	}
	rawLen, err := binary.ReadUvarint(br)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: raw length: %s", ErrCorrupted, err)
	}
	var crc [4]byte
	if _, err := io.ReadFull(br, crc[:]); err != nil {
		return Stats{}, fmt.Errorf("%w: checksum: %s", ErrCorrupted, err)
	}
	blockLen, err := binary.ReadUvarint(br)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: block length: %s", ErrCorrupted, err)
	}

	if rawLen > consts.MaxSnapshotSize || blockLen > consts.MaxSnapshotSize {
		return Stats{}, fmt.Errorf("%w: block of %d bytes (%d raw) exceeds %d", ErrCorrupted, blockLen, rawLen, consts.MaxSnapshotSize)
	}

	// a lying header must not allocate more than the file holds
	block, err := io.ReadAll(io.LimitReader(br, int64(blockLen)))
	if err != nil {
		return Stats{}, fmt.Errorf("%w: reading block: %s", ErrCorrupted, err)
	}
	if uint64(len(block)) != blockLen {
		return Stats{}, fmt.Errorf("%w: block truncated at %d of %d bytes", ErrCorrupted, len(block), blockLen)
	}

	var raw []byte
	if rawLen > 0 {
		if raw, err = codec.decompressBlock(int(rawLen), block); err != nil {
			return Stats{}, fmt.Errorf("%w: decompressing %s block: %s", ErrCorrupted, codec, err)
		}
	}
	if uint64(len(raw)) != rawLen || crc32.ChecksumIEEE(raw) != binary.LittleEndian.Uint32(crc[:]) {
		return Stats{}, fmt.Errorf("%w: checksum mismatch", ErrCorrupted)
	}

	n := 0
	for len(raw) > 0 {
		if util.IsCancelled(ctx) {
			return Stats{}, ctx.Err()
		}
		var key, value []byte
		if key, raw, err = readChunk(raw); err != nil {
			return Stats{}, err
		}
		if value, raw, err = readChunk(raw); err != nil {
			return Stats{}, err
		}
		if err := dst.Put(ctx, key, value); err != nil {
			return Stats{}, fmt.Errorf("restoring key %q: %w", key, err)
		}
		n++
	}
	if uint64(n) != count {
		return Stats{}, fmt.Errorf("%w: expected %d records, got %d", ErrCorrupted, count, n)
	}

	return Stats{
		Records:  n,
		RawSize:  rawLen,
		DiskSize: uint64(len(block)),
		Codec:    codec,
		Took:     time.Since(start),
	}, nil
}

func readChunk(b []byte) ([]byte, []byte, error) {
	l, n := binary.Uvarint(b)
	if n <= 0 {
		return nil, nil, fmt.Errorf("%w: bad chunk length", ErrCorrupted)
	}
	if l > consts.MaxSnapshotRecordSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrRecordLimit, l)
	}
	b = b[n:]
	if uint64(len(b)) < l {
		return nil, nil, fmt.Errorf("%w: truncated chunk", ErrCorrupted)
	}
	return b[:l], b[l:], nil
}

// SaveFile atomically replaces path with a fresh snapshot of store.
func SaveFile(ctx context.Context, path string, store kv.Store, codec Codec, level int) (Stats, error) {
	tmp := path + consts.SnapshotTmpFileSuffix
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return Stats{}, err
	}

	stats, err := Save(ctx, f, store, codec, level)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return Stats{}, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return Stats{}, err
	}
	if err := util.SyncPath(filepath.Dir(path)); err != nil {
		return Stats{}, err
	}

	metric.SnapshotDurationSeconds.WithLabelValues("save").Observe(stats.Took.Seconds())
	metric.SnapshotSizeBytes.Set(float64(stats.DiskSize))
	logger.Info("snapshot saved", append(stats.fields(), zap.String("path", filepath.Base(path)))...)
	return stats, nil
}

// LoadFile restores dst from path. A missing file yields an error matching os.ErrNotExist.
func LoadFile(ctx context.Context, path string, dst kv.Writer) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()

	stats, err := Load(ctx, f, dst)
	if err != nil {
		return Stats{}, fmt.Errorf("loading snapshot %s: %w", path, err)
	}

	metric.SnapshotDurationSeconds.WithLabelValues("load").Observe(stats.Took.Seconds())
	logger.Info("snapshot loaded", append(stats.fields(), zap.String("path", filepath.Base(path)))...)
	return stats, nil
}
