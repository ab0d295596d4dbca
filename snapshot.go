package nonechucks

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/msamogh/nonechucks/codec"
	"github.com/pierrec/lz4/v4"
)

// Index snapshot format, little endian:
//
//	magic      [4]byte "NCIX"
//	version    uint8
//	codec      uint8 length + name bytes
//	compress   uint8 length + name bytes
//	length     uint32 compressed payload length
//	crc        uint32 CRC-32C of the compressed payload
//	payload    compressed codec-encoded indexState
var snapshotMagic = [4]byte{'N', 'C', 'I', 'X'}

const snapshotVersion = 1

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Compression schemes for index snapshots.
const (
	CompressionZstd = "zstd"
	CompressionLZ4  = "lz4"
	CompressionNone = "none"
)

type snapshotOptions struct {
	codec       codec.Codec
	compression string
}

// SnapshotOption configures SaveIndex.
type SnapshotOption func(*snapshotOptions)

// WithSnapshotCodec sets the codec used to encode the snapshot payload.
// If nil is passed, codec.Default is used.
func WithSnapshotCodec(c codec.Codec) SnapshotOption {
	return func(o *snapshotOptions) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithSnapshotCompression selects the compression scheme by name
// (CompressionZstd, CompressionLZ4, or CompressionNone).
// Defaults to CompressionZstd.
func WithSnapshotCompression(name string) SnapshotOption {
	return func(o *snapshotOptions) {
		o.compression = name
	}
}

// indexState is the persisted classification of a source.
type indexState struct {
	Length      int   `json:"length"`
	SafeOrder   []int `json:"safe"`
	UnsafeOrder []int `json:"unsafe"`
}

// SaveIndex persists the classification state (which positions are safe or
// unsafe, in first-access order) so that an expensive classification of a
// large flaky corpus survives process restarts. Memoized samples are not
// persisted; after a restore they are refetched once on demand.
func (d *SafeDataset[T]) SaveIndex(w io.Writer, opts ...SnapshotOption) error {
	o := snapshotOptions{
		codec:       codec.Default,
		compression: CompressionZstd,
	}
	for _, fn := range opts {
		fn(&o)
	}

	d.mu.RLock()
	state := indexState{
		Length:      d.inner.Len(),
		SafeOrder:   append([]int(nil), d.safeOrder...),
		UnsafeOrder: append([]int(nil), d.unsafeOrder...),
	}
	d.mu.RUnlock()

	payload, err := o.codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode index snapshot: %w", err)
	}

	compressed, err := compress(o.compression, payload)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Write(snapshotMagic[:])
	buf.WriteByte(snapshotVersion)
	if err := writeName(&buf, o.codec.Name()); err != nil {
		return err
	}
	if err := writeName(&buf, o.compression); err != nil {
		return err
	}
	var lenCRC [8]byte
	binary.LittleEndian.PutUint32(lenCRC[0:4], uint32(len(compressed)))
	binary.LittleEndian.PutUint32(lenCRC[4:8], crc32.Checksum(compressed, castagnoli))
	buf.Write(lenCRC[:])
	buf.Write(compressed)

	if _, err := w.Write(buf.Bytes()); err != nil {
		d.logger.LogSnapshot(context.Background(), len(state.SafeOrder)+len(state.UnsafeOrder), err)
		return fmt.Errorf("write index snapshot: %w", err)
	}
	d.logger.LogSnapshot(context.Background(), len(state.SafeOrder)+len(state.UnsafeOrder), nil)
	return nil
}

// LoadIndex restores a classification state saved by SaveIndex. The
// snapshot header is self-describing; codec and compression are selected by
// name. The snapshot must cover a source of the same length as the wrapped
// one, otherwise an ErrSnapshotMismatch is returned.
//
// LoadIndex replaces any existing classification state.
func (d *SafeDataset[T]) LoadIndex(r io.Reader) error {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return fmt.Errorf("read index snapshot header: %w", err)
	}
	if !bytes.Equal(header[0:4], snapshotMagic[:]) {
		return errors.New("not an index snapshot: bad magic")
	}
	if header[4] != snapshotVersion {
		return fmt.Errorf("unsupported index snapshot version %d", header[4])
	}

	codecName, err := readName(r)
	if err != nil {
		return err
	}
	c, ok := codec.ByName(codecName)
	if !ok {
		return fmt.Errorf("unknown snapshot codec %q", codecName)
	}
	compression, err := readName(r)
	if err != nil {
		return err
	}

	var lenCRC [8]byte
	if _, err := io.ReadFull(r, lenCRC[:]); err != nil {
		return fmt.Errorf("read index snapshot header: %w", err)
	}
	length := binary.LittleEndian.Uint32(lenCRC[0:4])
	wantCRC := binary.LittleEndian.Uint32(lenCRC[4:8])

	compressed := make([]byte, length)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return fmt.Errorf("read index snapshot payload: %w", err)
	}
	if got := crc32.Checksum(compressed, castagnoli); got != wantCRC {
		return fmt.Errorf("index snapshot checksum mismatch: got %08x, want %08x", got, wantCRC)
	}

	payload, err := decompress(compression, compressed)
	if err != nil {
		return err
	}

	var state indexState
	if err := c.Unmarshal(payload, &state); err != nil {
		return fmt.Errorf("decode index snapshot: %w", err)
	}
	if state.Length != d.inner.Len() {
		return &ErrSnapshotMismatch{Want: d.inner.Len(), Got: state.Length}
	}
	if err := validateIndexPositions(state); err != nil {
		return err
	}

	d.Reset()
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, pos := range state.SafeOrder {
		d.safeOrder = append(d.safeOrder, pos)
		d.safeSet.Add(uint32(pos))
	}
	for _, pos := range state.UnsafeOrder {
		d.unsafeOrder = append(d.unsafeOrder, pos)
		d.unsafeSet.Add(uint32(pos))
	}
	d.logger.LogSnapshot(context.Background(), len(state.SafeOrder)+len(state.UnsafeOrder), nil)
	return nil
}

// validateIndexPositions rejects snapshots whose position lists do not form
// a partial classification of a source of the recorded length. A stale
// snapshot from a different source must not corrupt the index.
func validateIndexPositions(state indexState) error {
	seen := roaring.New()
	for _, order := range [][]int{state.SafeOrder, state.UnsafeOrder} {
		for _, pos := range order {
			if pos < 0 || pos >= state.Length {
				return fmt.Errorf("index snapshot corrupt: position %d out of range [0, %d)", pos, state.Length)
			}
			if seen.Contains(uint32(pos)) {
				return fmt.Errorf("index snapshot corrupt: position %d classified twice", pos)
			}
			seen.Add(uint32(pos))
		}
	}
	return nil
}

func writeName(buf *bytes.Buffer, name string) error {
	if len(name) > 255 {
		return fmt.Errorf("snapshot name too long: %q", name)
	}
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	return nil
}

func readName(r io.Reader) (string, error) {
	var n [1]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return "", fmt.Errorf("read index snapshot header: %w", err)
	}
	name := make([]byte, n[0])
	if _, err := io.ReadFull(r, name); err != nil {
		return "", fmt.Errorf("read index snapshot header: %w", err)
	}
	return string(name), nil
}

func compress(scheme string, payload []byte) ([]byte, error) {
	switch scheme {
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(payload, nil), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return buf.Bytes(), nil
	case CompressionNone:
		return payload, nil
	default:
		return nil, fmt.Errorf("unknown snapshot compression %q", scheme)
	}
}

func decompress(scheme string, compressed []byte) ([]byte, error) {
	switch scheme {
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
		defer dec.Close()
		return dec.DecodeAll(compressed, nil)
	case CompressionLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(compressed)))
	case CompressionNone:
		return compressed, nil
	default:
		return nil, fmt.Errorf("unknown snapshot compression %q", scheme)
	}
}
