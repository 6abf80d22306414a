// Package codec provides the pluggable block compressors used to persist
// graph collections.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies a compression algorithm. It is written into every file
// header so a reader can reject a mismatched configuration.
type Type uint8

const (
	None Type = 0
	LZ4  Type = 1
	Zstd Type = 2
	Gzip Type = 3
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	case Gzip:
		return "gzip"
	}
	return fmt.Sprintf("codec(%d)", uint8(t))
}

// ParseType maps a configuration string to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	case "gzip":
		return Gzip, nil
	}
	return None, fmt.Errorf("unknown codec %q", s)
}

// UnmarshalText lets Type be used directly in YAML configuration.
func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Codec compresses and decompresses independent blocks.
type Codec interface {
	Type() Type
	// Compress appends the packed form of src to dst. A nil result means the
	// block did not compress and should be stored raw.
	Compress(dst, src []byte) ([]byte, error)
	// Decompress appends exactly rawLen decoded bytes to dst.
	Decompress(dst, src []byte, rawLen int) ([]byte, error)
}

var (
	// ErrSizeMismatch is returned when a block decodes to an unexpected length.
	ErrSizeMismatch = errors.New("decompressed size mismatch")
	// ErrCorruptBlock is returned when a block header describes a block
	// that cannot have been written by BlockWriter.
	ErrCorruptBlock = errors.New("corrupt block")
)

// MaxBlockSize bounds the decoded size of a single block.
const MaxBlockSize = 64 << 20

// New returns the codec for t.
func New(t Type) (Codec, error) {
	switch t {
	case None:
		return noneCodec{}, nil
	case LZ4:
		return lz4Codec{}, nil
	case Zstd:
		return zstdCodec{}, nil
	case Gzip:
		return gzipCodec{}, nil
	}
	return nil, fmt.Errorf("unsupported codec: %s", t)
}

type noneCodec struct{}

func (noneCodec) Type() Type { return None }

func (noneCodec) Compress(dst, src []byte) ([]byte, error) { return nil, nil }

func (noneCodec) Decompress(dst, src []byte, rawLen int) ([]byte, error) {
	if len(src) != rawLen {
		return nil, ErrSizeMismatch
	}
	return append(dst, src...), nil
}

type lz4Codec struct{}

func (lz4Codec) Type() Type { return LZ4 }

func (lz4Codec) Compress(dst, src []byte) ([]byte, error) {
	buf := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlock(src, buf, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return append(dst, buf[:n]...), nil
}

func (lz4Codec) Decompress(dst, src []byte, rawLen int) ([]byte, error) {
	out := make([]byte, rawLen)
	n, err := lz4.UncompressBlock(src, out)
	if err != nil {
		return nil, err
	}
	if n != rawLen {
		return nil, ErrSizeMismatch
	}
	return append(dst, out...), nil
}

// ZSTD encoder/decoder pools. Encoders are safe to reuse across blocks.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

type zstdCodec struct{}

func (zstdCodec) Type() Type { return Zstd }

func (zstdCodec) Compress(dst, src []byte) ([]byte, error) {
	enc, err := getZstdEncoder()
	if err != nil {
		return nil, err
	}
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(src, dst), nil
}

func (zstdCodec) Decompress(dst, src []byte, rawLen int) ([]byte, error) {
	dec, err := getZstdDecoder()
	if err != nil {
		return nil, err
	}
	defer zstdDecoderPool.Put(dec)
	start := len(dst)
	out, err := dec.DecodeAll(src, dst)
	if err != nil {
		return nil, err
	}
	if len(out)-start != rawLen {
		return nil, ErrSizeMismatch
	}
	return out, nil
}

type gzipCodec struct{}

func (gzipCodec) Type() Type { return Gzip }

func (gzipCodec) Compress(dst, src []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst)
	zw, err := gzip.NewWriterLevel(buf, gzip.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(src); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gzipCodec) Decompress(dst, src []byte, rawLen int) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out := make([]byte, rawLen)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, fmt.Errorf("gzip block: %w", err)
	}
	return append(dst, out...), nil
}

// blockHeaderSize is [rawLen uint32][packedLen uint32].
const blockHeaderSize = 8

// BlockWriter frames data into independently compressed blocks.
// A packedLen of 0 marks a block stored raw, which happens when the codec
// is None or the block did not shrink by at least 10%.
type BlockWriter struct {
	w       io.Writer
	c       Codec
	scratch []byte
	written int64
}

// NewBlockWriter wraps w.
func NewBlockWriter(w io.Writer, c Codec) *BlockWriter {
	return &BlockWriter{w: w, c: c}
}

// WriteBlock compresses and writes one block.
func (b *BlockWriter) WriteBlock(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	if len(raw) > MaxBlockSize {
		return fmt.Errorf("block of %d bytes exceeds %d", len(raw), MaxBlockSize)
	}
	packed, err := b.c.Compress(b.scratch[:0], raw)
	if err != nil {
		return fmt.Errorf("compress block: %w", err)
	}
	if packed != nil {
		b.scratch = packed
	}
	useRaw := len(packed) == 0 || float64(len(packed)) > float64(len(raw))*0.9

	var hdr [blockHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(len(raw)))
	payload := raw
	if !useRaw {
		binary.LittleEndian.PutUint32(hdr[4:], uint32(len(packed)))
		payload = packed
	}
	if _, err := b.w.Write(hdr[:]); err != nil {
		return err
	}
	n, err := b.w.Write(payload)
	b.written += int64(blockHeaderSize + n)
	return err
}

// BytesWritten returns the framed bytes written so far.
func (b *BlockWriter) BytesWritten() int64 { return b.written }

// BlockReader reads blocks framed by BlockWriter.
type BlockReader struct {
	r         io.Reader
	c         Codec
	buf       []byte
	remaining int64 // framed bytes left, -1 when unknown
}

// NewBlockReader wraps r.
func NewBlockReader(r io.Reader, c Codec) *BlockReader {
	return &BlockReader{r: r, c: c, remaining: -1}
}

// SetLimit declares that at most n framed bytes remain in r. Block headers
// claiming more than that are rejected before anything is allocated.
func (b *BlockReader) SetLimit(n int64) { b.remaining = max(n, 0) }

// ReadBlock returns the next decoded block. The returned slice is only
// valid until the next call.
func (b *BlockReader) ReadBlock() ([]byte, error) {
	var hdr [blockHeaderSize]byte
	if _, err := io.ReadFull(b.r, hdr[:]); err != nil {
		return nil, err
	}
	rawLen := int(binary.LittleEndian.Uint32(hdr[0:]))
	packedLen := int(binary.LittleEndian.Uint32(hdr[4:]))

	stored := rawLen
	if packedLen != 0 {
		stored = packedLen
	}
	if rawLen == 0 || rawLen > MaxBlockSize || packedLen > rawLen {
		return nil, fmt.Errorf("block header raw=%d packed=%d: %w", rawLen, packedLen, ErrCorruptBlock)
	}
	if b.remaining >= 0 {
		b.remaining -= blockHeaderSize
		if int64(stored) > b.remaining {
			return nil, fmt.Errorf("block of %d bytes with %d left: %w", stored, max(b.remaining, 0), ErrCorruptBlock)
		}
		b.remaining -= int64(stored)
	}

	if packedLen == 0 {
		block := make([]byte, rawLen)
		if _, err := io.ReadFull(b.r, block); err != nil {
			return nil, fmt.Errorf("raw block: %w", err)
		}
		return block, nil
	}

	if cap(b.buf) < packedLen {
		b.buf = make([]byte, packedLen)
	}
	packed := b.buf[:packedLen]
	if _, err := io.ReadFull(b.r, packed); err != nil {
		return nil, fmt.Errorf("packed block: %w", err)
	}
	out, err := b.c.Decompress(nil, packed, rawLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
	}
	return out, nil
}
