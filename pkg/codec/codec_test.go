package codec

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockRoundTrip(t *testing.T) {
	compressible := bytes.Repeat([]byte("road-network-"), 500)
	random := make([]byte, 2048)
	for i := range random {
		random[i] = byte((i*7919 + 13) % 251)
	}

	for _, typ := range []Type{None, LZ4, Zstd, Gzip} {
		t.Run(typ.String(), func(t *testing.T) {
			c, err := New(typ)
			require.NoError(t, err)

			var buf bytes.Buffer
			w := NewBlockWriter(&buf, c)
			require.NoError(t, w.WriteBlock(compressible))
			require.NoError(t, w.WriteBlock(random))
			require.NoError(t, w.WriteBlock(nil)) // no-op
			assert.Equal(t, int64(buf.Len()), w.BytesWritten())

			r := NewBlockReader(&buf, c)
			got, err := r.ReadBlock()
			require.NoError(t, err)
			assert.Equal(t, compressible, got)

			got, err = r.ReadBlock()
			require.NoError(t, err)
			assert.Equal(t, random, got)

			_, err = r.ReadBlock()
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func frame(rawLen, packedLen uint32, payload []byte) *bytes.Buffer {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, [2]uint32{rawLen, packedLen})
	buf.Write(payload)
	return &buf
}

func TestReadBlockRejectsCorruptHeaders(t *testing.T) {
	c, err := New(Zstd)
	require.NoError(t, err)

	tests := []struct {
		name  string
		buf   *bytes.Buffer
		limit int64
	}{
		{"empty block", frame(0, 0, nil), -1},
		{"oversized raw length", frame(1<<31, 0, nil), -1},
		{"packed larger than raw", frame(4, 8, make([]byte, 8)), -1},
		{"raw length past limit", frame(1<<20, 0, make([]byte, 16)), 24},
		{"packed length past limit", frame(1<<20, 1<<19, make([]byte, 16)), 24},
		{"garbage payload", frame(64, 16, bytes.Repeat([]byte{0xff}, 16)), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewBlockReader(tt.buf, c)
			if tt.limit >= 0 {
				r.SetLimit(tt.limit)
			}
			_, err := r.ReadBlock()
			assert.ErrorIs(t, err, ErrCorruptBlock)
		})
	}
}

func TestReadBlockWithinLimit(t *testing.T) {
	c, err := New(None)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewBlockWriter(&buf, c).WriteBlock([]byte("abcd")))
	r := NewBlockReader(&buf, c)
	r.SetLimit(int64(buf.Len()))
	got, err := r.ReadBlock()
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), got)
}

func TestWriteBlockRejectsOversized(t *testing.T) {
	c, err := New(None)
	require.NoError(t, err)
	assert.Error(t, NewBlockWriter(io.Discard, c).WriteBlock(make([]byte, MaxBlockSize+1)))
}

func TestCompressionShrinksRepetitiveData(t *testing.T) {
	data := bytes.Repeat([]byte{1, 0, 0, 0}, 4096)
	for _, typ := range []Type{LZ4, Zstd, Gzip} {
		c, err := New(typ)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, NewBlockWriter(&buf, c).WriteBlock(data))
		assert.Less(t, buf.Len(), len(data)/2, "codec %s", typ)
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
		err  bool
	}{
		{"", None, false},
		{"none", None, false},
		{"LZ4", LZ4, false},
		{" zstd ", Zstd, false},
		{"gzip", Gzip, false},
		{"brotli", None, true},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewUnsupported(t *testing.T) {
	_, err := New(Type(42))
	assert.Error(t, err)
}
