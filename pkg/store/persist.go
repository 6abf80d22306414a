package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"
	"unsafe"

	"golang.org/x/sync/errgroup"

	"poi_router/pkg/codec"
)

const (
	magicBytes  = "GRAPHAST"
	fileVersion = uint32(1)
)

// File names inside a graph directory.
const (
	NodesFile       = "nodes"
	EdgesFile       = "edges"
	NodeLabelsFile  = "nodesLabels"
	EdgeLabelsFile  = "edgesLabels"
	NodeCostsFile   = "nodesCosts"
	EdgeCostsFile   = "edgesCosts"
	GeometriesFile  = "points"
	kindInts        = uint8(0)
	kindStrings     = uint8(1)
	headerSize      = 24
	trailerSize     = 4
	// maxPrealloc caps the capacity reserved from the header count. Longer
	// collections grow as their blocks arrive.
	maxPrealloc = 1 << 20
)

// fileHeader precedes the framed blocks of every graph file.
type fileHeader struct {
	Magic    [8]byte
	Version  uint32
	Codec    uint8
	Kind     uint8
	TimeUnit TimeUnit
	Pad      [1]byte
	Count    uint64
}

// Open loads the graph stored in dir.
func Open(ctx context.Context, dir string, optFns ...func(*Options)) (*Graph, error) {
	g, err := New(dir, optFns...)
	if err != nil {
		return nil, err
	}
	if err := g.Load(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

// Save writes the seven graph files to the graph directory, one goroutine
// per file. Each file is replaced atomically.
func (g *Graph) Save(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		g.opts.Logger.LogSave(ctx, g.NumberOfNodes(), g.NumberOfEdges(), time.Since(start), err)
	}()

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return fmt.Errorf("create graph dir: %w", err)
	}
	c, err := codec.New(g.opts.Codec)
	if err != nil {
		return err
	}

	ints := map[string]*intList{
		NodesFile:      &g.nodes,
		EdgesFile:      &g.edges,
		NodeCostsFile:  &g.nodeCosts.intList,
		EdgeCostsFile:  &g.edgeCosts.intList,
		GeometriesFile: &g.points.intList,
	}
	strs := map[string]*stringPool{
		NodeLabelsFile: &g.nodeLabels,
		EdgeLabelsFile: &g.edgeLabels,
	}

	eg, gctx := errgroup.WithContext(ctx)
	for name, l := range ints {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := writeInts(filepath.Join(g.dir, name), c, g.opts.TimeUnit, g.opts.BlockSize, l.snapshot()); err != nil {
				return fmt.Errorf("save %s: %w", name, err)
			}
			return nil
		})
	}
	for name, p := range strs {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := writeStrings(filepath.Join(g.dir, name), c, g.opts.TimeUnit, g.opts.BlockSize, p.snapshot()); err != nil {
				return fmt.Errorf("save %s: %w", name, err)
			}
			return nil
		})
	}
	return eg.Wait()
}

// Load replaces the graph contents with the files in the graph directory
// and rebuilds the coordinate index, point index and bounding box. Every
// file must have been saved with the time unit the graph is configured for.
func (g *Graph) Load(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		g.opts.Logger.LogLoad(ctx, g.NumberOfNodes(), g.NumberOfEdges(), time.Since(start), err)
	}()

	var (
		nodes, edges, nodeCosts, edgeCosts, points []int32
		nodeLabels, edgeLabels                     []string
	)
	ints := map[string]*[]int32{
		NodesFile:      &nodes,
		EdgesFile:      &edges,
		NodeCostsFile:  &nodeCosts,
		EdgeCostsFile:  &edgeCosts,
		GeometriesFile: &points,
	}
	strs := map[string]*[]string{
		NodeLabelsFile: &nodeLabels,
		EdgeLabelsFile: &edgeLabels,
	}

	eg, gctx := errgroup.WithContext(ctx)
	for name, dst := range ints {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := readInts(filepath.Join(g.dir, name), g.opts.TimeUnit)
			if err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}
			*dst = v
			return nil
		})
	}
	for name, dst := range strs {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := readStrings(filepath.Join(g.dir, name), g.opts.TimeUnit)
			if err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}
			*dst = v
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	if len(nodes)%nodeBlockSize != 0 {
		return fmt.Errorf("load %s: %d ints is not a whole number of node blocks: %w", NodesFile, len(nodes), ErrCorruptFile)
	}
	if len(edges)%edgeBlockSize != 0 {
		return fmt.Errorf("load %s: %d ints is not a whole number of edge blocks: %w", EdgesFile, len(edges), ErrCorruptFile)
	}

	g.nodes.reset(nodes)
	g.edges.reset(edges)
	g.nodeCosts.reset(nodeCosts)
	g.edgeCosts.reset(edgeCosts)
	g.points.reset(points)
	g.nodeLabels.reset(nodeLabels)
	g.edgeLabels.reset(edgeLabels)

	g.resetIndexes()
	for pos := 0; pos+nodeBlockSize <= len(nodes); pos += nodeBlockSize {
		g.indexNode(int64(pos/nodeBlockSize), nodes[pos+nodeLat], nodes[pos+nodeLon])
	}
	g.BBox()
	return nil
}

func writeFile(path string, c codec.Codec, kind uint8, unit TimeUnit, count int, body func(*codec.BlockWriter) error) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	crcWriter := crc32Writer{w: f, hash: crc32.NewIEEE()}
	hdr := fileHeader{
		Version: fileVersion,
		Codec:   uint8(c.Type()),
		Kind:     kind,
		TimeUnit: unit,
		Count:    uint64(count),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(&crcWriter, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := body(codec.NewBlockWriter(&crcWriter, c)); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, crcWriter.hash.Sum32()); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func writeInts(path string, c codec.Codec, unit TimeUnit, blockSize int, data []int32) error {
	return writeFile(path, c, kindInts, unit, len(data), func(bw *codec.BlockWriter) error {
		for i := 0; i < len(data); i += blockSize {
			chunk := data[i:min(i+blockSize, len(data))]
			b := unsafe.Slice((*byte)(unsafe.Pointer(&chunk[0])), len(chunk)*4)
			if err := bw.WriteBlock(b); err != nil {
				return fmt.Errorf("write block %d: %w", i/blockSize, err)
			}
		}
		return nil
	})
}

// writeStrings frames up to blockSize labels per block, starting a new block
// early when the next label would push it past codec.MaxBlockSize.
func writeStrings(path string, c codec.Codec, unit TimeUnit, blockSize int, data []string) error {
	return writeFile(path, c, kindStrings, unit, len(data), func(bw *codec.BlockWriter) error {
		var (
			buf    []byte
			inBuf  int
			blocks int
		)
		flush := func() error {
			if err := bw.WriteBlock(buf); err != nil {
				return fmt.Errorf("write block %d: %w", blocks, err)
			}
			buf, inBuf = buf[:0], 0
			blocks++
			return nil
		}
		for _, s := range data {
			if len(s) > MaxLabelLength {
				return fmt.Errorf("label of %d bytes: %w", len(s), ErrLabelTooLong)
			}
			if inBuf == blockSize || len(buf)+binary.MaxVarintLen64+len(s) > codec.MaxBlockSize {
				if err := flush(); err != nil {
					return err
				}
			}
			buf = binary.AppendUvarint(buf, uint64(len(s)))
			buf = append(buf, s...)
			inBuf++
		}
		if inBuf > 0 {
			return flush()
		}
		return nil
	})
}

// readFile validates the header and trailer around body. The block reader
// handed to body is limited to the bytes between them.
func readFile(path string, kind uint8, unit TimeUnit, body func(br *codec.BlockReader, count uint64) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	if info.Size() < headerSize+trailerSize {
		return fmt.Errorf("file of %d bytes: %w", info.Size(), ErrCorruptFile)
	}

	crcReader := crc32Reader{r: f, hash: crc32.NewIEEE()}
	var hdr fileHeader
	if err := binary.Read(&crcReader, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return fmt.Errorf("invalid magic bytes %q: %w", hdr.Magic, ErrCorruptFile)
	}
	if hdr.Version != fileVersion {
		return fmt.Errorf("unsupported version %d: %w", hdr.Version, ErrCorruptFile)
	}
	if hdr.Kind != kind {
		return fmt.Errorf("file kind %d, want %d: %w", hdr.Kind, kind, ErrCorruptFile)
	}
	if hdr.TimeUnit != unit {
		return fmt.Errorf("saved in %s, graph uses %s: %w", hdr.TimeUnit, unit, ErrTimeUnitMismatch)
	}
	if hdr.Count > math.MaxInt32*uint64(edgeBlockSize) {
		return fmt.Errorf("header count %d: %w", hdr.Count, ErrCorruptFile)
	}
	c, err := codec.New(codec.Type(hdr.Codec))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptFile, err)
	}
	br := codec.NewBlockReader(&crcReader, c)
	br.SetLimit(info.Size() - headerSize - trailerSize)
	if err := body(br, hdr.Count); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("truncated body: %w", ErrCorruptFile)
		}
		if errors.Is(err, codec.ErrCorruptBlock) {
			return fmt.Errorf("%w: %w", ErrCorruptFile, err)
		}
		return err
	}

	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x: %w", storedCRC, expectedCRC, ErrCorruptFile)
	}
	return nil
}

func readInts(path string, unit TimeUnit) ([]int32, error) {
	var out []int32
	err := readFile(path, kindInts, unit, func(br *codec.BlockReader, count uint64) error {
		out = make([]int32, 0, min(count, maxPrealloc))
		for uint64(len(out)) < count {
			b, err := br.ReadBlock()
			if err != nil {
				return err
			}
			if len(b)%4 != 0 || uint64(len(out)+len(b)/4) > count {
				return fmt.Errorf("block of %d bytes: %w", len(b), ErrCorruptFile)
			}
			n := len(out)
			out = slices.Grow(out, len(b)/4)[:n+len(b)/4]
			copy(unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(out[n:]))), len(b)), b)
		}
		return nil
	})
	return out, err
}

func readStrings(path string, unit TimeUnit) ([]string, error) {
	var out []string
	err := readFile(path, kindStrings, unit, func(br *codec.BlockReader, count uint64) error {
		out = make([]string, 0, min(count, maxPrealloc))
		for uint64(len(out)) < count {
			b, err := br.ReadBlock()
			if err != nil {
				return err
			}
			for len(b) > 0 {
				n, k := binary.Uvarint(b)
				if k <= 0 || n > MaxLabelLength || uint64(len(b)-k) < n {
					return fmt.Errorf("bad string length: %w", ErrCorruptFile)
				}
				if uint64(len(out)) == count {
					return fmt.Errorf("more than %d strings: %w", count, ErrCorruptFile)
				}
				out = append(out, string(b[k:k+int(n)]))
				b = b[k+int(n):]
			}
		}
		if uint64(len(out)) != count {
			return fmt.Errorf("%d strings, header says %d: %w", len(out), count, ErrCorruptFile)
		}
		return nil
	})
	return out, err
}

// crc32Writer wraps a writer and computes CRC32 of all written data.
type crc32Writer struct {
	w    io.Writer
	hash hash.Hash32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.hash.Write(p[:n])
	return n, err
}

// crc32Reader wraps a reader and computes CRC32 of all read data.
type crc32Reader struct {
	r    io.Reader
	hash hash.Hash32
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.hash.Write(p[:n])
	return n, err
}
