// Package blockfile reads the blk?????.dat files a Bitcoin-family node
// writes to disk: each file is a sequence of magic/size framed blocks,
// memory-mapped for zero-copy access and optionally XOR-deobfuscated the
// way Bitcoin Core 28+ does when it encrypts blocks at rest.
package blockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/edsrzf/mmap-go"
)

var blkFileRe = regexp.MustCompile(`^blk(\d{5})\.dat$`)

// File pairs a blk*.dat path with the numeric file id embedded in its name
// (blk00000.dat -> 0), which is what the chain index and dispatch layer use
// to address a block's on-disk location.
type File struct {
	ID   int
	Path string
}

// Discover lists every blk?????.dat file under dir in ascending numeric
// order. File order says nothing about height order: a node stores blocks
// as it receives them, so a block's parent may sit in a later file, and
// pkg/chainindex derives the chain linkage from the headers instead.
func Discover(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read block directory %q: %w", dir, err)
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := blkFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		files = append(files, File{ID: id, Path: filepath.Join(dir, e.Name())})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	return files, nil
}

// Frame is one magic/size-framed block payload: the raw bytes between the
// 8-byte frame header and the next frame, plus the offset it starts at
// (for chain-index bookkeeping).
type Frame struct {
	Offset int64
	Raw    []byte
}

// Region is a memory-mapped view over one blk*.dat file's full contents.
// When a non-zero key is given, buf is a deobfuscated heap copy made up
// front rather than the mapping itself.
type Region struct {
	m   mmap.MMap
	buf []byte
}

// Open maps path into memory and, when key (Bitcoin Core's xor.dat
// contents) is non-zero, XORs it into a copy of the mapped bytes. Pass a
// nil/empty key for pre-28.0 data directories that were never obfuscated.
func Open(path string, key []byte) (*Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap %q: %w", path, err)
	}

	buf := []byte(m)
	if len(key) > 0 && !isAllZero(key) {
		buf = xorDecode(m, key)
	}

	return &Region{m: m, buf: buf}, nil
}

// Close unmaps the region.
func (r *Region) Close() error {
	return r.m.Unmap()
}

// magicLen and sizeLen are the widths of a frame header's two fields: the
// 4-byte network magic and the 4-byte little-endian payload size. In
// Frames, a magic mismatch (including an all-zero tail left by a node that
// preallocated the file) ends iteration without error — the file is simply
// done.
const magicLen = 4
const sizeLen = 4
const frameHeaderLen = magicLen + sizeLen

// Frames returns every magic/size-framed block in r whose magic matches
// magic, stopping (without error) at the first non-matching or truncated
// frame header. A frame is never allowed to straddle the boundary of a
// shorter-than-claimed file: a size field that would run past the mapped
// region also ends iteration rather than returning a partial frame.
func (r *Region) Frames(magic [4]byte) []Frame {
	var frames []Frame
	off := 0
	for {
		if off+frameHeaderLen > len(r.buf) {
			break
		}
		if r.buf[off] != magic[0] || r.buf[off+1] != magic[1] || r.buf[off+2] != magic[2] || r.buf[off+3] != magic[3] {
			break
		}
		size := int(r.buf[off+4]) | int(r.buf[off+5])<<8 | int(r.buf[off+6])<<16 | int(r.buf[off+7])<<24
		start := off + frameHeaderLen
		if size <= 0 || start+size > len(r.buf) {
			break
		}
		frames = append(frames, Frame{
			Offset: int64(start),
			Raw:    r.buf[start : start+size],
		})
		off = start + size
	}
	return frames
}

// ReadAt returns a zero-copy view of n bytes starting at offset, for
// dispatch workers that want to re-read a specific block by its recorded
// (file_id, offset, size) triple without re-scanning the whole file.
func (r *Region) ReadAt(offset int64, n int) ([]byte, error) {
	if offset < 0 || int(offset)+n > len(r.buf) {
		return nil, fmt.Errorf("read %d bytes at offset %d: out of range (region is %d bytes)", n, offset, len(r.buf))
	}
	return r.buf[offset : int(offset)+n], nil
}

func isAllZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// xorDecode XORs data against a repeating key, as Bitcoin Core does for
// blocks written under -blocksxor (default since 28.0). Always copies
// rather than mutating the mmap'd region, since RDONLY mappings can't be
// written to in place.
func xorDecode(data []byte, key []byte) []byte {
	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ key[i%len(key)]
	}
	return out
}

// ReadXORKey reads the obfuscation key Bitcoin Core stores in xor.dat at
// the root of a block data directory. Returns a nil key (no error) when the
// file doesn't exist, since pre-28.0 data directories never had one.
func ReadXORKey(dataDir string) ([]byte, error) {
	key, err := os.ReadFile(filepath.Join(dataDir, "xor.dat"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read xor.dat: %w", err)
	}
	return key, nil
}
