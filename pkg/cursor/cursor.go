// Package cursor implements a zero-copy byte cursor over an immutable
// memory window, with the primitive decoders the block parser needs:
// little-endian integers, fixed-size byte arrays, and Bitcoin's CompactSize
// varint encoding.
package cursor

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Kind classifies a decode failure.
type Kind int

const (
	// TruncatedInput means fewer bytes remained than the read required.
	TruncatedInput Kind = iota
	// InvalidVarint is the kind for a malformed CompactSize encoding. No
	// Cursor read returns it: every prefix byte is valid CompactSize, and a
	// short body is reported as TruncatedInput.
	InvalidVarint
)

func (k Kind) String() string {
	switch k {
	case TruncatedInput:
		return "truncated_input"
	case InvalidVarint:
		return "invalid_varint"
	default:
		return "unknown"
	}
}

// DecodeError is returned by every Cursor read that fails.
type DecodeError struct {
	Kind Kind
	Msg  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func truncated(msg string) error {
	return &DecodeError{Kind: TruncatedInput, Msg: msg}
}

// Cursor reads sequentially over a byte slice without copying. The slice may
// be backed by a memory-mapped file region or a plain buffer; Cursor doesn't
// care which.
type Cursor struct {
	buf []byte
	off int
}

// New wraps buf starting at offset 0.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Offset returns the current read position.
func (c *Cursor) Offset() int { return c.off }

// Len returns the number of unread bytes.
func (c *Cursor) Len() int { return len(c.buf) - c.off }

// Advance skips n bytes without interpreting them. Fails if fewer than n
// bytes remain.
func (c *Cursor) Advance(n int) error {
	if n < 0 || c.Len() < n {
		return truncated(fmt.Sprintf("advance %d: only %d bytes remain", n, c.Len()))
	}
	c.off += n
	return nil
}

// ReadU8 reads a single byte.
func (c *Cursor) ReadU8() (byte, error) {
	if c.Len() < 1 {
		return 0, truncated("read u8")
	}
	b := c.buf[c.off]
	c.off++
	return b, nil
}

// ReadU16LE reads a little-endian uint16.
func (c *Cursor) ReadU16LE() (uint16, error) {
	if c.Len() < 2 {
		return 0, truncated("read u16")
	}
	v := binary.LittleEndian.Uint16(c.buf[c.off:])
	c.off += 2
	return v, nil
}

// ReadU32LE reads a little-endian uint32.
func (c *Cursor) ReadU32LE() (uint32, error) {
	if c.Len() < 4 {
		return 0, truncated("read u32")
	}
	v := binary.LittleEndian.Uint32(c.buf[c.off:])
	c.off += 4
	return v, nil
}

// ReadI32LE reads a little-endian int32.
func (c *Cursor) ReadI32LE() (int32, error) {
	v, err := c.ReadU32LE()
	return int32(v), err
}

// ReadU64LE reads a little-endian uint64.
func (c *Cursor) ReadU64LE() (uint64, error) {
	if c.Len() < 8 {
		return 0, truncated("read u64")
	}
	v := binary.LittleEndian.Uint64(c.buf[c.off:])
	c.off += 8
	return v, nil
}

// ReadFixed returns a zero-copy view of the next n bytes.
func (c *Cursor) ReadFixed(n int) ([]byte, error) {
	if n < 0 || c.Len() < n {
		return nil, truncated(fmt.Sprintf("read %d fixed bytes: only %d remain", n, c.Len()))
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

// ReadVarInt reads a Bitcoin CompactSize varint: the first byte selects a
// 1/3/5/9-byte encoding (<0xfd, 0xfd, 0xfe, 0xff respectively).
func (c *Cursor) ReadVarInt() (uint64, error) {
	prefix, err := c.ReadU8()
	if err != nil {
		return 0, truncated("read varint prefix")
	}
	switch prefix {
	case 0xfd:
		v, err := c.ReadU16LE()
		if err != nil {
			return 0, truncated("read varint u16 body")
		}
		return uint64(v), nil
	case 0xfe:
		v, err := c.ReadU32LE()
		if err != nil {
			return 0, truncated("read varint u32 body")
		}
		return uint64(v), nil
	case 0xff:
		v, err := c.ReadU64LE()
		if err != nil {
			return 0, truncated("read varint u64 body")
		}
		return v, nil
	default:
		return uint64(prefix), nil
	}
}

// ReadVarBytes reads a CompactSize length prefix followed by that many bytes,
// returning a zero-copy view of the payload.
func (c *Cursor) ReadVarBytes() ([]byte, error) {
	n, err := c.ReadVarInt()
	if err != nil {
		return nil, err
	}
	return c.ReadFixed(int(n))
}

// Reader returns an io.Reader (really a *bytes.Reader) over the unread
// remainder, for handing off to decoders that want an io.Reader (e.g.
// btcd's wire.MsgTx.Deserialize). Use SyncFrom afterward to advance the
// cursor by however much the reader consumed.
func (c *Cursor) Reader() *bytes.Reader {
	return bytes.NewReader(c.buf[c.off:])
}

// SyncFrom advances the cursor by the number of bytes r has consumed since
// it was created by Reader.
func (c *Cursor) SyncFrom(r *bytes.Reader) {
	consumed := c.Len() - r.Len()
	c.off += consumed
}
