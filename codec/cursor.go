// Package codec provides the primitive, endian-parametric byte decoding
// shared by the raw and indexed profile readers: fixed-width integer reads,
// unsigned LEB128, and the §3-I5 alignment-padding rule.
//
// Cursor never allocates beyond its own struct; Bytes returns a view into
// the caller's backing array rather than a copy.
package codec

import (
	"github.com/tokatoka/llvm-profparser/endian"
	"github.com/tokatoka/llvm-profparser/errs"
)

// Cursor is a forward-only reader over a byte slice.
type Cursor struct {
	buf    []byte
	off    int
	engine endian.EndianEngine
}

// NewCursor returns a Cursor positioned at the start of buf.
func NewCursor(buf []byte, engine endian.EndianEngine) *Cursor {
	return &Cursor{buf: buf, engine: engine}
}

// NewCursorAt returns a Cursor positioned at the given absolute offset into
// buf, used by the indexed reader to jump to a hash-table bucket or chain
// entry located by a header-supplied file offset.
func NewCursorAt(buf []byte, offset int, engine endian.EndianEngine) *Cursor {
	return &Cursor{buf: buf, off: offset, engine: engine}
}

// Offset returns the cursor's current absolute position within its buffer.
func (c *Cursor) Offset() int { return c.off }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.off }

// Engine returns the byte-order witness the cursor was constructed with.
func (c *Cursor) Engine() endian.EndianEngine { return c.engine }

func (c *Cursor) need(n int) error {
	if c.Remaining() < n {
		return &errs.Truncated{Need: n, Got: c.Remaining(), Offset: c.off}
	}

	return nil
}

// U8 reads a single byte.
func (c *Cursor) U8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.off]
	c.off++

	return v, nil
}

// U16 reads a 16-bit field in the cursor's byte order.
func (c *Cursor) U16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := c.engine.Uint16(c.buf[c.off:])
	c.off += 2

	return v, nil
}

// U32 reads a 32-bit field in the cursor's byte order.
func (c *Cursor) U32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := c.engine.Uint32(c.buf[c.off:])
	c.off += 4

	return v, nil
}

// U64 reads a 64-bit field in the cursor's byte order.
func (c *Cursor) U64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := c.engine.Uint64(c.buf[c.off:])
	c.off += 8

	return v, nil
}

// Bytes returns the next n bytes as a slice aliasing the cursor's backing
// array. The caller must not retain it past the lifetime of buf and must
// not mutate it.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.buf[c.off : c.off+n]
	c.off += n

	return b, nil
}

// Skip advances the cursor by n bytes without interpreting them.
func (c *Cursor) Skip(n int) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.off += n

	return nil
}

// ULEB128 reads an unsigned LEB128-encoded integer: each byte contributes 7
// bits, with the high bit set on every byte but the last.
func (c *Cursor) ULEB128() (uint64, error) {
	var result uint64
	var shift uint

	for {
		b, err := c.U8()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 64 {
			return 0, &errs.CorruptValueData{Offset: c.off, Reason: "ULEB128 exceeds 64 bits"}
		}
	}

	return result, nil
}

// PadLen computes the §3-I5 padding length following a variable-length
// region of dataLen bytes: 7 & (8 - (dataLen mod 8)).
func PadLen(dataLen int) int {
	return (8 - (dataLen % 8)) & 7
}

// SkipPad consumes and validates the §3-I5 padding that follows a
// variable-length region of dataLen bytes, failing with *errs.BadPadding if
// any padding byte is non-zero.
func (c *Cursor) SkipPad(dataLen int) error {
	n := PadLen(dataLen)
	if n == 0 {
		return nil
	}

	pad, err := c.Bytes(n)
	if err != nil {
		return err
	}
	for _, b := range pad {
		if b != 0 {
			return &errs.BadPadding{Offset: c.off - n}
		}
	}

	return nil
}
