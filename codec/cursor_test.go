package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tokatoka/llvm-profparser/endian"
	"github.com/tokatoka/llvm-profparser/errs"
)

func TestCursorFixedWidthReads(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	c := NewCursor(buf, endian.GetLittleEndianEngine())

	b, err := c.U8()
	require.NoError(t, err)
	require.Equal(t, uint8(0x01), b)

	u16, err := c.U16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x0403), u16)

	u32, err := c.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(0x07060504), u32)
	require.Equal(t, 7, c.Offset())
	require.Equal(t, 1, c.Remaining())
}

func TestCursorTruncated(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02}, endian.GetLittleEndianEngine())

	_, err := c.U64()
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrTruncated)

	var trunc *errs.Truncated
	require.True(t, errors.As(err, &trunc))
	require.Equal(t, 8, trunc.Need)
	require.Equal(t, 2, trunc.Got)
}

func TestCursorAtOffset(t *testing.T) {
	buf := []byte{0xff, 0xff, 0x2a, 0x00, 0x00, 0x00}
	c := NewCursorAt(buf, 2, endian.GetLittleEndianEngine())

	v, err := c.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(42), v)
}

func TestCursorBytesAliasesBackingArray(t *testing.T) {
	buf := []byte{'a', 'b', 'c', 'd'}
	c := NewCursor(buf, endian.GetLittleEndianEngine())

	b, err := c.Bytes(3)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), b)

	buf[0] = 'z'
	require.Equal(t, byte('z'), b[0])
}

func TestCursorULEB128(t *testing.T) {
	// 624485 encodes to [0xe5, 0x8e, 0x26] per the canonical LEB128 example.
	c := NewCursor([]byte{0xe5, 0x8e, 0x26}, endian.GetLittleEndianEngine())

	v, err := c.ULEB128()
	require.NoError(t, err)
	require.Equal(t, uint64(624485), v)
}

func TestCursorULEB128SingleByte(t *testing.T) {
	c := NewCursor([]byte{0x00}, endian.GetLittleEndianEngine())

	v, err := c.ULEB128()
	require.NoError(t, err)
	require.Equal(t, uint64(0), v)
}

func TestPadLen(t *testing.T) {
	require.Equal(t, 0, PadLen(0))
	require.Equal(t, 0, PadLen(8))
	require.Equal(t, 7, PadLen(1))
	require.Equal(t, 4, PadLen(12))
}

func TestCursorSkipPadValid(t *testing.T) {
	buf := append([]byte("abc"), make([]byte, 5)...) // len 3, pad 5 to reach 8
	c := NewCursor(buf, endian.GetLittleEndianEngine())

	require.NoError(t, c.Skip(3))
	require.NoError(t, c.SkipPad(3))
	require.Equal(t, 8, c.Offset())
}

func TestCursorSkipPadNonZero(t *testing.T) {
	buf := append([]byte("abc"), []byte{0, 0, 1, 0, 0}...)
	c := NewCursor(buf, endian.GetLittleEndianEngine())

	require.NoError(t, c.Skip(3))
	err := c.SkipPad(3)
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrBadPadding)
}
