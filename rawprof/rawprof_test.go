package rawprof

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tokatoka/llvm-profparser/symtab"
)

// buildRaw64 assembles a minimal raw64 fixture: one function_data entry
// naming "foo", one counter, no value-profiling data, and no binary IDs.
func buildRaw64(t *testing.T, le bool) []byte {
	t.Helper()

	// The magic constant is always the "native" value; only its on-disk
	// byte order changes. A big-endian host's encoding of the native value
	// is what a little-endian reader sees as the "swapped" magic.
	var order binary.ByteOrder = binary.LittleEndian
	magic := uint64(0xff6c70726f667281)
	if !le {
		order = binary.BigEndian
	}

	put64 := func(buf []byte, v uint64) []byte {
		b := make([]byte, 8)
		order.PutUint64(b, v)
		return append(buf, b...)
	}
	put32 := func(buf []byte, v uint32) []byte {
		b := make([]byte, 4)
		order.PutUint32(b, v)
		return append(buf, b...)
	}
	put16 := func(buf []byte, v uint16) []byte {
		b := make([]byte, 2)
		order.PutUint16(b, v)
		return append(buf, b...)
	}

	nameHash := symtab.Hash("foo")

	var buf []byte
	buf = put64(buf, magic)
	buf = put64(buf, 9) // version
	buf = put64(buf, 0) // binary_ids_size
	buf = put64(buf, 1) // data_size
	buf = put64(buf, 0) // padding_before_counters
	buf = put64(buf, 8) // counters_size
	buf = put64(buf, 0) // padding_after_counters
	buf = put64(buf, 4) // names_size: "foo\x01"
	buf = put64(buf, 0) // counters_delta
	buf = put64(buf, 0) // names_delta
	buf = put64(buf, 1) // value_kind_last -> 2 kinds

	// function_data entry
	buf = put64(buf, nameHash) // name_ref
	buf = put64(buf, 42)       // fn_hash
	buf = put64(buf, 0)        // counter_ptr
	buf = put64(buf, 0)        // fn_addr
	buf = put64(buf, 0)        // values_ptr
	buf = put32(buf, 1)        // num_counters
	buf = put16(buf, 0)        // value_site_counts[0]
	buf = put16(buf, 0)        // value_site_counts[1]

	// counter_block
	buf = put64(buf, 100)

	// name_block + padding to 8 bytes
	buf = append(buf, []byte("foo\x01")...)
	buf = append(buf, 0, 0, 0, 0)

	return buf
}

func TestDetectRaw64Native(t *testing.T) {
	buf := buildRaw64(t, true)
	engine, width, ok := Detect(buf)
	require.True(t, ok)
	require.Equal(t, width64, width)
	require.NotNil(t, engine)
}

func TestDetectRaw64Swapped(t *testing.T) {
	buf := buildRaw64(t, false)
	_, width, ok := Detect(buf)
	require.True(t, ok)
	require.Equal(t, width64, width)
}

func TestDetectRejectsUnknownMagic(t *testing.T) {
	_, _, ok := Detect([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.False(t, ok)
}

func TestParseRaw64NativeEndOfEnd(t *testing.T) {
	buf := buildRaw64(t, true)

	p, err := Parse(buf)
	require.NoError(t, err)
	require.Equal(t, uint64(9), p.Version)
	require.Len(t, p.Records, 1)

	rec := p.Records[0]
	require.Equal(t, "foo", rec.Name)
	require.Equal(t, uint64(42), rec.FuncHash)
	require.Equal(t, []uint64{100}, rec.Counters)
}

func TestParseRaw64SwappedEndian(t *testing.T) {
	buf := buildRaw64(t, false)

	p, err := Parse(buf)
	require.NoError(t, err)
	require.Len(t, p.Records, 1)
	require.Equal(t, "foo", p.Records[0].Name)
	require.Equal(t, []uint64{100}, p.Records[0].Counters)
}

func TestParseRejectsTruncated(t *testing.T) {
	buf := buildRaw64(t, true)
	_, err := Parse(buf[:20])
	require.Error(t, err)
}
