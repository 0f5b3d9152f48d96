// Package format defines the on-disk constants shared by every reader:
// version flag bits, the four magic numbers, and the value-kind
// enumeration.
package format

import "github.com/tokatoka/llvm-profparser/endian"

// Version flag bits, packed into the high byte of a profile's version
// field. The low 56 bits are the schema version number.
const (
	FlagIRLevel    uint64 = 1 << 56 // IR-level instrumentation (vs. front-end)
	FlagCSIR       uint64 = 1 << 57 // context-sensitive IR instrumentation
	FlagEntryFirst uint64 = 1 << 58 // counter 0 is the function's entry count
	FlagMemOPSize  uint64 = 1 << 59 // memop-size value profiling present
	FlagTemporal   uint64 = 1 << 60 // temporal profiling (flag preserved, not acted on)
	FlagVTable     uint64 = 1 << 61 // vtable value profiling present

	SchemaMask uint64 = (1 << 56) - 1
)

// Schema extracts the schema version number (the low 56 bits) from a
// profile's version field.
func Schema(version uint64) uint64 {
	return version & SchemaMask
}

// HasFlag reports whether version has the given high-byte flag bit set.
func HasFlag(version uint64, flag uint64) bool {
	return version&flag != 0
}

// Magic is a profile file's first 8 bytes, read as a little-endian uint64.
type Magic uint64

// The four recognized magic numbers. The "swapped" raw variants are
// byte-reversals of their "native" counterpart, computed rather than
// hand-copied so the relationship can't silently drift; a unit test pins
// both to their literal values.
const (
	MagicIndexed     Magic = 0x8169666f72706cff // "lprofi" + 0xff
	MagicRaw64Native Magic = 0xff6c70726f667281 // "lprofr" + 0x81
	MagicRaw32Native Magic = 0xff6c70726f667e81 // "lprofr" variant, 32-bit pointer width
)

// MagicRaw64Swapped and MagicRaw32Swapped are the magic numbers a reader
// observes when a raw profile was written on a host of the opposite
// endianness.
var (
	MagicRaw64Swapped = Magic(endian.SwapMagic(uint64(MagicRaw64Native)))
	MagicRaw32Swapped = Magic(endian.SwapMagic(uint64(MagicRaw32Native)))
)

// ValueKind identifies the category of a value-profiling site. Kinds beyond
// VTable are not named here but still round-trip: valueprofile.Record.ByKind
// is keyed by the raw kind index, not by this enum, so an LLVM release newer
// than this reader simply produces an extra, uninterpreted map entry.
type ValueKind uint32

const (
	ValueKindIndirectCall ValueKind = 0
	ValueKindMemOPSize    ValueKind = 1
	ValueKindVTable       ValueKind = 2
)

func (k ValueKind) String() string {
	switch k {
	case ValueKindIndirectCall:
		return "indirect-call"
	case ValueKindMemOPSize:
		return "memop-size"
	case ValueKindVTable:
		return "vtable"
	default:
		return "unknown-value-kind"
	}
}
