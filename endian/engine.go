// Package endian provides the byte-order witness shared by every binary
// profile reader (raw64, raw32, indexed).
//
// It combines encoding/binary's ByteOrder and AppendByteOrder into a single
// EndianEngine interface so a reader can be written once against the
// interface and handed either binary.LittleEndian or binary.BigEndian at
// construction time, rather than branching on endianness inline at every
// field read.
//
// # Basic usage
//
//	engine := endian.GetLittleEndianEngine()
//	cursor := codec.NewCursor(buf, engine)
//
// Cross-compiled profiles (a runtime that wrote its memory dump on a
// big-endian host) are handled by constructing the same reader with
// endian.GetBigEndianEngine() instead — see rawprof's magic-based engine
// detection.
package endian

import (
	"encoding/binary"
	"math/bits"
)

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary
// into a single interface. binary.LittleEndian and binary.BigEndian both
// satisfy it already.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// SwapMagic byte-reverses a little-endian-read magic number, producing the
// pattern a reader sees when a profile's magic was actually written in the
// opposite byte order. The raw64/raw32 "swapped" magic constants in the
// format package are derived from their "native" counterparts with this
// function rather than hand-copied, so the relationship holds by
// construction instead of by eyeballing two 16-digit hex literals.
func SwapMagic(nativeLE uint64) uint64 {
	return bits.ReverseBytes64(nativeLE)
}
