// Package rawprof decodes the raw64/raw32 profile format: the memory dump a
// runtime writes directly at process exit, as opposed to the indexed format
// a later `llvm-profdata merge` pass produces from one or more raw dumps.
package rawprof

import (
	"github.com/tokatoka/llvm-profparser/codec"
	"github.com/tokatoka/llvm-profparser/endian"
	"github.com/tokatoka/llvm-profparser/errs"
	"github.com/tokatoka/llvm-profparser/format"
	"github.com/tokatoka/llvm-profparser/profile"
	"github.com/tokatoka/llvm-profparser/record"
	"github.com/tokatoka/llvm-profparser/symtab"
	"github.com/tokatoka/llvm-profparser/valueprofile"
)

// ptrWidth is the width, in bytes, of the counter_ptr/fn_addr/values_ptr
// fields within a function_data entry. It is 8 for raw64 and 4 for raw32;
// the two 64-bit hash fields (name_ref, fn_hash) are unaffected, since they
// are content hashes rather than addresses.
type ptrWidth int

const (
	width64 ptrWidth = 8
	width32 ptrWidth = 4
)

// Detect inspects buf's leading 8 bytes, always read as little-endian (the
// byte order the magic constants are themselves defined against), and
// reports which raw variant (if any) it names and the byte-order engine to
// read the REST of the file with. A "swapped" magic means the file's
// remaining fields were written by a host of the opposite endianness; ok is
// false if buf does not begin with a raw magic number.
func Detect(buf []byte) (engine endian.EndianEngine, width ptrWidth, ok bool) {
	if len(buf) < 8 {
		return nil, 0, false
	}

	magic := format.Magic(endian.GetLittleEndianEngine().Uint64(buf))
	switch magic {
	case format.MagicRaw64Native:
		return endian.GetLittleEndianEngine(), width64, true
	case format.MagicRaw32Native:
		return endian.GetLittleEndianEngine(), width32, true
	case format.MagicRaw64Swapped:
		return endian.GetBigEndianEngine(), width64, true
	case format.MagicRaw32Swapped:
		return endian.GetBigEndianEngine(), width32, true
	}

	return nil, 0, false
}

// Header is the raw profile's fixed-width preamble. Every field is a
// uint64 on the wire regardless of ptrWidth; ptrWidth only narrows the
// pointer-shaped fields inside each function_data entry.
type Header struct {
	Version               uint64
	BinaryIDsSize         uint64
	DataSize              uint64 // count of function_data entries, not a byte length
	PaddingBeforeCounters uint64
	CountersSize          uint64
	PaddingAfterCounters  uint64
	NamesSize             uint64
	CountersDelta         uint64
	NamesDelta            uint64
	ValueKindLast         uint64
}

func parseHeader(c *codec.Cursor) (Header, error) {
	var h Header
	fields := []*uint64{
		&h.Version, &h.BinaryIDsSize, &h.DataSize, &h.PaddingBeforeCounters,
		&h.CountersSize, &h.PaddingAfterCounters, &h.NamesSize,
		&h.CountersDelta, &h.NamesDelta, &h.ValueKindLast,
	}
	for _, f := range fields {
		v, err := c.U64()
		if err != nil {
			return Header{}, err
		}
		*f = v
	}

	return h, nil
}

// functionData is one function_data entry, parametrized by ptrWidth.
type functionData struct {
	nameRef         uint64
	fnHash          uint64
	counterPtr      uint64
	valueSiteCounts []uint16
	numCounters     uint32
}

func parseFunctionData(c *codec.Cursor, width ptrWidth, numValueKinds int) (functionData, error) {
	var fd functionData

	var err error
	if fd.nameRef, err = c.U64(); err != nil {
		return fd, err
	}
	if fd.fnHash, err = c.U64(); err != nil {
		return fd, err
	}

	readPtr := func() (uint64, error) {
		if width == width64 {
			return c.U64()
		}
		v, err := c.U32()
		return uint64(v), err
	}

	if fd.counterPtr, err = readPtr(); err != nil {
		return fd, err
	}
	if _, err = readPtr(); err != nil { // fn_addr, unused by this reader
		return fd, err
	}
	if _, err = readPtr(); err != nil { // values_ptr, unused: value data is read positionally
		return fd, err
	}

	n, err := c.U32()
	if err != nil {
		return fd, err
	}
	fd.numCounters = n

	fd.valueSiteCounts = make([]uint16, numValueKinds)
	for i := range fd.valueSiteCounts {
		v, err := c.U16()
		if err != nil {
			return fd, err
		}
		fd.valueSiteCounts[i] = v
	}

	return fd, nil
}

// Parse decodes a raw64 or raw32 profile already known (via Detect) to begin
// with a raw magic number.
func Parse(buf []byte) (*profile.Profile, error) {
	engine, width, ok := Detect(buf)
	if !ok {
		return nil, errs.ErrBadMagic
	}

	c := codec.NewCursorAt(buf, 8, engine)

	hdr, err := parseHeader(c)
	if err != nil {
		return nil, err
	}

	numValueKinds := int(hdr.ValueKindLast) + 1

	binaryIDs, err := c.Bytes(int(hdr.BinaryIDsSize))
	if err != nil {
		return nil, err
	}
	if err := c.SkipPad(int(hdr.BinaryIDsSize)); err != nil {
		return nil, err
	}

	entries := make([]functionData, hdr.DataSize)
	for i := range entries {
		fd, err := parseFunctionData(c, width, numValueKinds)
		if err != nil {
			return nil, err
		}
		entries[i] = fd
	}

	if err := c.Skip(int(hdr.PaddingBeforeCounters)); err != nil {
		return nil, err
	}

	counterBlockStart := c.Offset()
	counterBlock, err := c.Bytes(int(hdr.CountersSize))
	if err != nil {
		return nil, err
	}
	counterCursor := codec.NewCursor(counterBlock, engine)

	if err := c.Skip(int(hdr.PaddingAfterCounters)); err != nil {
		return nil, err
	}

	names, err := c.Bytes(int(hdr.NamesSize))
	if err != nil {
		return nil, err
	}
	if err := c.SkipPad(int(hdr.NamesSize)); err != nil {
		return nil, err
	}

	st := symtab.New()
	if err := st.ParseNameBlock(names, false); err != nil {
		return nil, err
	}

	p := profile.New(hdr.Version)
	p.Symtab = st
	p.BinaryIDs = append([]byte(nil), binaryIDs...)

	for _, fd := range entries {
		rec := &record.FunctionRecord{
			NameHash: fd.nameRef,
			FuncHash: fd.fnHash,
		}
		if name, ok := st.Get(fd.nameRef); ok {
			rec.Name = name
		}

		ptrOffset := int(fd.counterPtr - hdr.CountersDelta)
		if ptrOffset < 0 || ptrOffset+int(fd.numCounters)*8 > len(counterBlock) {
			return nil, &errs.Truncated{Need: int(fd.numCounters) * 8, Got: len(counterBlock) - ptrOffset, Offset: counterBlockStart + ptrOffset}
		}
		entryCursor := codec.NewCursorAt(counterBlock, ptrOffset, counterCursor.Engine())
		counters := make([]uint64, fd.numCounters)
		for i := range counters {
			v, err := entryCursor.U64()
			if err != nil {
				return nil, err
			}
			counters[i] = v
		}
		rec.Counters = counters

		anyValues := false
		for _, n := range fd.valueSiteCounts {
			if n != 0 {
				anyValues = true
				break
			}
		}
		if anyValues {
			vrec, err := valueprofile.Parse(c)
			if err != nil {
				return nil, err
			}
			rec.Values = vrec
		}

		p.AddRecord(rec)
	}

	return p, nil
}
