// Package indexedprof decodes the indexed profile format: the on-disk
// chained hash table `llvm-profdata merge` produces from one or more raw
// dumps, keyed by function name for O(1) lookup without a full linear scan.
package indexedprof

import (
	"github.com/tokatoka/llvm-profparser/codec"
	"github.com/tokatoka/llvm-profparser/endian"
	"github.com/tokatoka/llvm-profparser/errs"
	"github.com/tokatoka/llvm-profparser/format"
	"github.com/tokatoka/llvm-profparser/profile"
	"github.com/tokatoka/llvm-profparser/record"
	"github.com/tokatoka/llvm-profparser/valueprofile"
)

// Header is the indexed profile's preamble. Fields beyond NumProfiles,
// HashType, and HashOffset are only present for schemas that introduced
// them; parseHeader fills in only what the file actually carries, leaving
// the rest zero.
type Header struct {
	Version       uint64
	BinaryIDsSize uint64
	NumProfiles   uint64 // present only when the CSIR flag is set

	HashType   uint64
	HashOffset uint64

	MemProfOffset            uint64 // schema >= 8
	BinaryIDOffset           uint64 // schema >= 9
	TemporalProfTracesOffset uint64 // schema >= 10
	TemporalProfTracesSize   uint64 // schema >= 10
	VTableNamesOffset        uint64 // schema >= 12
}

// trailingField is one entry of the version-gated header table: a minimum
// schema version and the read it performs when the running schema meets it.
// This is table-driven by design — see the component's design note on
// avoiding inline "if version >= N" branches, which scale poorly as LLVM
// adds more trailing fields across releases.
type trailingField struct {
	minSchema uint64
	read      func(c *codec.Cursor, h *Header) error
}

var trailingFields = []trailingField{
	{8, func(c *codec.Cursor, h *Header) error {
		v, err := c.U64()
		h.MemProfOffset = v
		return err
	}},
	{9, func(c *codec.Cursor, h *Header) error {
		v, err := c.U64()
		h.BinaryIDOffset = v
		return err
	}},
	{10, func(c *codec.Cursor, h *Header) error {
		v, err := c.U64()
		h.TemporalProfTracesOffset = v
		if err != nil {
			return err
		}
		v, err = c.U64()
		h.TemporalProfTracesSize = v
		return err
	}},
	{12, func(c *codec.Cursor, h *Header) error {
		v, err := c.U64()
		h.VTableNamesOffset = v
		return err
	}},
}

func parseHeader(c *codec.Cursor) (Header, error) {
	var h Header

	var err error
	if h.Version, err = c.U64(); err != nil {
		return h, err
	}
	if h.BinaryIDsSize, err = c.U64(); err != nil {
		return h, err
	}
	if format.HasFlag(h.Version, format.FlagCSIR) {
		if h.NumProfiles, err = c.U64(); err != nil {
			return h, err
		}
	}
	if h.HashType, err = c.U64(); err != nil {
		return h, err
	}
	if h.HashOffset, err = c.U64(); err != nil {
		return h, err
	}

	schema := format.Schema(h.Version)
	for _, f := range trailingFields {
		if schema < f.minSchema {
			continue
		}
		if err := f.read(c, &h); err != nil {
			return h, err
		}
	}

	return h, nil
}

func parseSummary(c *codec.Cursor) (*profile.Summary, error) {
	numFields, err := c.U64()
	if err != nil {
		return nil, err
	}
	numCutoffs, err := c.U64()
	if err != nil {
		return nil, err
	}

	fields := make([]uint64, numFields)
	for i := range fields {
		v, err := c.U64()
		if err != nil {
			return nil, err
		}
		fields[i] = v
	}

	s := &profile.Summary{}
	named := []*uint64{&s.TotalFunctionCount, &s.MaxFunctionCount, &s.TotalBlockCount, &s.MaxBlockCount, &s.MaxInternalCount}
	for i, f := range fields {
		if i < len(named) {
			*named[i] = f
			continue
		}
		s.ExtraFields = append(s.ExtraFields, f)
	}

	s.Cutoffs = make([]profile.CutoffEntry, numCutoffs)
	for i := range s.Cutoffs {
		cutoff, err := c.U64()
		if err != nil {
			return nil, err
		}
		minCount, err := c.U64()
		if err != nil {
			return nil, err
		}
		numCounts, err := c.U64()
		if err != nil {
			return nil, err
		}
		s.Cutoffs[i] = profile.CutoffEntry{Cutoff: cutoff, MinCount: minCount, NumCounts: numCounts, CutoffIndex: uint64(i)}
	}

	return s, nil
}

// decodeFunctionData decodes one hash-table entry's data_bytes: a sequence
// of per-translation-unit tuples for the same key, repeated until the slice
// is exhausted — one function key can own more than one tuple when the
// indexed profile was built from multiple raw dumps that each instrumented
// that function. Each tuple is
// (fn_hash(u64), num_counters(u64), counters(u64 each), has_value_data(u8),
// [value_data if has_value_data != 0]); the explicit has_value_data flag
// disambiguates where one tuple ends and the next begins, since unlike the
// raw format's fixed-layout function_data array there is no separate table
// of per-function value-site counts to consult here.
func decodeFunctionData(nameHash uint64, data []byte, engine endian.EndianEngine) ([]*record.FunctionRecord, error) {
	c := codec.NewCursor(data, engine)

	var out []*record.FunctionRecord
	for c.Remaining() > 0 {
		fnHash, err := c.U64()
		if err != nil {
			return nil, err
		}
		numCounters, err := c.U64()
		if err != nil {
			return nil, err
		}

		counters := make([]uint64, numCounters)
		for i := range counters {
			v, err := c.U64()
			if err != nil {
				return nil, err
			}
			counters[i] = v
		}

		hasValues, err := c.U8()
		if err != nil {
			return nil, err
		}

		rec := &record.FunctionRecord{NameHash: nameHash, FuncHash: fnHash, Counters: counters}
		if hasValues != 0 {
			vrec, err := valueprofile.Parse(c)
			if err != nil {
				return nil, err
			}
			rec.Values = vrec
		}

		out = append(out, rec)
	}

	return out, nil
}

// Parse decodes an indexed profile. buf must already be known (via its
// magic number) to be an indexed profile.
func Parse(buf []byte) (*profile.Profile, error) {
	if len(buf) < 8 || format.Magic(endian.GetLittleEndianEngine().Uint64(buf)) != format.MagicIndexed {
		return nil, errs.ErrBadMagic
	}

	engine := endian.GetLittleEndianEngine()
	c := codec.NewCursorAt(buf, 8, engine)

	hdr, err := parseHeader(c)
	if err != nil {
		return nil, err
	}

	binaryIDs, err := c.Bytes(int(hdr.BinaryIDsSize))
	if err != nil {
		return nil, err
	}
	if err := c.SkipPad(int(hdr.BinaryIDsSize)); err != nil {
		return nil, err
	}

	summary, err := parseSummary(c)
	if err != nil {
		return nil, err
	}

	entries, err := walkHashTable(buf, int(hdr.HashOffset), engine)
	if err != nil {
		return nil, err
	}

	p := profile.New(hdr.Version)
	p.Summary = summary
	p.BinaryIDs = append([]byte(nil), binaryIDs...)

	for _, entry := range entries {
		name := string(entry.key)
		p.Symtab.AddHashed(entry.hash, name)

		recs, err := decodeFunctionData(entry.hash, entry.data, engine)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			rec.Name = name
			p.AddRecord(rec)
		}
	}

	return p, nil
}
