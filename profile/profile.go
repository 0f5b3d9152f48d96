// Package profile holds the parsed, format-independent representation every
// reader (rawprof, indexedprof, textprof) produces and the merger consumes.
package profile

import (
	"github.com/tokatoka/llvm-profparser/format"
	"github.com/tokatoka/llvm-profparser/record"
	"github.com/tokatoka/llvm-profparser/symtab"
)

// CutoffEntry is one row of an indexed profile's optional summary, reporting
// how many counts cover a given percentile cutoff of total instrumentation.
// CutoffIndex is this entry's position within Summary.Cutoffs, not a value
// read off the wire.
type CutoffEntry struct {
	Cutoff      uint64
	MinCount    uint64
	NumCounts   uint64
	CutoffIndex uint64
}

// Summary is an indexed profile's optional, self-delimited summary block.
// Only the first five general fields are interpreted; anything beyond that
// (a newer LLVM release's addition) is preserved uninterpreted in
// ExtraFields so a round-trip never silently drops data.
type Summary struct {
	TotalFunctionCount uint64
	MaxFunctionCount   uint64
	TotalBlockCount    uint64
	MaxBlockCount      uint64
	MaxInternalCount   uint64
	ExtraFields        []uint64
	Cutoffs            []CutoffEntry
}

// Profile is the in-memory, format-independent profile: a version, a symbol
// table, and the function records keyed by (name hash, func hash).
//
// AddRecord resolves duplicate keys first-wins: the first record seen under
// a given Key is kept, and a later record sharing that key is dropped, its
// counters not added to the kept record (merging same-run duplicates is the
// merge package's job, not the reader's — a reader only needs to decide
// which of two identically-keyed on-disk records survives parsing).
type Profile struct {
	Version   uint64
	Symtab    *symtab.SymTab
	Records    []*record.FunctionRecord
	BinaryIDs  []byte
	Summary    *Summary
	Overflowed bool

	index map[record.Key]int
}

// New returns an empty profile for the given version.
func New(version uint64) *Profile {
	return &Profile{
		Version: version,
		Symtab:  symtab.New(),
		index:   make(map[record.Key]int),
	}
}

// IsIRLevel reports whether the profile was collected via IR-level
// instrumentation rather than front-end instrumentation.
func (p *Profile) IsIRLevel() bool { return format.HasFlag(p.Version, format.FlagIRLevel) }

// HasCSIR reports context-sensitive IR instrumentation.
func (p *Profile) HasCSIR() bool { return format.HasFlag(p.Version, format.FlagCSIR) }

// IsEntryFirst reports whether counter 0 of each record is the function's
// entry count.
func (p *Profile) IsEntryFirst() bool { return format.HasFlag(p.Version, format.FlagEntryFirst) }

// HasMemOPSize reports memop-size value profiling.
func (p *Profile) HasMemOPSize() bool { return format.HasFlag(p.Version, format.FlagMemOPSize) }

// HasTemporal reports the temporal-profiling flag.
func (p *Profile) HasTemporal() bool { return format.HasFlag(p.Version, format.FlagTemporal) }

// HasVTable reports vtable value profiling.
func (p *Profile) HasVTable() bool { return format.HasFlag(p.Version, format.FlagVTable) }

// Schema returns the profile's schema version number (version with the flag
// bits masked off).
func (p *Profile) Schema() uint64 { return format.Schema(p.Version) }

// AddRecord inserts rec, keeping whichever record was added first for a
// given Key and silently dropping later duplicates. Merging same-key
// records that should actually accumulate is the merge package's
// responsibility; see the Profile doc comment.
func (p *Profile) AddRecord(rec *record.FunctionRecord) {
	key := rec.Key()
	if _, exists := p.index[key]; exists {
		return
	}
	p.index[key] = len(p.Records)
	p.Records = append(p.Records, rec)
}

// Lookup returns the record for key, if present.
func (p *Profile) Lookup(key record.Key) (*record.FunctionRecord, bool) {
	i, ok := p.index[key]
	if !ok {
		return nil, false
	}

	return p.Records[i], true
}
