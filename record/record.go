// Package record defines the per-function profile record: a function's
// name, hashes, basic-block counters, and value-profiling data.
package record

import "github.com/tokatoka/llvm-profparser/valueprofile"

// Key identifies a function record across profiles being merged: two
// records merge together only when both their name hash and function hash
// agree, so that a recompiled function (whose structure hash changed) does
// not get its counters blended with stale data from a previous build.
type Key struct {
	NameHash uint64
	FuncHash uint64
}

// FunctionRecord is one function's complete profile data.
type FunctionRecord struct {
	Name     string
	NameHash uint64
	FuncHash uint64
	Counters []uint64
	Values   *valueprofile.Record
}

// Key returns the record's merge identity.
func (r *FunctionRecord) Key() Key {
	return Key{NameHash: r.NameHash, FuncHash: r.FuncHash}
}

// Clone returns an independent deep copy.
func (r *FunctionRecord) Clone() *FunctionRecord {
	out := &FunctionRecord{
		Name:     r.Name,
		NameHash: r.NameHash,
		FuncHash: r.FuncHash,
		Counters: make([]uint64, len(r.Counters)),
	}
	copy(out.Counters, r.Counters)
	if r.Values != nil {
		out.Values = r.Values.Clone()
	}

	return out
}

// Equal reports whether r and other hold the same name, hashes, counters,
// and value-profile data, used by tests to assert round-trip and merge
// results.
func (r *FunctionRecord) Equal(other *FunctionRecord) bool {
	if r.Name != other.Name || r.NameHash != other.NameHash || r.FuncHash != other.FuncHash {
		return false
	}
	if len(r.Counters) != len(other.Counters) {
		return false
	}
	for i := range r.Counters {
		if r.Counters[i] != other.Counters[i] {
			return false
		}
	}

	return valuesEqual(r.Values, other.Values)
}

func valuesEqual(a, b *valueprofile.Record) bool {
	if a == nil || b == nil {
		return (a == nil || len(a.ByKind) == 0) && (b == nil || len(b.ByKind) == 0)
	}
	if len(a.ByKind) != len(b.ByKind) {
		return false
	}
	for kind, aSites := range a.ByKind {
		bSites, ok := b.ByKind[kind]
		if !ok || len(aSites) != len(bSites) {
			return false
		}
		for i := range aSites {
			if !aSites[i].Equal(bSites[i]) {
				return false
			}
		}
	}

	return true
}
