// Package valueprofile implements value-profiling sites: the (value, count)
// multisets attached to indirect-call, memop-size, and (since the vtable
// flag) vtable instrumentation points, plus their self-delimited on-disk
// encoding shared by the raw and indexed readers.
package valueprofile

import (
	"github.com/tokatoka/llvm-profparser/codec"
	"github.com/tokatoka/llvm-profparser/errs"
	"github.com/tokatoka/llvm-profparser/format"
)

// Pair is one (value, count) observation within a Site.
type Pair struct {
	Value uint64
	Count uint64
}

// Site is the multiset of values observed at a single instrumentation
// point, e.g. the distinct callee addresses seen at one indirect call site.
type Site struct {
	Pairs []Pair
}

// Add folds a single (value, count) observation into the site, summing into
// an existing entry for the same value if present.
func (s *Site) Add(value, count uint64) {
	for i := range s.Pairs {
		if s.Pairs[i].Value == value {
			s.Pairs[i].Count = satAdd(s.Pairs[i].Count, count)
			return
		}
	}
	s.Pairs = append(s.Pairs, Pair{Value: value, Count: count})
}

// MergeFrom folds every pair of other into s.
func (s *Site) MergeFrom(other Site) {
	for _, p := range other.Pairs {
		s.Add(p.Value, p.Count)
	}
}

// Equal reports whether s and other hold the same (value, count) set,
// independent of pair order.
func (s Site) Equal(other Site) bool {
	if len(s.Pairs) != len(other.Pairs) {
		return false
	}

	counts := make(map[uint64]uint64, len(s.Pairs))
	for _, p := range s.Pairs {
		counts[p.Value] = p.Count
	}
	for _, p := range other.Pairs {
		c, ok := counts[p.Value]
		if !ok || c != p.Count {
			return false
		}
	}

	return true
}

// Clone returns an independent copy of the site.
func (s Site) Clone() Site {
	out := Site{Pairs: make([]Pair, len(s.Pairs))}
	copy(out.Pairs, s.Pairs)

	return out
}

// Sites is the ordered list of value-profiling sites for one kind within a
// single function record; index i corresponds to the i-th instrumented
// instruction of that kind, in the order the compiler emitted them.
type Sites []Site

// MergeFrom folds other into sites position-by-position, extending sites
// with zero-value Site entries if other is longer.
func (sites *Sites) MergeFrom(other Sites) {
	for len(*sites) < len(other) {
		*sites = append(*sites, Site{})
	}
	for i, o := range other {
		(*sites)[i].MergeFrom(o)
	}
}

// Record holds every value-profiling site attached to one function record,
// keyed by raw value kind so that a kind this reader doesn't name (anything
// beyond format.ValueKindVTable) still round-trips as an ordinary map entry.
type Record struct {
	ByKind map[format.ValueKind]Sites
}

// NewRecord returns an empty value-profile record.
func NewRecord() *Record {
	return &Record{ByKind: make(map[format.ValueKind]Sites)}
}

// MergeFrom folds other into r, kind by kind.
func (r *Record) MergeFrom(other *Record) {
	if other == nil {
		return
	}
	for kind, sites := range other.ByKind {
		existing := r.ByKind[kind]
		existing.MergeFrom(sites)
		r.ByKind[kind] = existing
	}
}

// Clone returns an independent deep copy.
func (r *Record) Clone() *Record {
	out := NewRecord()
	for kind, sites := range r.ByKind {
		cp := make(Sites, len(sites))
		for i, s := range sites {
			cp[i] = s.Clone()
		}
		out.ByKind[kind] = cp
	}

	return out
}

// Parse decodes a self-delimiting value-profile data block from c, per the
// layout shared by the raw and indexed formats:
//
//	total_size       uleb128  (bytes consumed by this block, including this field's own encoding)
//	num_value_kinds  uleb128
//	  for each kind:
//	    value_kind       uleb128
//	    num_sites        uleb128
//	    for each site:
//	      num_value_data  uleb128
//	      for each value_data:
//	        value           uleb128
//	        count           uleb128
//
// total_size lets a reader skip a block it doesn't want to fully decode, and
// lets Parse detect a corrupt block whose declared and actual sizes
// disagree without needing to know the byte length up front.
func Parse(c *codec.Cursor) (*Record, error) {
	start := c.Offset()

	totalSize, err := c.ULEB128()
	if err != nil {
		return nil, err
	}
	if totalSize == 0 {
		return NewRecord(), nil
	}

	numKinds, err := c.ULEB128()
	if err != nil {
		return nil, err
	}

	rec := NewRecord()
	for k := uint64(0); k < numKinds; k++ {
		kindRaw, err := c.ULEB128()
		if err != nil {
			return nil, err
		}
		kind := format.ValueKind(kindRaw)

		numSites, err := c.ULEB128()
		if err != nil {
			return nil, err
		}

		sites := make(Sites, numSites)
		for s := uint64(0); s < numSites; s++ {
			numData, err := c.ULEB128()
			if err != nil {
				return nil, err
			}

			site := Site{Pairs: make([]Pair, numData)}
			for d := uint64(0); d < numData; d++ {
				value, err := c.ULEB128()
				if err != nil {
					return nil, err
				}
				count, err := c.ULEB128()
				if err != nil {
					return nil, err
				}
				site.Pairs[d] = Pair{Value: value, Count: count}
			}
			sites[s] = site
		}
		rec.ByKind[kind] = sites
	}

	consumed := uint64(c.Offset() - start)
	if consumed != totalSize {
		return nil, &errs.CorruptValueData{
			Offset: start,
			Reason: "declared total_size disagrees with bytes consumed",
		}
	}

	return rec, nil
}

func satAdd(a, b uint64) uint64 {
	s := a + b
	if s < a {
		return ^uint64(0)
	}

	return s
}
