// Package merge implements the weighted, saturating accumulation of
// multiple parsed profiles into one, per SPEC_FULL.md §4.8.
package merge

import (
	"math"

	"github.com/tokatoka/llvm-profparser/errs"
	"github.com/tokatoka/llvm-profparser/profile"
	"github.com/tokatoka/llvm-profparser/record"
	"github.com/tokatoka/llvm-profparser/valueprofile"
)

// Options configures a Merge call. The zero value merges every input with
// an implicit weight of 1 and treats counter overflow as non-fatal (the
// default the spec's own text calls out: overflow is "reported as a flag").
type Options struct {
	// Weights scales input i's counters before accumulation. A missing or
	// zero entry is treated as weight 1, matching "each input carries an
	// implicit weight of 1 unless the caller passes weights".
	Weights []uint64

	// Strict turns a saturating overflow during merge into a returned
	// error (errs.ErrOverflowDuringMerge) instead of only setting the
	// output profile's Overflowed flag.
	Strict bool
}

func (o Options) weightFor(i int) uint64 {
	if i >= len(o.Weights) || o.Weights[i] == 0 {
		return 1
	}

	return o.Weights[i]
}

// Merge combines profiles into one, in order, per Options.
func Merge(profiles []*profile.Profile, opts Options) (*profile.Profile, error) {
	if len(profiles) == 0 {
		return profile.New(0), nil
	}

	out := profile.New(profiles[0].Version)
	overflowed := false

	for i, p := range profiles {
		if i > 0 {
			if err := checkCompatible(out, p); err != nil {
				return nil, err
			}
		}

		out.Symtab.Merge(p.Symtab)
		if p.Overflowed {
			overflowed = true
		}

		weight := opts.weightFor(i)
		for _, rec := range p.Records {
			ofl, err := mergeRecord(out, rec, weight)
			if err != nil {
				return nil, err
			}
			if ofl {
				overflowed = true
			}
		}
	}

	out.Overflowed = overflowed
	if overflowed && opts.Strict {
		return out, errs.ErrOverflowDuringMerge
	}

	return out, nil
}

func checkCompatible(out, p *profile.Profile) error {
	if out.IsIRLevel() != p.IsIRLevel() {
		return &errs.IncompatibleProfiles{Reason: "IR-level flag mismatch"}
	}
	if out.HasCSIR() != p.HasCSIR() {
		return &errs.IncompatibleProfiles{Reason: "CSIR flag mismatch"}
	}

	return nil
}

// mergeRecord folds rec (scaled by weight) into out, either inserting a
// fresh clone or accumulating into an existing record with the same key.
// It reports whether any counter saturated.
func mergeRecord(out *profile.Profile, rec *record.FunctionRecord, weight uint64) (bool, error) {
	existing, ok := out.Lookup(rec.Key())
	if !ok {
		clone := rec.Clone()
		overflowed := false
		if weight != 1 {
			for i, c := range clone.Counters {
				v, ofl := satMul(c, weight)
				clone.Counters[i] = v
				overflowed = overflowed || ofl
			}
			scaleValues(clone.Values, weight)
		}
		out.AddRecord(clone)

		return overflowed, nil
	}

	if len(existing.Counters) != len(rec.Counters) {
		return false, &errs.CountMismatch{
			Expected: len(existing.Counters),
			Got:      len(rec.Counters),
			Function: rec.Name,
		}
	}

	overflowed := false
	for i, c := range rec.Counters {
		scaled, ofl1 := satMul(c, weight)
		sum, ofl2 := satAdd(existing.Counters[i], scaled)
		existing.Counters[i] = sum
		overflowed = overflowed || ofl1 || ofl2
	}

	ofl, err := mergeValues(existing, rec.Values, weight)
	if err != nil {
		return false, err
	}

	return overflowed || ofl, nil
}

func mergeValues(existing *record.FunctionRecord, incoming *valueprofile.Record, weight uint64) (bool, error) {
	if incoming == nil || len(incoming.ByKind) == 0 {
		return false, nil
	}
	if existing.Values == nil {
		existing.Values = valueprofile.NewRecord()
	}

	overflowed := false
	for kind, sites := range incoming.ByKind {
		existingSites, ok := existing.Values.ByKind[kind]
		if ok && len(existingSites) != len(sites) {
			return false, &errs.CountMismatch{
				Expected: len(existingSites),
				Got:      len(sites),
				Function: existing.Name,
			}
		}
		if !ok {
			existingSites = make(valueprofile.Sites, len(sites))
		}

		for i, site := range sites {
			for _, pair := range site.Pairs {
				scaled, ofl := satMul(pair.Count, weight)
				overflowed = overflowed || ofl
				if addSaturating(&existingSites[i], pair.Value, scaled) {
					overflowed = true
				}
			}
		}
		existing.Values.ByKind[kind] = existingSites
	}

	return overflowed, nil
}

func scaleValues(v *valueprofile.Record, weight uint64) {
	if v == nil || weight == 1 {
		return
	}
	for kind, sites := range v.ByKind {
		for i := range sites {
			for j := range sites[i].Pairs {
				scaled, _ := satMul(sites[i].Pairs[j].Count, weight)
				sites[i].Pairs[j].Count = scaled
			}
		}
		v.ByKind[kind] = sites
	}
}

// addSaturating folds (value, count) into site, incrementing a matching
// entry with saturating arithmetic (site.Add itself saturates but doesn't
// report it) and reporting whether the add saturated.
func addSaturating(site *valueprofile.Site, value, count uint64) bool {
	for i := range site.Pairs {
		if site.Pairs[i].Value == value {
			sum, ofl := satAdd(site.Pairs[i].Count, count)
			site.Pairs[i].Count = sum
			return ofl
		}
	}
	site.Pairs = append(site.Pairs, valueprofile.Pair{Value: value, Count: count})

	return false
}

// satAdd adds a and b, saturating at math.MaxUint64, reporting whether it
// saturated.
func satAdd(a, b uint64) (uint64, bool) {
	s := a + b
	if s < a {
		return math.MaxUint64, true
	}

	return s, false
}

// satMul multiplies a by weight, saturating at math.MaxUint64.
func satMul(a, weight uint64) (uint64, bool) {
	if weight == 1 || a == 0 {
		return a, false
	}
	if a > math.MaxUint64/weight {
		return math.MaxUint64, true
	}

	return a * weight, false
}
