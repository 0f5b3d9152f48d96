package merge

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tokatoka/llvm-profparser/errs"
	"github.com/tokatoka/llvm-profparser/format"
	"github.com/tokatoka/llvm-profparser/profile"
	"github.com/tokatoka/llvm-profparser/record"
	"github.com/tokatoka/llvm-profparser/valueprofile"
)

func newProfile(version uint64, recs ...*record.FunctionRecord) *profile.Profile {
	p := profile.New(version)
	for _, r := range recs {
		p.Symtab.AddHashed(r.NameHash, r.Name)
		p.AddRecord(r)
	}

	return p
}

func TestMergeSaturatingCounters(t *testing.T) {
	// Scenario 2: two profiles each with record "bar", counters
	// [MaxUint64-10, 10]; merged counters are [MaxUint64, 20] and the
	// overflow flag is set.
	a := newProfile(1, &record.FunctionRecord{Name: "bar", NameHash: 1, FuncHash: 1, Counters: []uint64{math.MaxUint64 - 10, 10}})
	b := newProfile(1, &record.FunctionRecord{Name: "bar", NameHash: 1, FuncHash: 1, Counters: []uint64{math.MaxUint64 - 10, 10}})

	out, err := Merge([]*profile.Profile{a, b}, Options{})
	require.NoError(t, err)

	require.Len(t, out.Records, 1)
	require.Equal(t, []uint64{math.MaxUint64, 20}, out.Records[0].Counters)
	require.True(t, out.Overflowed)
}

func TestMergeCountMismatchIsFatal(t *testing.T) {
	// Scenario 3.
	a := newProfile(1, &record.FunctionRecord{Name: "bar", NameHash: 1, FuncHash: 1, Counters: []uint64{1, 2, 3}})
	b := newProfile(1, &record.FunctionRecord{Name: "bar", NameHash: 1, FuncHash: 1, Counters: []uint64{1, 2, 3, 4}})

	_, err := Merge([]*profile.Profile{a, b}, Options{})
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrCountMismatch)
}

func TestMergeValueSites(t *testing.T) {
	// Scenario 4.
	recA := &record.FunctionRecord{Name: "f", NameHash: 1, FuncHash: 1, Counters: []uint64{1}, Values: valueprofile.NewRecord()}
	recA.Values.ByKind[format.ValueKindIndirectCall] = valueprofile.Sites{{Pairs: []valueprofile.Pair{{Value: 0xAA, Count: 5}}}}

	recB := &record.FunctionRecord{Name: "f", NameHash: 1, FuncHash: 1, Counters: []uint64{1}, Values: valueprofile.NewRecord()}
	recB.Values.ByKind[format.ValueKindIndirectCall] = valueprofile.Sites{{Pairs: []valueprofile.Pair{{Value: 0xAA, Count: 7}, {Value: 0xBB, Count: 1}}}}

	a := newProfile(1, recA)
	b := newProfile(1, recB)

	out, err := Merge([]*profile.Profile{a, b}, Options{})
	require.NoError(t, err)

	site := out.Records[0].Values.ByKind[format.ValueKindIndirectCall][0]
	want := valueprofile.Site{Pairs: []valueprofile.Pair{{Value: 0xAA, Count: 12}, {Value: 0xBB, Count: 1}}}
	require.True(t, site.Equal(want))
}

func TestMergeIdempotent(t *testing.T) {
	// P2: merge([p]) == p.
	p := newProfile(format.FlagIRLevel|1, &record.FunctionRecord{Name: "f", NameHash: 1, FuncHash: 1, Counters: []uint64{1, 2}})

	out, err := Merge([]*profile.Profile{p}, Options{})
	require.NoError(t, err)

	require.Equal(t, p.Version, out.Version)
	require.Len(t, out.Records, 1)
	require.True(t, p.Records[0].Equal(out.Records[0]))
	require.Equal(t, p.Symtab.Len(), out.Symtab.Len())
}

func TestMergeCommutative(t *testing.T) {
	// P3: merge([a,b]) and merge([b,a]) agree as sets.
	a := newProfile(1, &record.FunctionRecord{Name: "f", NameHash: 1, FuncHash: 1, Counters: []uint64{1}})
	b := newProfile(1, &record.FunctionRecord{Name: "g", NameHash: 2, FuncHash: 2, Counters: []uint64{2}})

	ab, err := Merge([]*profile.Profile{a, b}, Options{})
	require.NoError(t, err)
	ba, err := Merge([]*profile.Profile{b, a}, Options{})
	require.NoError(t, err)

	require.ElementsMatch(t, keysOf(ab), keysOf(ba))
}

func TestMergeWeighted(t *testing.T) {
	a := newProfile(1, &record.FunctionRecord{Name: "f", NameHash: 1, FuncHash: 1, Counters: []uint64{10}})
	b := newProfile(1, &record.FunctionRecord{Name: "f", NameHash: 1, FuncHash: 1, Counters: []uint64{10}})

	out, err := Merge([]*profile.Profile{a, b}, Options{Weights: []uint64{1, 3}})
	require.NoError(t, err)
	require.Equal(t, []uint64{40}, out.Records[0].Counters)
}

func TestMergeIncompatibleProfilesFails(t *testing.T) {
	a := newProfile(format.FlagIRLevel)
	b := newProfile(0)

	_, err := Merge([]*profile.Profile{a, b}, Options{})
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrIncompatibleProfiles)
}

func TestMergeStrictOverflowReturnsError(t *testing.T) {
	a := newProfile(1, &record.FunctionRecord{Name: "bar", NameHash: 1, FuncHash: 1, Counters: []uint64{math.MaxUint64}})
	b := newProfile(1, &record.FunctionRecord{Name: "bar", NameHash: 1, FuncHash: 1, Counters: []uint64{1}})

	out, err := Merge([]*profile.Profile{a, b}, Options{Strict: true})
	require.ErrorIs(t, err, errs.ErrOverflowDuringMerge)
	require.True(t, out.Overflowed)
}

func keysOf(p *profile.Profile) []record.Key {
	out := make([]record.Key, len(p.Records))
	for i, r := range p.Records {
		out[i] = r.Key()
	}

	return out
}
