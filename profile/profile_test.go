package profile

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tokatoka/llvm-profparser/format"
	"github.com/tokatoka/llvm-profparser/record"
)

func TestFlagAccessors(t *testing.T) {
	version := uint64(9) | format.FlagIRLevel | format.FlagEntryFirst
	p := New(version)

	require.True(t, p.IsIRLevel())
	require.True(t, p.IsEntryFirst())
	require.False(t, p.HasCSIR())
	require.False(t, p.HasVTable())
	require.Equal(t, uint64(9), p.Schema())
}

func TestAddRecordFirstWins(t *testing.T) {
	p := New(9)
	key := record.Key{NameHash: 1, FuncHash: 2}

	first := &record.FunctionRecord{Name: "f", NameHash: 1, FuncHash: 2, Counters: []uint64{10}}
	second := &record.FunctionRecord{Name: "f", NameHash: 1, FuncHash: 2, Counters: []uint64{99}}

	p.AddRecord(first)
	p.AddRecord(second)

	require.Len(t, p.Records, 1)
	got, ok := p.Lookup(key)
	require.True(t, ok)
	require.Equal(t, uint64(10), got.Counters[0])
}

func TestLookupMiss(t *testing.T) {
	p := New(9)
	_, ok := p.Lookup(record.Key{NameHash: 1, FuncHash: 1})
	require.False(t, ok)
}
