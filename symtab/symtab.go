// Package symtab implements the profile symbol table: the name<->hash
// mapping shared by every function record.
//
// Name hashing uses MD5 rather than a faster non-cryptographic hash because
// the hash is a wire value other llvm-profdata-compatible tools must be able
// to reproduce bit-for-bit; it is not a performance-motivated internal detail
// like the hash a cache or index would pick for itself.
package symtab

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"io"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/tokatoka/llvm-profparser/errs"
)

// Hash computes the wire name hash: the first 8 bytes of the MD5 digest of
// name, read little-endian.
func Hash(name string) uint64 {
	sum := md5.Sum([]byte(name))
	return binary.LittleEndian.Uint64(sum[:8])
}

// SymTab maps name hashes to function names. Hash collisions are resolved by
// last-write-wins, matching the reference tool's symbol table: a later
// Add/AddHashed for an already-present hash replaces the stored name and
// increments Collisions, it does not reject the insert.
type SymTab struct {
	names      map[uint64]string
	collisions int
}

// New returns an empty symbol table.
func New() *SymTab {
	return &SymTab{names: make(map[uint64]string)}
}

// Add hashes name and inserts it, returning the hash.
func (s *SymTab) Add(name string) uint64 {
	h := Hash(name)
	s.AddHashed(h, name)

	return h
}

// AddHashed inserts a name under an already-computed hash, as used by
// readers that receive the hash on the wire (function records store
// name_hash directly; only the indexed/raw name blocks carry the string).
func (s *SymTab) AddHashed(hash uint64, name string) {
	if existing, ok := s.names[hash]; ok && existing != name {
		s.collisions++
	}
	s.names[hash] = name
}

// Get returns the name for hash, if known.
func (s *SymTab) Get(hash uint64) (string, bool) {
	name, ok := s.names[hash]
	return name, ok
}

// Len returns the number of distinct hashes held.
func (s *SymTab) Len() int { return len(s.names) }

// Collisions returns how many inserts observed a hash already bound to a
// different name.
func (s *SymTab) Collisions() int { return s.collisions }

// Clone returns an independent copy.
func (s *SymTab) Clone() *SymTab {
	out := New()
	for h, n := range s.names {
		out.names[h] = n
	}
	out.collisions = s.collisions

	return out
}

// Merge folds other into s in place. Where a hash is already bound in s to a
// different name, s keeps its existing name (first-seen wins) and the
// collision is counted.
func (s *SymTab) Merge(other *SymTab) {
	for h, n := range other.names {
		if existing, ok := s.names[h]; ok {
			if existing != n {
				s.collisions++
			}
			continue
		}
		s.names[h] = n
	}
}

// Names returns every known name, in no particular order.
func (s *SymTab) Names() []string {
	out := make([]string, 0, len(s.names))
	for _, n := range s.names {
		out = append(out, n)
	}

	return out
}

// ParseNameBlock decodes a symbol-table name block: a sequence of
// \x01-separated names, optionally zlib-compressed. compressed is supplied
// by the caller and selects whether raw is first inflated; no length prefix
// is read from raw to decide this. rawprof always passes false, and
// indexedprof does not call ParseNameBlock (it takes names from its
// hash-table keys).
//
// Each decoded name is hashed with Hash and inserted via AddHashed.
func (s *SymTab) ParseNameBlock(raw []byte, compressed bool) error {
	data := raw
	if compressed {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return &wrapNameErr{err}
		}
		defer zr.Close()

		inflated, err := io.ReadAll(zr)
		if err != nil {
			return &wrapNameErr{err}
		}
		data = inflated
	}

	for _, name := range strings.Split(string(data), "\x01") {
		if name == "" {
			continue
		}
		s.Add(name)
	}

	return nil
}

type wrapNameErr struct{ cause error }

func (e *wrapNameErr) Error() string { return errs.ErrNameDecompressFailed.Error() + ": " + e.cause.Error() }
func (e *wrapNameErr) Unwrap() error { return errs.ErrNameDecompressFailed }
