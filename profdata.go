// Package profdata is a drop-in reimplementation of the `llvm-profdata`
// reader/merger: it parses the four on-disk instrumentation-profile
// encodings LLVM produces (indexed, raw64, raw32, text), merges them under
// saturating, weight-scaled accumulation, and re-emits the text encoding.
//
// # Basic usage
//
// Parsing a single profile, in whichever of the four encodings it happens
// to be:
//
//	import "github.com/tokatoka/llvm-profparser"
//
//	prof, err := profdata.Parse("default.profdata")
//
// Merging several raw dumps the way `llvm-profdata merge a.profraw
// b.profraw -o merged.profdata` would, then writing the result back out in
// the text encoding:
//
//	merged, err := profdata.Merge([]string{"a.profraw", "b.profraw"}, merge.Options{})
//	err = profdata.WriteText(merged, os.Stdout)
//
// # Package structure
//
// This package provides the four entry points external callers (a CLI
// front-end, a report renderer) need. The readers, the merger, and the data
// model live in their own packages (rawprof, indexedprof, textprof, merge,
// profile) for direct use by callers who already know which encoding they
// have and don't need format auto-detection.
package profdata

import (
	"bytes"
	"io"
	"os"

	"github.com/tokatoka/llvm-profparser/endian"
	"github.com/tokatoka/llvm-profparser/errs"
	"github.com/tokatoka/llvm-profparser/format"
	"github.com/tokatoka/llvm-profparser/indexedprof"
	"github.com/tokatoka/llvm-profparser/merge"
	"github.com/tokatoka/llvm-profparser/profile"
	"github.com/tokatoka/llvm-profparser/rawprof"
	"github.com/tokatoka/llvm-profparser/textprof"
)

// Parse reads path and parses it with ParseBytes.
func Parse(path string) (*profile.Profile, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseBytes(buf)
}

// ParseBytes detects buf's encoding and parses it, trying indexed, then
// raw64, then raw32, then falling back to text per §4.9: the only format
// with no magic number, so it is tried last and only accepted when buf
// looks like plausible text rather than unrecognized binary garbage.
func ParseBytes(buf []byte) (*profile.Profile, error) {
	if isIndexed(buf) {
		return indexedprof.Parse(buf)
	}
	if isRaw(buf) {
		return rawprof.Parse(buf)
	}
	if looksLikeText(buf) {
		return textprof.Read(bytes.NewReader(buf))
	}

	return nil, errs.ErrUnknownFormat
}

func isIndexed(buf []byte) bool {
	if len(buf) < 8 {
		return false
	}

	return format.Magic(endian.GetLittleEndianEngine().Uint64(buf)) == format.MagicIndexed
}

func isRaw(buf []byte) bool {
	_, _, ok := rawprof.Detect(buf)
	return ok
}

// looksLikeText reports whether buf, having failed every binary magic
// check, is plausible text input: empty (an empty file parses to an empty
// profile), a leading ':' directive, or a first non-whitespace byte that is
// printable ASCII rather than a control byte.
func looksLikeText(buf []byte) bool {
	i := 0
	for i < len(buf) && isSpace(buf[i]) {
		i++
	}
	if i == len(buf) {
		return true
	}

	b := buf[i]
	if b == ':' {
		return true
	}

	return b >= 0x20 && b < 0x7f
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

// Merge parses every path and combines the results with merge.Merge.
func Merge(paths []string, opts merge.Options) (*profile.Profile, error) {
	profiles := make([]*profile.Profile, len(paths))
	for i, path := range paths {
		p, err := Parse(path)
		if err != nil {
			return nil, err
		}
		profiles[i] = p
	}

	return merge.Merge(profiles, opts)
}

// WriteText renders p in the `.proftext` encoding, the only format this
// module can also emit (see the module's Non-goals).
func WriteText(p *profile.Profile, w io.Writer) error {
	return textprof.Write(p, w)
}
