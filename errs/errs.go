// Package errs defines the structured error taxonomy shared by every
// profile reader and the merger.
//
// Each failure mode has a sentinel so callers can match on category with
// errors.Is without caring about the attached detail:
//
//	prof, err := profdata.Parse(path)
//	if errors.Is(err, errs.ErrTruncated) {
//	    // the file was cut off mid-record
//	}
//
// Variants that carry extra detail (the offending offset, the expected vs.
// actual count, ...) are concrete types that wrap their sentinel via
// Unwrap, so errors.Is still matches through them.
package errs

import (
	"errors"
	"fmt"
)

// Sentinels. See the package doc for how to match on these with errors.Is.
var (
	ErrUnknownFormat        = errors.New("profdata: unknown profile format")
	ErrBadMagic             = errors.New("profdata: bad magic number")
	ErrUnsupportedVersion   = errors.New("profdata: unsupported version")
	ErrTruncated            = errors.New("profdata: truncated input")
	ErrBadPadding           = errors.New("profdata: non-zero padding bytes")
	ErrNameDecompressFailed = errors.New("profdata: name block decompression failed")
	ErrBadSymtab            = errors.New("profdata: malformed symbol table")
	ErrCountMismatch        = errors.New("profdata: counter count mismatch")
	ErrCorruptValueData     = errors.New("profdata: corrupt value-profile data")
	ErrMisplacedDirective   = errors.New("profdata: directive after first record")
	ErrBadTextSyntax        = errors.New("profdata: malformed text profile")
	ErrIncompatibleProfiles = errors.New("profdata: incompatible profiles")

	// ErrOverflowDuringMerge is never returned unless merge.Options.Strict is
	// set; by default a saturating overflow is reported only via
	// Profile.Overflowed. See merge.Merge.
	ErrOverflowDuringMerge = errors.New("profdata: counter saturated during merge")
)

// Truncated reports that the input ended before a fixed-size field could be
// read in full.
type Truncated struct {
	Need   int
	Got    int
	Offset int
}

func (e *Truncated) Error() string {
	return fmt.Sprintf("%s at offset %d: need %d bytes, got %d", ErrTruncated, e.Offset, e.Need, e.Got)
}

func (e *Truncated) Unwrap() error { return ErrTruncated }

// BadPadding reports a variable-length region whose trailing alignment
// padding (§3-I5) was not all zero.
type BadPadding struct {
	Offset int
}

func (e *BadPadding) Error() string {
	return fmt.Sprintf("%s at offset %d", ErrBadPadding, e.Offset)
}

func (e *BadPadding) Unwrap() error { return ErrBadPadding }

// UnsupportedVersion reports a schema version this reader has no header
// layout for.
type UnsupportedVersion struct {
	Version uint64
}

func (e *UnsupportedVersion) Error() string {
	return fmt.Sprintf("%s: %#x", ErrUnsupportedVersion, e.Version)
}

func (e *UnsupportedVersion) Unwrap() error { return ErrUnsupportedVersion }

// CountMismatch reports a counter (or value-site) count that disagrees with
// what the format declared statically for a function.
type CountMismatch struct {
	Expected int
	Got      int
	Function string
}

func (e *CountMismatch) Error() string {
	return fmt.Sprintf("%s for %q: expected %d, got %d", ErrCountMismatch, e.Function, e.Expected, e.Got)
}

func (e *CountMismatch) Unwrap() error { return ErrCountMismatch }

// CorruptValueData reports a value-profile block whose declared total size
// does not match the bytes it actually consumed.
type CorruptValueData struct {
	Offset int
	Reason string
}

func (e *CorruptValueData) Error() string {
	return fmt.Sprintf("%s at offset %d: %s", ErrCorruptValueData, e.Offset, e.Reason)
}

func (e *CorruptValueData) Unwrap() error { return ErrCorruptValueData }

// MisplacedDirective reports a ":directive" line found after the first
// function record in a text profile.
type MisplacedDirective struct {
	Line int
}

func (e *MisplacedDirective) Error() string {
	return fmt.Sprintf("%s at line %d", ErrMisplacedDirective, e.Line)
}

func (e *MisplacedDirective) Unwrap() error { return ErrMisplacedDirective }

// BadTextSyntax reports a text-profile line that does not parse per the
// grammar in textprof.
type BadTextSyntax struct {
	Line int
}

func (e *BadTextSyntax) Error() string {
	return fmt.Sprintf("%s at line %d", ErrBadTextSyntax, e.Line)
}

func (e *BadTextSyntax) Unwrap() error { return ErrBadTextSyntax }

// IncompatibleProfiles reports that two profiles being merged disagree on a
// property the merger requires to match (IR-level / CSIR flags today).
type IncompatibleProfiles struct {
	Reason string
}

func (e *IncompatibleProfiles) Error() string {
	return fmt.Sprintf("%s: %s", ErrIncompatibleProfiles, e.Reason)
}

func (e *IncompatibleProfiles) Unwrap() error { return ErrIncompatibleProfiles }
