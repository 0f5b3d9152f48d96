// Package textprof reads and writes the human-authored `.proftext` format:
// a line-oriented encoding used for hand-written fixtures and `show --text`
// output. It is the only format this module can also emit; the three
// binary readers (rawprof, indexedprof) are read-only per the module's
// Non-goals.
package textprof

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/tokatoka/llvm-profparser/errs"
	"github.com/tokatoka/llvm-profparser/format"
	"github.com/tokatoka/llvm-profparser/profile"
	"github.com/tokatoka/llvm-profparser/record"
	"github.com/tokatoka/llvm-profparser/valueprofile"
)

// directives maps a text profile's leading ":xxx" tokens to the version
// flag bit they set. Table-driven for the same reason indexedprof's header
// fields are: adding a new directive in a future LLVM release means adding
// a row here, not threading another inline branch through the parser.
var directives = map[string]uint64{
	":ir":          format.FlagIRLevel,
	":csir":        format.FlagCSIR,
	":entry_first": format.FlagEntryFirst,
	":memop_size":  format.FlagMemOPSize,
	":temporal":    format.FlagTemporal,
	":vtable":      format.FlagVTable,
}

// lineReader yields non-blank, non-comment lines one at a time and supports
// pushing a single line back, which the value-profile section needs: its
// leading "num-value-kinds" line is optional, so the reader has to look one
// line ahead to decide whether a section is present at all and put the line
// back if it turns out to belong to the next record instead.
type lineReader struct {
	sc      *bufio.Scanner
	lineNo  int
	pending string
	hasPend bool
}

func newLineReader(r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &lineReader{sc: sc}
}

func (lr *lineReader) next() (string, bool) {
	if lr.hasPend {
		lr.hasPend = false
		return lr.pending, true
	}
	for lr.sc.Scan() {
		lr.lineNo++
		line := strings.TrimSpace(lr.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, true
	}
	return "", false
}

func (lr *lineReader) pushBack(line string) {
	lr.pending = line
	lr.hasPend = true
}

func (lr *lineReader) err() error { return lr.sc.Err() }

// Read parses a text profile from r per the grammar in SPEC_FULL.md §4.7.
func Read(r io.Reader) (*profile.Profile, error) {
	lr := newLineReader(r)

	var version uint64
	seenRecord := false

	p := profile.New(0)

	for {
		line, ok := lr.next()
		if !ok {
			break
		}

		if strings.HasPrefix(line, ":") {
			if seenRecord {
				return nil, &errs.MisplacedDirective{Line: lr.lineNo}
			}
			flag, known := directives[line]
			if !known {
				return nil, &errs.BadTextSyntax{Line: lr.lineNo}
			}
			version |= flag
			continue
		}

		seenRecord = true
		name := line

		hashLine, ok := lr.next()
		if !ok {
			return nil, &errs.BadTextSyntax{Line: lr.lineNo}
		}
		fnHash, err := strconv.ParseUint(hashLine, 0, 64)
		if err != nil {
			return nil, &errs.BadTextSyntax{Line: lr.lineNo}
		}

		numCountersLine, ok := lr.next()
		if !ok {
			return nil, &errs.BadTextSyntax{Line: lr.lineNo}
		}
		numCounters, err := strconv.ParseUint(numCountersLine, 0, 64)
		if err != nil {
			return nil, &errs.BadTextSyntax{Line: lr.lineNo}
		}

		counters := make([]uint64, numCounters)
		for i := range counters {
			cLine, ok := lr.next()
			if !ok {
				return nil, &errs.BadTextSyntax{Line: lr.lineNo}
			}
			v, err := strconv.ParseUint(cLine, 0, 64)
			if err != nil {
				return nil, &errs.BadTextSyntax{Line: lr.lineNo}
			}
			counters[i] = v
		}

		rec := &record.FunctionRecord{
			Name:     name,
			FuncHash: fnHash,
			Counters: counters,
		}

		values, err := readValueSection(lr)
		if err != nil {
			return nil, err
		}
		rec.Values = values

		rec.NameHash = p.Symtab.Add(name)
		p.AddRecord(rec)
	}

	if err := lr.err(); err != nil {
		return nil, err
	}

	p.Version = version

	return p, nil
}

// readValueSection consumes the optional value-profile section following a
// record's counters. Its leading line is a plain integer ("num value
// kinds"); readValueSection peeks that line and, if it is not a bare
// non-negative integer (i.e. it is the next record's function name, a
// directive, or EOF), pushes it back unconsumed and reports no section.
func readValueSection(lr *lineReader) (*valueprofile.Record, error) {
	line, ok := lr.next()
	if !ok {
		return nil, nil
	}

	numKinds, err := strconv.ParseUint(line, 0, 64)
	if err != nil {
		lr.pushBack(line)
		return nil, nil
	}
	if numKinds == 0 {
		return nil, nil
	}

	vrec := valueprofile.NewRecord()
	for k := uint64(0); k < numKinds; k++ {
		kindLine, ok := lr.next()
		if !ok {
			return nil, &errs.BadTextSyntax{Line: lr.lineNo}
		}
		fields := strings.Fields(kindLine)
		if len(fields) != 2 {
			return nil, &errs.BadTextSyntax{Line: lr.lineNo}
		}
		kindVal, err := strconv.ParseUint(fields[0], 0, 32)
		if err != nil {
			return nil, &errs.BadTextSyntax{Line: lr.lineNo}
		}
		numSites, err := strconv.ParseUint(fields[1], 0, 64)
		if err != nil {
			return nil, &errs.BadTextSyntax{Line: lr.lineNo}
		}
		kind := format.ValueKind(kindVal)

		sites := make(valueprofile.Sites, numSites)
		for s := uint64(0); s < numSites; s++ {
			siteLine, ok := lr.next()
			if !ok {
				return nil, &errs.BadTextSyntax{Line: lr.lineNo}
			}
			site, err := parseSiteLine(siteLine, lr.lineNo)
			if err != nil {
				return nil, err
			}
			sites[s] = site
		}
		vrec.ByKind[kind] = sites
	}

	return vrec, nil
}

func parseSiteLine(line string, lineNo int) (valueprofile.Site, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return valueprofile.Site{}, &errs.BadTextSyntax{Line: lineNo}
	}

	numValues, err := strconv.ParseUint(fields[0], 0, 64)
	if err != nil {
		return valueprofile.Site{}, &errs.BadTextSyntax{Line: lineNo}
	}
	if uint64(len(fields)-1) != numValues {
		return valueprofile.Site{}, &errs.BadTextSyntax{Line: lineNo}
	}

	site := valueprofile.Site{Pairs: make([]valueprofile.Pair, numValues)}
	for i, tok := range fields[1:] {
		parts := strings.SplitN(tok, ":", 2)
		if len(parts) != 2 {
			return valueprofile.Site{}, &errs.BadTextSyntax{Line: lineNo}
		}
		value, err := strconv.ParseUint(parts[0], 0, 64)
		if err != nil {
			return valueprofile.Site{}, &errs.BadTextSyntax{Line: lineNo}
		}
		count, err := strconv.ParseUint(parts[1], 0, 64)
		if err != nil {
			return valueprofile.Site{}, &errs.BadTextSyntax{Line: lineNo}
		}
		site.Pairs[i] = valueprofile.Pair{Value: value, Count: count}
	}

	return site, nil
}

// Write renders p in the `.proftext` grammar. Directives are emitted once,
// in a fixed order, ahead of every record; records and their counters are
// emitted in p.Records order (insertion order), never re-sorted, matching
// the merger's own "do not sort globally" rule.
func Write(p *profile.Profile, w io.Writer) error {
	bw := bufio.NewWriter(w)

	for _, name := range directiveOrder() {
		if format.HasFlag(p.Version, directives[name]) {
			if _, err := fmt.Fprintln(bw, name); err != nil {
				return err
			}
		}
	}

	for i, rec := range p.Records {
		if i > 0 {
			if _, err := fmt.Fprintln(bw); err != nil {
				return err
			}
		}
		if err := writeRecord(bw, rec); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func directiveOrder() []string {
	order := make([]string, 0, len(directives))
	for name := range directives {
		order = append(order, name)
	}
	sort.Strings(order)

	return order
}

func writeRecord(w *bufio.Writer, rec *record.FunctionRecord) error {
	if _, err := fmt.Fprintln(w, rec.Name); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "0x%x\n", rec.FuncHash); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, len(rec.Counters)); err != nil {
		return err
	}
	for _, c := range rec.Counters {
		if _, err := fmt.Fprintln(w, c); err != nil {
			return err
		}
	}

	return writeValueSection(w, rec.Values)
}

func writeValueSection(w *bufio.Writer, v *valueprofile.Record) error {
	if v == nil || len(v.ByKind) == 0 {
		_, err := fmt.Fprintln(w, 0)
		return err
	}

	kinds := make([]format.ValueKind, 0, len(v.ByKind))
	for k := range v.ByKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	if _, err := fmt.Fprintln(w, len(kinds)); err != nil {
		return err
	}

	for _, kind := range kinds {
		sites := v.ByKind[kind]
		if _, err := fmt.Fprintf(w, "%d %d\n", kind, len(sites)); err != nil {
			return err
		}
		for _, site := range sites {
			tokens := make([]string, 0, len(site.Pairs)+1)
			tokens = append(tokens, strconv.Itoa(len(site.Pairs)))
			for _, pair := range site.Pairs {
				tokens = append(tokens, fmt.Sprintf("%d:%d", pair.Value, pair.Count))
			}
			if _, err := fmt.Fprintln(w, strings.Join(tokens, " ")); err != nil {
				return err
			}
		}
	}

	return nil
}
