// Package corpus loads the observed barcode corpus and the reference
// barcode list. The engine itself only ever sees []Record and []Def; the
// file formats live here.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/shenwei356/xopen"

	"github.com/demuxlab/barcodex/pkg/barcode"
)

// Record is one observed barcode sequence with its read depth and
// optional tile of origin (0 = no tile information).
type Record struct {
	Seq   string
	Count int64
	Tile  int
}

func fields(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
}

// ReadTable parses observed records from delimited text: one record per
// line, "sequence count [tile]", comma or whitespace separated, '#'
// starting a comment line.
func ReadTable(r io.Reader) ([]Record, error) {
	var recs []Record

	sc := bufio.NewScanner(r)
	ln := 0
	for sc.Scan() {
		ln++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fs := fields(line)
		if len(fs) < 2 || len(fs) > 3 {
			return nil, fmt.Errorf("line %d: want \"sequence count [tile]\", got %d fields", ln, len(fs))
		}
		count, err := strconv.ParseInt(fs[1], 10, 64)
		if err != nil || count < 0 {
			return nil, fmt.Errorf("line %d: bad count %q", ln, fs[1])
		}
		rec := Record{Seq: fs[0], Count: count}
		if len(fs) == 3 {
			tile, err := strconv.Atoi(fs[2])
			if err != nil || tile <= 0 {
				return nil, fmt.Errorf("line %d: bad tile %q", ln, fs[2])
			}
			rec.Tile = tile
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return recs, nil
}

// LoadTable reads a record table from a plain or gzipped file.
func LoadTable(path string) ([]Record, error) {
	f, err := xopen.Ropen(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTable(f)
}

// ReadReference parses the reference barcode list: "name sequence
// [expected]" per line, expected defaulting to true.
func ReadReference(r io.Reader) ([]barcode.Def, error) {
	var defs []barcode.Def

	sc := bufio.NewScanner(r)
	ln := 0
	for sc.Scan() {
		ln++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fs := fields(line)
		if len(fs) < 2 || len(fs) > 3 {
			return nil, fmt.Errorf("line %d: want \"name sequence [expected]\", got %d fields", ln, len(fs))
		}
		def := barcode.Def{Name: fs[0], Seq: strings.ToUpper(fs[1]), Expected: true}
		if len(fs) == 3 {
			expected, err := strconv.ParseBool(fs[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad expected flag %q", ln, fs[2])
			}
			def.Expected = expected
		}
		defs = append(defs, def)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return defs, nil
}

// LoadReference reads the reference list from a plain or gzipped file.
func LoadReference(path string) ([]barcode.Def, error) {
	f, err := xopen.Ropen(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadReference(f)
}

// Total returns the summed read count of a corpus.
func Total(recs []Record) int64 {
	var n int64
	for _, r := range recs {
		n += r.Count
	}
	return n
}
