package corpus

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/biogo/hts/bam"
	biogosam "github.com/biogo/hts/sam"
)

// FromBAM reads barcode sequences out of the aux tag of a BAM or SAM
// file (BC by default, CB for cell barcodes) and aggregates them into
// counted records. Alignment content is ignored; only the tag matters,
// so unmapped records are fine.
func FromBAM(path, tag string) ([]Record, error) {
	if tag == "" {
		tag = "BC"
	}
	if len(tag) != 2 {
		return nil, fmt.Errorf("aux tag %q: want two characters", tag)
	}
	auxTag := biogosam.Tag{tag[0], tag[1]}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var read func() (*biogosam.Record, error)
	if strings.HasSuffix(path, ".bam") {
		br, err := bam.NewReader(f, 0)
		if err != nil {
			return nil, err
		}
		defer br.Close()
		read = br.Read
	} else {
		sr, err := biogosam.NewReader(f)
		if err != nil {
			return nil, err
		}
		read = sr.Read
	}

	counts := make(map[string]int64)
	for {
		rec, err := read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		aux := rec.AuxFields.Get(auxTag)
		if aux == nil {
			continue
		}
		seq, ok := aux.Value().(string)
		if !ok {
			continue
		}
		counts[strings.ToUpper(seq)]++
	}

	recs := make([]Record, 0, len(counts))
	for seq, n := range counts {
		recs = append(recs, Record{Seq: seq, Count: n})
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })

	return recs, nil
}
