package corpus

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shenwei356/bio/seqio/fastx"
)

type seqTile struct {
	seq  string
	tile int
}

// FromFastq reads barcode reads from a FASTQ (or FASTA) file and
// aggregates identical sequences into counted records. When the read
// names follow the Illumina convention
// (instrument:run:flowcell:lane:tile:x:y) the tile id is parsed out and
// identical sequences from different tiles stay separate records.
func FromFastq(path string) ([]Record, error) {
	reader, err := fastx.NewDefaultReader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	counts := make(map[seqTile]int64)
	for chunk := range reader.ChunkChan(10, 1000) {
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		for _, record := range chunk.Data {
			key := seqTile{
				seq:  strings.ToUpper(string(record.Seq.Seq)),
				tile: illuminaTile(string(record.Name)),
			}
			counts[key]++
		}
	}

	recs := make([]Record, 0, len(counts))
	for key, n := range counts {
		recs = append(recs, Record{Seq: key.seq, Count: n, Tile: key.tile})
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Seq != recs[j].Seq {
			return recs[i].Seq < recs[j].Seq
		}
		return recs[i].Tile < recs[j].Tile
	})

	return recs, nil
}

// illuminaTile extracts the tile id from an Illumina read name, 0 if the
// name does not look like one.
func illuminaTile(name string) int {
	if i := strings.IndexByte(name, ' '); i >= 0 {
		name = name[:i]
	}
	parts := strings.Split(name, ":")
	if len(parts) < 5 {
		return 0
	}
	tile, err := strconv.Atoi(parts[4])
	if err != nil || tile <= 0 {
		return 0
	}
	return tile
}
