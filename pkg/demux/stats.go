package demux

import (
	"fmt"
	"io"
)

// Stats summarizes an assignment pass, in reads.
type Stats struct {
	TotalCounted            int64
	TotalAssigned           int64
	TotalAssignedToExpected int64
}

func (s *Stats) add(other Stats) {
	s.TotalCounted += other.TotalCounted
	s.TotalAssigned += other.TotalAssigned
	s.TotalAssignedToExpected += other.TotalAssignedToExpected
}

// AssignedRate is the fraction of counted reads assigned anywhere.
func (s Stats) AssignedRate() float64 {
	return rate(s.TotalAssigned, s.TotalCounted)
}

// ExpectedRate is the fraction of counted reads assigned to an expected
// barcode.
func (s Stats) ExpectedRate() float64 {
	return rate(s.TotalAssignedToExpected, s.TotalCounted)
}

// ChimericRate is the fraction of assigned reads that resolved to a
// synthesized unexpected combination.
func (s Stats) ChimericRate() float64 {
	return rate(s.TotalAssigned-s.TotalAssignedToExpected, s.TotalAssigned)
}

func rate(n, d int64) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// Write prints the summary the way the CLI reports it.
func (s Stats) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"reads counted: %d\nreads assigned: %d (%.2f%%)\nassigned to expected: %d (%.2f%%)\nchimeric fraction of assigned: %.2f%%\n",
		s.TotalCounted,
		s.TotalAssigned, 100*s.AssignedRate(),
		s.TotalAssignedToExpected, 100*s.ExpectedRate(),
		100*s.ChimericRate())
	return err
}
