package protocol

import (
	"fmt"
	"github.com/aybabtme/uniplot/histogram"
	"io"
	"time"
)

// Stats accumulates per-chunk timings of a transfer. A nil *Stats records nothing.
type Stats struct {
	Chunks  int
	Bytes   int64
	Elapsed time.Duration

	// milliseconds per chunk
	latencies []float64
}

func (s *Stats) record(n int, d time.Duration) {
	if s == nil {
		return
	}
	s.Chunks++
	s.Bytes += int64(n)
	s.Elapsed += d
	s.latencies = append(s.latencies, float64(d)/float64(time.Millisecond))
}

// Throughput is the average transfer rate in bytes per second.
func (s *Stats) Throughput() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Bytes) / s.Elapsed.Seconds()
}

// Fprint writes a summary line followed by a histogram of chunk latencies in milliseconds.
func (s *Stats) Fprint(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d chunks, %d bytes in %v (%.1f kbytes/s)\n",
		s.Chunks, s.Bytes, s.Elapsed.Round(time.Millisecond), s.Throughput()/1024)
	if err != nil {
		return err
	}
	if len(s.latencies) == 0 {
		return nil
	}

	fmt.Fprintln(w, "chunk latency (ms):")
	hist := histogram.Hist(8, s.latencies)
	return histogram.Fprint(w, hist, histogram.Linear(40))
}
