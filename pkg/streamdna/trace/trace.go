// Package trace turns packet traces into per-bin throughput vectors.
//
// A trace is plain text, one packet per line:
//
//	timestamp_ns,direction[,size_bytes,...]
//
// where direction is r (server to client), s (client to server), and a +p
// suffix marks padding.
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/himanishpuri/StreamDNA/pkg/logger"
)

const (
	// BinSeconds is the width of one throughput bin.
	BinSeconds = 2
	// HeaderOverhead converts captured bytes to segment payload bytes.
	HeaderOverhead = 1460.0 / 1500.0
)

var (
	ErrNoTraceEnd = errors.New("trace has no non-padding packet")
	ErrBadWindow  = errors.New("eavesdropping start must be greater than end")
)

// Event is one parsed trace line.
type Event struct {
	Time      float64 // seconds
	Direction string
	Size      int64
	HasSize   bool
}

// Downstream reports whether the packet travelled server to client.
func (e Event) Downstream() bool {
	return strings.Contains(e.Direction, "r")
}

// Parse reads every event of a trace and reports how many malformed lines
// it skipped. Lines with fewer than two fields are ignored without being
// counted; a line whose timestamp or size is not an integer is skipped and
// counted.
func Parse(r io.Reader, source string) ([]Event, int, error) {
	var events []Event
	skipped := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Split(strings.TrimSpace(sc.Text()), ",")
		if len(fields) < 2 {
			continue
		}

		ns, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			skipped++
			continue
		}
		ev := Event{
			Time:      float64(ns) / 1e9,
			Direction: strings.TrimSpace(fields[1]),
		}
		if len(fields) >= 3 {
			size, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
			if err != nil {
				skipped++
				continue
			}
			ev.Size, ev.HasSize = size, true
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("reading %s: %w", source, err)
	}
	return events, skipped, nil
}

// LastTime returns the time of the last non-padding packet, rounded up to
// an even second.
func LastTime(events []Event) (float64, error) {
	for i := len(events) - 1; i >= 0; i-- {
		switch events[i].Direction {
		case "r", "s":
			return math.Ceil(events[i].Time/BinSeconds) * BinSeconds, nil
		}
	}
	return 0, ErrNoTraceEnd
}

// Throughput sums downstream bytes per two-second bin over the interval
// [last-start, last-end) seconds, where last is LastTime(events). The
// result always holds ceil((start-end)/2) bins. Events are expected in
// time order: the scan stops at the first event past the interval.
func Throughput(events []Event, start, end int) ([]float64, error) {
	if start <= end {
		return nil, fmt.Errorf("%w: start=%d end=%d", ErrBadWindow, start, end)
	}
	last, err := LastTime(events)
	if err != nil {
		return nil, err
	}

	from := last - float64(start)
	until := last - float64(end)
	bins := make([]float64, int(math.Ceil(float64(start-end)/BinSeconds)))

	for _, ev := range events {
		if !ev.HasSize {
			continue
		}
		if ev.Time < from {
			continue
		}
		if ev.Time >= until {
			break
		}
		if !ev.Downstream() {
			continue
		}
		bin := int(math.Floor((ev.Time - from) / BinSeconds))
		if bin >= len(bins) {
			continue
		}
		bins[bin] += float64(ev.Size)
	}

	for i := range bins {
		bins[i] *= HeaderOverhead
	}
	return bins, nil
}

// ReadThroughput parses the trace at path and returns its throughput
// vector.
func ReadThroughput(path string, start, end int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace: %w", err)
	}
	defer f.Close()

	events, skipped, err := Parse(f, path)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		logger.Warnf("Skipped %d malformed lines in %s", skipped, path)
	}
	bins, err := Throughput(events, start, end)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bins, nil
}
