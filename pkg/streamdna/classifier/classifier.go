// Package classifier decides which indexed video a throughput vector shows.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/himanishpuri/StreamDNA/pkg/models"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/fingerprint"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/index"
)

// MinFastSpacing is the smallest offset distance between two matches that
// can decide a fast classification.
const MinFastSpacing = 5

// Logger is the subset of the logger used here.
type Logger interface {
	Debugf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}

// Classifier scans throughput vectors against an Index. It holds no
// per-trace state and is safe for concurrent use.
type Classifier struct {
	idx *index.Index
	tol index.Tolerance
	log Logger
}

type Option func(*Classifier)

// WithTolerance sets the range query tolerance (index.Tight by default).
func WithTolerance(tol index.Tolerance) Option {
	return func(c *Classifier) {
		c.tol = tol
	}
}

func WithLogger(log Logger) Option {
	return func(c *Classifier) {
		if log != nil {
			c.log = log
		}
	}
}

func New(idx *index.Index, opts ...Option) *Classifier {
	c := &Classifier{idx: idx, tol: index.Tight, log: nopLogger{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify scans every 30-bin capture window of vector in order. Each
// window retrieves candidate database windows from the index and keeps
// those that pass fingerprint.Verify as matches. Two matches of one video
// whose database and capture offsets are equally far apart (at least
// MinFastSpacing) end the scan with a fast classification. Otherwise the
// video with the most matches wins, ties going to the lowest id.
//
// Capture windows without any traffic carry no evidence and are skipped.
func (c *Classifier) Classify(ctx context.Context, vector []float64) (models.Classification, error) {
	ev := newEvidence()

	for offset := 0; offset+fingerprint.WindowSize <= len(vector); offset++ {
		if err := ctx.Err(); err != nil {
			return models.Classification{}, err
		}

		capture := vector[offset : offset+fingerprint.WindowSize]
		key, err := fingerprint.Key(capture)
		if errors.Is(err, fingerprint.ErrZeroTotal) {
			c.log.Debugf("capture offset %d: no traffic", offset)
			continue
		}
		if err != nil {
			return models.Classification{}, fmt.Errorf("capture offset %d: %w", offset, err)
		}

		candidates, err := c.idx.Candidates(key, c.tol)
		if err != nil {
			return models.Classification{}, fmt.Errorf("capture offset %d: range query: %w", offset, err)
		}

		for _, loc := range candidates {
			window, err := c.idx.Window(loc)
			if err != nil {
				return models.Classification{}, err
			}
			verdict, err := fingerprint.Verify(capture, window)
			if err != nil {
				return models.Classification{}, fmt.Errorf("capture offset %d vs %+v: %w", offset, loc, err)
			}
			if !verdict.Accepted {
				continue
			}

			rec := models.MatchRecord{
				Video:           loc.Video,
				Quality:         loc.Quality,
				CandidateOffset: loc.Offset,
				CaptureOffset:   offset,
			}
			c.log.Debugf("match video %d quality %s offset %d at capture offset %d (r=%.4f)",
				loc.Video, loc.Quality, loc.Offset, offset, verdict.Coefficient)

			if trigger, ok := ev.add(rec); ok {
				return models.Classification{
					Video:   rec.Video,
					Fast:    true,
					Votes:   ev.votes[rec.Video],
					Matches: ev.total,
					Trigger: &trigger,
				}, nil
			}
		}
	}

	video, votes := ev.leader(c.idx.Videos())
	return models.Classification{
		Video:   video,
		Votes:   votes,
		Matches: ev.total,
	}, nil
}

// evidence accumulates the matches of one trace, grouped by video.
type evidence struct {
	byVideo map[int][]models.MatchRecord
	votes   map[int]int
	total   int
}

func newEvidence() *evidence {
	return &evidence{
		byVideo: make(map[int][]models.MatchRecord),
		votes:   make(map[int]int),
	}
}

// add records rec and reports the earliest recorded match of the same video
// that forms a consistently spaced pair with it. Pairs of older matches were
// checked when the later of them was added, so only pairs with rec can be
// new.
func (e *evidence) add(rec models.MatchRecord) ([2]models.MatchRecord, bool) {
	prior := e.byVideo[rec.Video]
	e.byVideo[rec.Video] = append(prior, rec)
	e.votes[rec.Video]++
	e.total++

	for _, m := range prior {
		if consistent(m, rec) {
			return [2]models.MatchRecord{m, rec}, true
		}
	}
	return [2]models.MatchRecord{}, false
}

func consistent(a, b models.MatchRecord) bool {
	db := abs(a.CandidateOffset - b.CandidateOffset)
	return db >= MinFastSpacing && db == abs(a.CaptureOffset-b.CaptureOffset)
}

// leader returns the video with the most votes. Ties go to the lowest id;
// with no votes at all the result is video 0.
func (e *evidence) leader(videos []int) (int, int) {
	best, bestVotes := 0, 0
	for _, v := range videos {
		if n := e.votes[v]; n > bestVotes {
			best, bestVotes = v, n
		}
	}
	return best, bestVotes
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
