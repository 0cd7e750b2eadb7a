// Package evaluate runs the classifier over a labelled trace dataset and
// reports its accuracy.
package evaluate

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/StreamDNA/pkg/models"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/dataset"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/trace"
)

const (
	DefaultStart = 60
	DefaultEnd   = 0
)

// Classifier decides the video shown by a throughput vector.
type Classifier interface {
	Classify(ctx context.Context, vector []float64) (models.Classification, error)
}

// Logger is the subset of the logger used here.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}

type Evaluator struct {
	clf       Classifier
	workers   int
	keepGoing bool
	start     int
	end       int
	log       Logger
}

type Option func(*Evaluator)

// WithWorkers bounds the number of traces classified at once.
func WithWorkers(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithKeepGoing records failing traces in Report.Failed instead of aborting
// the run.
func WithKeepGoing(keep bool) Option {
	return func(e *Evaluator) {
		e.keepGoing = keep
	}
}

// WithWindow sets the eavesdropping interval, in seconds before the end of
// each trace.
func WithWindow(start, end int) Option {
	return func(e *Evaluator) {
		e.start, e.end = start, end
	}
}

func WithLogger(log Logger) Option {
	return func(e *Evaluator) {
		if log != nil {
			e.log = log
		}
	}
}

func New(clf Classifier, opts ...Option) *Evaluator {
	e := &Evaluator{
		clf:     clf,
		workers: runtime.NumCPU(),
		start:   DefaultStart,
		end:     DefaultEnd,
		log:     nopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type job struct {
	video int
	path  string
}

// Run classifies every trace of videos found under traceRoot. Traces are
// classified concurrently; the report lists them by video in the order
// given, then by file name.
func (e *Evaluator) Run(ctx context.Context, traceRoot string, videos []int) (*Report, error) {
	if e.start <= e.end {
		return nil, fmt.Errorf("%w: start=%d end=%d", trace.ErrBadWindow, e.start, e.end)
	}

	report := &Report{}
	var jobs []job
	for _, video := range videos {
		paths, err := dataset.Traces(traceRoot, video)
		if err != nil {
			if !e.keepGoing {
				return nil, fmt.Errorf("video %d: %w", video, err)
			}
			e.log.Warnf("video %d: %v", video, err)
			report.Failed = append(report.Failed, Result{Video: video, Path: dataset.TraceDir(traceRoot, video), Err: err})
			continue
		}
		for _, p := range paths {
			jobs = append(jobs, job{video: video, path: p})
		}
	}
	e.log.Infof("classifying %d traces of %d videos with %d workers", len(jobs), len(videos), e.workers)

	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			res := Result{Video: j.video, Path: j.path}
			res.Classification, res.Err = e.classify(gctx, j.path)
			if res.Err != nil {
				if !e.keepGoing || gctx.Err() != nil {
					return fmt.Errorf("%s: %w", j.path, res.Err)
				}
				e.log.Warnf("%s: %v", j.path, res.Err)
			} else {
				e.log.Debugf("%s: video %d -> %d (fast=%t)", j.path, j.video, res.Classification.Video, res.Classification.Fast)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, res := range results {
		report.add(res)
	}
	return report, nil
}

func (e *Evaluator) classify(ctx context.Context, path string) (models.Classification, error) {
	if err := ctx.Err(); err != nil {
		return models.Classification{}, err
	}
	vector, err := trace.ReadThroughput(path, e.start, e.end)
	if err != nil {
		return models.Classification{}, err
	}
	return e.clf.Classify(ctx, vector)
}
