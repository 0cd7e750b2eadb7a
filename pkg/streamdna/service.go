// Package streamdna identifies the video carried by an encrypted adaptive
// stream from the sizes of its segments.
package streamdna

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/himanishpuri/StreamDNA/pkg/logger"
	"github.com/himanishpuri/StreamDNA/pkg/models"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/classifier"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/dataset"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/evaluate"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/index"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/storage"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/trace"
)

// fieldLogger is implemented by loggers that can tag their records.
type fieldLogger interface {
	WithField(key string, value any) *logger.Logger
}

// streamService is the default implementation of the Service interface.
type streamService struct {
	storage Storage
	log     Logger
	config  *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	var stor Storage
	var err error
	if cfg.Storage != nil {
		stor = cfg.Storage
	} else {
		stor, err = storage.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &streamService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
	}, nil
}

// Setup fingerprints the first Config.Videos videos of the segment dataset
// and saves the database.
func (s *streamService) Setup(ctx context.Context, datasetRoot string) (models.Database, error) {
	videos := dataset.VideoRange(s.config.Videos)
	s.log.Infof("Fingerprinting %d videos from %s", len(videos), datasetRoot)

	db, err := dataset.BuildDatabase(ctx, datasetRoot, videos, s.config.Workers)
	if err != nil {
		return nil, fmt.Errorf("building fingerprint database: %w", err)
	}

	var total float64
	for _, sum := range storage.Summarize(db) {
		for _, b := range sum.TotalBytes {
			total += b
		}
	}
	s.log.Infof("Fingerprinted %d videos (%s of segments)", len(db), humanize.Bytes(uint64(total)))

	if err := s.storage.Save(db); err != nil {
		return nil, fmt.Errorf("failed to save fingerprints: %w", err)
	}
	return db, nil
}

// Attack classifies every trace under traceRoot/<video>/ for each stored
// video and writes the report to Config.Output.
func (s *streamService) Attack(ctx context.Context, traceRoot string) (*evaluate.Report, error) {
	log := s.log
	if fl, ok := s.log.(fieldLogger); ok {
		log = fl.WithField("run", uuid.NewString())
	}

	db, idx, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	log.Infof("Indexed %d windows of %d videos", idx.Len(), len(db))

	clf := classifier.New(idx, classifier.WithTolerance(s.tolerance()), classifier.WithLogger(log))
	ev := evaluate.New(clf,
		evaluate.WithWorkers(s.config.Workers),
		evaluate.WithKeepGoing(s.config.KeepGoing),
		evaluate.WithWindow(s.config.Start, s.config.End),
		evaluate.WithLogger(log),
	)

	report, err := ev.Run(ctx, traceRoot, db.IDs())
	if err != nil {
		return nil, fmt.Errorf("attack failed: %w", err)
	}
	log.Infof("Classified %d traces, %d correct, %d failed", report.Total(), report.Correct(), len(report.Failed))

	if err := report.Render(s.config.Output, s.config.Verbose); err != nil {
		return nil, fmt.Errorf("writing report: %w", err)
	}
	return report, nil
}

// ClassifyTrace classifies a single trace file.
func (s *streamService) ClassifyTrace(ctx context.Context, path string) (models.Classification, error) {
	_, idx, err := s.loadIndex()
	if err != nil {
		return models.Classification{}, err
	}

	vector, err := trace.ReadThroughput(path, s.config.Start, s.config.End)
	if err != nil {
		return models.Classification{}, err
	}

	clf := classifier.New(idx, classifier.WithTolerance(s.tolerance()), classifier.WithLogger(s.log))
	result, err := clf.Classify(ctx, vector)
	if err != nil {
		return models.Classification{}, fmt.Errorf("classifying %s: %w", path, err)
	}
	s.log.Infof("%s: video %d (fast=%t, %d/%d matches)", path, result.Video, result.Fast, result.Votes, result.Matches)
	return result, nil
}

func (s *streamService) ListVideos() ([]storage.VideoSummary, error) {
	db, err := s.storage.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load fingerprints: %w", err)
	}
	return storage.Summarize(db), nil
}

func (s *streamService) Close() error {
	return s.storage.Close()
}

func (s *streamService) loadIndex() (models.Database, *index.Index, error) {
	db, err := s.storage.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load fingerprints: %w", err)
	}
	idx, err := index.Build(db)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build index: %w", err)
	}
	return db, idx, nil
}

func (s *streamService) tolerance() index.Tolerance {
	if s.config.Loose {
		return index.Loose
	}
	return index.Tight
}
