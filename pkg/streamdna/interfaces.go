package streamdna

import (
	"context"

	"github.com/himanishpuri/StreamDNA/pkg/models"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/evaluate"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/storage"
)

type Service interface {
	Setup(ctx context.Context, datasetRoot string) (models.Database, error)
	Attack(ctx context.Context, traceRoot string) (*evaluate.Report, error)
	ClassifyTrace(ctx context.Context, path string) (models.Classification, error)
	ListVideos() ([]storage.VideoSummary, error)
	Close() error
}

type Storage interface {
	Save(db models.Database) error
	Load() (models.Database, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
