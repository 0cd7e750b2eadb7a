// Package storage persists fingerprint databases.
package storage

import (
	"path/filepath"
	"strings"

	"github.com/himanishpuri/StreamDNA/pkg/models"
)

// Store saves and loads a whole fingerprint database.
type Store interface {
	Save(db models.Database) error
	Load() (models.Database, error)
	Close() error
}

// VideoSummary describes one stored video.
type VideoSummary struct {
	ID         int
	Segments   [models.NumQualities]int
	TotalBytes [models.NumQualities]float64
}

// Summarize lists the videos of db in ascending id order.
func Summarize(db models.Database) []VideoSummary {
	out := make([]VideoSummary, 0, len(db))
	for _, id := range db.IDs() {
		s := VideoSummary{ID: id}
		for q, seq := range db[id] {
			s.Segments[q] = len(seq)
			for _, v := range seq {
				s.TotalBytes[q] += v
			}
		}
		out = append(out, s)
	}
	return out
}

// Open returns the store for path: SQLite for .sqlite, .sqlite3 and .db
// files, the text format otherwise.
func Open(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sqlite", ".sqlite3", ".db":
		return NewDBClientWithPath(path)
	default:
		return NewTextStore(path), nil
	}
}
