// Package index builds the spatial index of every fingerprint window.
package index

import (
	"fmt"
	"sort"

	"github.com/himanishpuri/StreamDNA/pkg/models"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/fingerprint"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/kdtree"
)

// Tolerance is the relative half-width of a range query: T1 applies to the
// window total, T2 to each proportional component.
type Tolerance struct {
	T1 float64
	T2 float64
}

var (
	Loose = Tolerance{T1: 0.10, T2: 0.03}
	Tight = Tolerance{T1: 0.07, T2: 0.03}
)

// Box returns the query region around d.
func (tol Tolerance) Box(d fingerprint.Descriptor) kdtree.Box {
	lo := make([]float64, fingerprint.Dims)
	hi := make([]float64, fingerprint.Dims)
	for i, v := range d {
		rel := tol.T2
		if i == 0 {
			rel = tol.T1
		}
		margin := rel * v
		lo[i], hi[i] = v-margin, v+margin
	}
	return kdtree.Box{Lo: lo, Hi: hi}
}

// Index is an immutable spatial index over the descriptors of every
// (video, quality, offset) window of a database. It keeps its own copy of
// the sequences, so later changes to the source database are not seen.
type Index struct {
	tree   *kdtree.Tree[models.Location]
	db     models.Database
	videos []int
}

// Build indexes every 30-segment window of db. Sequences shorter than a
// window contribute nothing. Identical descriptors from different windows
// are all kept, so a query returns every one of them.
func Build(db models.Database) (*Index, error) {
	snapshot := make(models.Database, len(db))
	var points [][]float64
	var locs []models.Location

	videos := db.IDs()
	for _, video := range videos {
		fp := db[video].Clone()
		snapshot[video] = fp
		for q, seq := range fp {
			for offset := 0; offset+fingerprint.WindowSize <= len(seq); offset++ {
				d, err := fingerprint.Key(seq[offset : offset+fingerprint.WindowSize])
				if err != nil {
					return nil, fmt.Errorf("video %d quality %s offset %d: %w", video, models.Quality(q), offset, err)
				}
				p := d
				points = append(points, p[:])
				locs = append(locs, models.Location{Video: video, Quality: models.Quality(q), Offset: offset})
			}
		}
	}

	tree, err := kdtree.Build(fingerprint.Dims, points, locs)
	if err != nil {
		return nil, fmt.Errorf("building k-d tree: %w", err)
	}
	return &Index{tree: tree, db: snapshot, videos: videos}, nil
}

// Len returns the number of indexed windows.
func (x *Index) Len() int {
	return x.tree.Len()
}

// Videos returns the indexed video ids in ascending order.
func (x *Index) Videos() []int {
	return append([]int(nil), x.videos...)
}

// Candidates returns the locations of every window whose descriptor lies
// within tol of d, ordered by video, quality and offset.
func (x *Index) Candidates(d fingerprint.Descriptor, tol Tolerance) ([]models.Location, error) {
	locs, err := x.tree.Query(tol.Box(d))
	if err != nil {
		return nil, err
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i].Less(locs[j]) })
	return locs, nil
}

// Window returns the sizes of the window at loc. The slice is shared and
// must not be modified.
func (x *Index) Window(loc models.Location) ([]float64, error) {
	fp, ok := x.db[loc.Video]
	if !ok {
		return nil, fmt.Errorf("video %d not indexed", loc.Video)
	}
	if loc.Quality < 0 || int(loc.Quality) >= models.NumQualities {
		return nil, fmt.Errorf("invalid quality %d", loc.Quality)
	}
	seq := fp[loc.Quality]
	if loc.Offset < 0 || loc.Offset+fingerprint.WindowSize > len(seq) {
		return nil, fmt.Errorf("offset %d out of range for video %d quality %s", loc.Offset, loc.Video, loc.Quality)
	}
	return seq[loc.Offset : loc.Offset+fingerprint.WindowSize : loc.Offset+fingerprint.WindowSize], nil
}
