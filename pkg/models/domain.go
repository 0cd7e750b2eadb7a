package models

import "sort"

// Quality indexes one rendition of a video inside a Fingerprint.
type Quality int

const (
	Quality1000 Quality = iota
	Quality2000
	Quality4000
)

// NumQualities is the number of renditions kept per video.
const NumQualities = 3

// QualityTags are the dataset tags for each Quality, in index order.
var QualityTags = [NumQualities]string{"1000", "2000", "4000"}

func (q Quality) String() string {
	if q < 0 || int(q) >= NumQualities {
		return "unknown"
	}
	return QualityTags[q]
}

// Fingerprint holds the trailing segment sizes (bytes) of one video, one
// sequence per quality.
type Fingerprint [NumQualities][]float64

// Clone returns a deep copy.
func (f Fingerprint) Clone() Fingerprint {
	var out Fingerprint
	for q, seq := range f {
		out[q] = append([]float64(nil), seq...)
	}
	return out
}

// Equal reports whether both fingerprints hold identical sequences.
func (f Fingerprint) Equal(other Fingerprint) bool {
	for q := range f {
		if len(f[q]) != len(other[q]) {
			return false
		}
		for i := range f[q] {
			if f[q][i] != other[q][i] {
				return false
			}
		}
	}
	return true
}

// Database maps video ids to fingerprints.
type Database map[int]Fingerprint

// IDs returns the video ids in ascending order.
func (d Database) IDs() []int {
	ids := make([]int, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Equal reports whether both databases hold the same videos and sequences.
func (d Database) Equal(other Database) bool {
	if len(d) != len(other) {
		return false
	}
	for id, fp := range d {
		o, ok := other[id]
		if !ok || !fp.Equal(o) {
			return false
		}
	}
	return true
}

// Location identifies one window of the database.
type Location struct {
	Video   int
	Quality Quality
	Offset  int
}

// Less orders locations by video, quality, then offset.
func (l Location) Less(other Location) bool {
	if l.Video != other.Video {
		return l.Video < other.Video
	}
	if l.Quality != other.Quality {
		return l.Quality < other.Quality
	}
	return l.Offset < other.Offset
}
