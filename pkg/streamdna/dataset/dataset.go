// Package dataset reads the on-disk segment and trace datasets.
//
// Segment files of video v (0-based) live in <root>/<v+1, three digits>/segments
// and are named like video_<quality>_<index>.m4s. Traces of video v live in
// <root>/<v>/.
package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/StreamDNA/pkg/models"
	"github.com/himanishpuri/StreamDNA/pkg/utils"
)

// FingerprintSize is the number of trailing segments kept per quality.
const FingerprintSize = 45

// SegmentDir returns the segment directory of video.
func SegmentDir(root string, video int) string {
	return filepath.Join(root, fmt.Sprintf("%03d", video+1), "segments")
}

// segmentIndex extracts <index> from video_<quality>_<index>.m4s.
func segmentIndex(name string) (int, error) {
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return 0, fmt.Errorf("segment name %q has no index", name)
	}
	idx := parts[2]
	if dot := strings.Index(idx, "."); dot >= 0 {
		idx = idx[:dot]
	}
	n, err := strconv.Atoi(idx)
	if err != nil {
		return 0, fmt.Errorf("segment name %q: %w", name, err)
	}
	return n, nil
}

// SegmentSizes returns the sizes in bytes of the last FingerprintSize
// segments of one quality, in playback order.
func SegmentSizes(root string, video int, quality string) ([]float64, error) {
	tag := "video_" + quality
	files, err := utils.ListFiles(SegmentDir(root, video), func(name string) bool {
		return strings.Contains(name, tag) && strings.Contains(name, "m4s")
	})
	if err != nil {
		return nil, err
	}

	type segment struct {
		index int
		size  int64
	}
	segments := make([]segment, 0, len(files))
	for _, f := range files {
		idx, err := segmentIndex(f.Name)
		if err != nil {
			return nil, err
		}
		segments = append(segments, segment{index: idx, size: f.Size})
	}
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].index < segments[j].index })

	if len(segments) > FingerprintSize {
		segments = segments[len(segments)-FingerprintSize:]
	}
	sizes := make([]float64, len(segments))
	for i, s := range segments {
		sizes[i] = float64(s.size)
	}
	return sizes, nil
}

// ComputeFingerprint reads the three quality sequences of video.
func ComputeFingerprint(root string, video int) (models.Fingerprint, error) {
	var fp models.Fingerprint
	for q, tag := range models.QualityTags {
		sizes, err := SegmentSizes(root, video, tag)
		if err != nil {
			return fp, fmt.Errorf("video %d quality %s: %w", video, tag, err)
		}
		fp[q] = sizes
	}
	return fp, nil
}

// BuildDatabase computes the fingerprints of videos, at most workers at a
// time. The first failure cancels the remaining work.
func BuildDatabase(ctx context.Context, root string, videos []int, workers int) (models.Database, error) {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	var mu sync.Mutex
	db := make(models.Database, len(videos))
	for _, video := range videos {
		video := video
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fp, err := ComputeFingerprint(root, video)
			if err != nil {
				return err
			}
			mu.Lock()
			db[video] = fp
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return db, nil
}

// IsTrace reports whether a file name is a trace: simulated traces contain
// ".sim.log", captured ones end in ".log" with no other dot.
func IsTrace(name string) bool {
	return strings.Contains(name, ".sim.log") ||
		(strings.Contains(name, ".log") && strings.Count(name, ".") == 1)
}

// TraceDir returns the trace directory of video.
func TraceDir(root string, video int) string {
	return filepath.Join(root, strconv.Itoa(video))
}

// Traces lists the trace files of video, sorted by name.
func Traces(root string, video int) ([]string, error) {
	files, err := utils.ListFiles(TraceDir(root, video), IsTrace)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths, nil
}

// VideoRange returns the ids 0..n-1.
func VideoRange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
