package streamdna

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/StreamDNA/pkg/logger"
	"github.com/himanishpuri/StreamDNA/pkg/models"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/dataset"
)

const testVideos = 3

func quietLogger() *logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Output = io.Discard
	return logger.New(cfg)
}

// setupSegments writes 45 segments of random size per quality for each
// video and returns the dataset root.
func setupSegments(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	rng := rand.New(rand.NewSource(42))
	for v := 0; v < testVideos; v++ {
		dir := dataset.SegmentDir(root, v)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		for _, tag := range models.QualityTags {
			for i := 1; i <= dataset.FingerprintSize; i++ {
				size := 1000 + rng.Intn(4000)
				name := filepath.Join(dir, fmt.Sprintf("video_%s_%d.m4s", tag, i))
				require.NoError(t, os.WriteFile(name, make([]byte, size), 0o644))
			}
		}
	}
	return root
}

// writeTrace emits one downstream packet per two-second bin carrying the
// given segment sizes.
func writeTrace(t *testing.T, path string, sizes []float64) {
	t.Helper()
	var b strings.Builder
	for i, size := range sizes {
		fmt.Fprintf(&b, "%d,s,60\n", int64(2*i)*1e9+5e8)
		fmt.Fprintf(&b, "%d,r,%d\n", int64(2*i+1)*1e9, int64(size))
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func setupService(t *testing.T, dbName string, opts ...Option) Service {
	t.Helper()
	base := []Option{
		WithDBPath(filepath.Join(t.TempDir(), dbName)),
		WithLogger(quietLogger()),
		WithVideos(testVideos),
		WithWorkers(2),
	}
	svc, err := NewService(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestSetupAndAttack(t *testing.T) {
	for _, dbName := range []string{"fingerprints.txt", "fingerprints.sqlite"} {
		t.Run(dbName, func(t *testing.T) {
			segments := setupSegments(t)
			var out bytes.Buffer
			svc := setupService(t, dbName, WithWindow(2*dataset.FingerprintSize, 0), WithOutput(&out))

			db, err := svc.Setup(context.Background(), segments)
			require.NoError(t, err)
			require.Equal(t, []int{0, 1, 2}, db.IDs())

			traces := t.TempDir()
			for v := 0; v < testVideos; v++ {
				writeTrace(t, filepath.Join(traces, fmt.Sprint(v), "capture.log"), db[v][models.Quality2000])
			}

			report, err := svc.Attack(context.Background(), traces)
			require.NoError(t, err)

			assert.Equal(t, testVideos, report.Total())
			assert.Equal(t, testVideos, report.Correct())
			assert.Equal(t, testVideos, report.FastRight)
			assert.Contains(t, out.String(), "Global accuracy 3/3 (100.00%)")
		})
	}
}

func TestClassifyTraceSlowMode(t *testing.T) {
	segments := setupSegments(t)
	svc := setupService(t, "fingerprints.txt", WithWindow(68, 0))

	db, err := svc.Setup(context.Background(), segments)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "short.log")
	writeTrace(t, path, db[1][models.Quality4000][:34])

	got, err := svc.ClassifyTrace(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Video)
	assert.False(t, got.Fast)
	assert.Equal(t, 5, got.Votes)
}

func TestListVideos(t *testing.T) {
	segments := setupSegments(t)
	svc := setupService(t, "fingerprints.db")

	db, err := svc.Setup(context.Background(), segments)
	require.NoError(t, err)

	videos, err := svc.ListVideos()
	require.NoError(t, err)
	require.Len(t, videos, testVideos)

	var want float64
	for _, v := range db[2][models.Quality1000] {
		want += v
	}
	assert.Equal(t, 2, videos[2].ID)
	assert.Equal(t, dataset.FingerprintSize, videos[2].Segments[models.Quality1000])
	assert.Equal(t, want, videos[2].TotalBytes[models.Quality1000])
}

func TestAttackWithoutDatabase(t *testing.T) {
	svc := setupService(t, "missing.txt")

	_, err := svc.Attack(context.Background(), t.TempDir())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSetupMissingDataset(t *testing.T) {
	svc := setupService(t, "fingerprints.txt")

	_, err := svc.Setup(context.Background(), t.TempDir())
	require.Error(t, err)

	_, err = svc.ListVideos()
	require.Error(t, err)
}
