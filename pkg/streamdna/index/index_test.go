package index

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/StreamDNA/pkg/models"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/fingerprint"
)

func randomDatabase(videos, length int, seed int64) models.Database {
	rng := rand.New(rand.NewSource(seed))
	db := make(models.Database, videos)
	for v := 0; v < videos; v++ {
		var fp models.Fingerprint
		for q := range fp {
			seq := make([]float64, length)
			for i := range seq {
				seq[i] = float64(200000 + rng.Intn(1800000))
			}
			fp[q] = seq
		}
		db[v] = fp
	}
	return db
}

func TestBuildCountsWindows(t *testing.T) {
	db := randomDatabase(4, 45, 1)

	idx, err := Build(db)
	require.NoError(t, err)

	assert.Equal(t, 4*3*(45-29), idx.Len())
	assert.Equal(t, []int{0, 1, 2, 3}, idx.Videos())
}

func TestShortSequencesContributeNothing(t *testing.T) {
	db := randomDatabase(1, 45, 2)
	fp := db[0]
	fp[models.Quality1000] = fp[models.Quality1000][:29]
	db[0] = fp

	idx, err := Build(db)
	require.NoError(t, err)
	assert.Equal(t, 2*16, idx.Len())
}

func TestSelfContainmentZeroMargin(t *testing.T) {
	db := randomDatabase(5, 45, 3)
	idx, err := Build(db)
	require.NoError(t, err)

	for _, video := range db.IDs() {
		for q, seq := range db[video] {
			for offset := 0; offset+fingerprint.WindowSize <= len(seq); offset++ {
				d, err := fingerprint.Key(seq[offset : offset+fingerprint.WindowSize])
				require.NoError(t, err)

				locs, err := idx.Candidates(d, Tolerance{})
				require.NoError(t, err)
				assert.Contains(t, locs, models.Location{Video: video, Quality: models.Quality(q), Offset: offset})
			}
		}
	}
}

func TestCandidatesSortedAndWindow(t *testing.T) {
	db := randomDatabase(3, 45, 4)
	idx, err := Build(db)
	require.NoError(t, err)

	w := db[2][models.Quality4000][7:37]
	d, err := fingerprint.Key(w)
	require.NoError(t, err)

	locs, err := idx.Candidates(d, Loose)
	require.NoError(t, err)
	require.NotEmpty(t, locs)
	for i := 1; i < len(locs); i++ {
		assert.True(t, locs[i-1].Less(locs[i]) || locs[i-1] == locs[i])
	}

	got, err := idx.Window(models.Location{Video: 2, Quality: models.Quality4000, Offset: 7})
	require.NoError(t, err)
	assert.Equal(t, w, got)

	_, err = idx.Window(models.Location{Video: 9})
	assert.Error(t, err)
	_, err = idx.Window(models.Location{Video: 2, Offset: 16})
	assert.Error(t, err)
}

func TestDuplicateDescriptorsAreAllReturned(t *testing.T) {
	db := randomDatabase(2, 45, 5)
	db[1] = db[0].Clone()

	idx, err := Build(db)
	require.NoError(t, err)

	d, err := fingerprint.Key(db[0][models.Quality2000][3:33])
	require.NoError(t, err)
	locs, err := idx.Candidates(d, Tolerance{})
	require.NoError(t, err)

	assert.Contains(t, locs, models.Location{Video: 0, Quality: models.Quality2000, Offset: 3})
	assert.Contains(t, locs, models.Location{Video: 1, Quality: models.Quality2000, Offset: 3})
}

func TestIndexIsolatedFromSource(t *testing.T) {
	db := randomDatabase(1, 45, 6)
	idx, err := Build(db)
	require.NoError(t, err)

	before, err := idx.Window(models.Location{Video: 0, Quality: models.Quality1000, Offset: 0})
	require.NoError(t, err)
	want := before[0]

	db[0][models.Quality1000][0] = -1

	after, err := idx.Window(models.Location{Video: 0, Quality: models.Quality1000, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, want, after[0])
}

func TestBuildRejectsZeroWindow(t *testing.T) {
	db := models.Database{0: {make([]float64, 45), nil, nil}}

	_, err := Build(db)
	require.ErrorIs(t, err, fingerprint.ErrZeroTotal)
}

func TestBuildEmpty(t *testing.T) {
	idx, err := Build(models.Database{})
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.Videos())
}
