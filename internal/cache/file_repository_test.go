package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkrapecMateja/ChargingStations/internal/models"
)

func testStations() []models.Station {
	return []models.Station{
		{
			ID:           "CH001",
			Latitude:     47.3769,
			Longitude:    8.5417,
			Availability: models.AvailabilityAvailable,
			Facilities:   []models.ChargingFacility{{PowerKW: 22}, {PowerKW: 11}},
		},
		{
			ID:           "CH002",
			Latitude:     47.41,
			Longitude:    8.54,
			Availability: models.AvailabilityOccupied,
		},
	}
}

func TestFileRepositorySaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	stations := testStations()

	require.NoError(t, repo.SaveStations(ctx, stations))

	got, err := repo.LoadStations(ctx)
	require.NoError(t, err)
	assert.Equal(t, stations, got)
}

func TestFileRepositorySaveOverwritesWholesale(t *testing.T) {
	t.Parallel()

	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, repo.SaveStations(ctx, testStations()))

	replacement := []models.Station{{ID: "CH099", Availability: models.AvailabilityUnknown}}
	require.NoError(t, repo.SaveStations(ctx, replacement))

	got, err := repo.LoadStations(ctx)
	require.NoError(t, err)
	assert.Equal(t, replacement, got)
}

func TestFileRepositoryEmptyBatchIsValid(t *testing.T) {
	t.Parallel()

	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, repo.SaveStations(ctx, []models.Station{}))

	got, err := repo.LoadStations(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileRepositoryLoadMissingIsError(t *testing.T) {
	t.Parallel()

	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)

	_, err = repo.LoadStations(context.Background())
	assert.Error(t, err)
}

func TestFileRepositoryLoadCorruptIsError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo, err := NewFileRepository(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, stationsFileName), []byte("{not json"), 0o644))

	_, err = repo.LoadStations(context.Background())
	assert.Error(t, err)
}

func TestFileRepositoryWriteLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo, err := NewFileRepository(dir)
	require.NoError(t, err)

	require.NoError(t, repo.SaveStations(context.Background(), testStations()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, stationsFileName, entries[0].Name())
}

func TestFileRepositoryLastUpdated(t *testing.T) {
	t.Parallel()

	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()

	got, err := repo.LastUpdated(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	now := time.Date(2025, 10, 20, 12, 30, 0, 0, time.UTC)
	require.NoError(t, repo.SaveLastUpdated(ctx, now))

	got, err = repo.LastUpdated(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, now.Equal(*got))
}

func TestFileRepositoryLastKnownLocation(t *testing.T) {
	t.Parallel()

	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()

	got, err := repo.LastKnownLocation(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	loc := models.Coordinate{Latitude: 47.410802, Longitude: 8.5427098}
	require.NoError(t, repo.SaveLastLocation(ctx, loc))

	got, err = repo.LastKnownLocation(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, loc.Latitude, got.Latitude, 1e-9)
	assert.InDelta(t, loc.Longitude, got.Longitude, 1e-9)
}

func TestFileRepositoryScalarsSurviveStationOverwrite(t *testing.T) {
	t.Parallel()

	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.SaveLastUpdated(ctx, now))
	require.NoError(t, repo.SaveLastLocation(ctx, models.Coordinate{Latitude: 1, Longitude: 2}))
	require.NoError(t, repo.SaveStations(ctx, testStations()))

	got, err := repo.LastUpdated(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, now.Equal(*got))

	loc, err := repo.LastKnownLocation(ctx)
	require.NoError(t, err)
	require.NotNil(t, loc)
}
