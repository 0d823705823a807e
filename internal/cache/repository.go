// Package cache persists the last successfully fetched station batch plus a
// couple of scalar entries (last-updated timestamp, last-known location) so
// the refresh loop can fall back when the network is gone.
package cache

import (
	"context"
	"time"

	"github.com/SkrapecMateja/ChargingStations/internal/models"
)

// StationStore persists the station batch as one blob, replaced wholesale
// on every successful fetch.
type StationStore interface {
	SaveStations(ctx context.Context, stations []models.Station) error
	// LoadStations returns the cached batch. A present-but-empty batch is
	// a valid result; a missing or unreadable blob is an error.
	LoadStations(ctx context.Context) ([]models.Station, error)
}

// ScalarStore persists the small key-value entries next to the blob.
// Readers get nil (no error) when an entry was never written.
type ScalarStore interface {
	SaveLastUpdated(ctx context.Context, t time.Time) error
	LastUpdated(ctx context.Context) (*time.Time, error)
	SaveLastLocation(ctx context.Context, c models.Coordinate) error
	LastKnownLocation(ctx context.Context) (*models.Coordinate, error)
}

// Repository is the full station cache contract the orchestrator depends on.
type Repository interface {
	StationStore
	ScalarStore
}

type repository struct {
	StationStore
	ScalarStore
}

// NewRepository combines a blob store and a scalar store into one Repository.
func NewRepository(stations StationStore, scalars ScalarStore) Repository {
	return repository{StationStore: stations, ScalarStore: scalars}
}
