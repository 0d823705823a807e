package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SkrapecMateja/ChargingStations/internal/models"
)

const (
	stationsFileName = "stationsCache.json"
	scalarsFileName  = "stationsMeta.json"

	lastUpdatedKey   = "stations.lastUpdated"
	lastLatitudeKey  = "stations.lastLatitude"
	lastLongitudeKey = "stations.lastLongitude"
)

// FileRepository keeps the station blob and the scalar entries in two JSON
// files inside a private directory. Writes go to a temp file first and are
// renamed into place, so an interrupted write leaves the previous cache
// intact.
type FileRepository struct {
	dir string
}

func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &FileRepository{dir: dir}, nil
}

func (r *FileRepository) stationsPath() string {
	return filepath.Join(r.dir, stationsFileName)
}

func (r *FileRepository) scalarsPath() string {
	return filepath.Join(r.dir, scalarsFileName)
}

func (r *FileRepository) SaveStations(ctx context.Context, stations []models.Station) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(stations)
	if err != nil {
		return fmt.Errorf("encoding stations: %w", err)
	}

	if err := writeFileAtomic(r.stationsPath(), data); err != nil {
		return fmt.Errorf("writing stations cache: %w", err)
	}

	log.Debug().Int("station_count", len(stations)).Msg("Saved stations to file cache")
	return nil
}

func (r *FileRepository) LoadStations(ctx context.Context) ([]models.Station, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.stationsPath())
	if err != nil {
		return nil, fmt.Errorf("reading stations cache: %w", err)
	}

	var stations []models.Station
	if err := json.Unmarshal(data, &stations); err != nil {
		// A partially readable blob is never returned.
		return nil, fmt.Errorf("decoding stations cache: %w", err)
	}

	log.Debug().Int("station_count", len(stations)).Msg("Loaded stations from file cache")
	return stations, nil
}

func (r *FileRepository) SaveLastUpdated(ctx context.Context, t time.Time) error {
	return r.setScalar(ctx, lastUpdatedKey, t.UTC().Format(time.RFC3339))
}

func (r *FileRepository) LastUpdated(ctx context.Context) (*time.Time, error) {
	value, err := r.getScalar(ctx, lastUpdatedKey)
	if err != nil || value == "" {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("parsing last updated: %w", err)
	}
	return &t, nil
}

func (r *FileRepository) SaveLastLocation(ctx context.Context, c models.Coordinate) error {
	scalars, err := r.readScalars(ctx)
	if err != nil {
		return err
	}
	scalars[lastLatitudeKey] = formatFloat(c.Latitude)
	scalars[lastLongitudeKey] = formatFloat(c.Longitude)
	return r.writeScalars(scalars)
}

func (r *FileRepository) LastKnownLocation(ctx context.Context) (*models.Coordinate, error) {
	scalars, err := r.readScalars(ctx)
	if err != nil {
		return nil, err
	}

	latStr, okLat := scalars[lastLatitudeKey]
	lonStr, okLon := scalars[lastLongitudeKey]
	if !okLat || !okLon {
		return nil, nil
	}

	var c models.Coordinate
	if _, err := fmt.Sscanf(latStr, "%g", &c.Latitude); err != nil {
		return nil, fmt.Errorf("parsing cached latitude: %w", err)
	}
	if _, err := fmt.Sscanf(lonStr, "%g", &c.Longitude); err != nil {
		return nil, fmt.Errorf("parsing cached longitude: %w", err)
	}
	return &c, nil
}

func (r *FileRepository) setScalar(ctx context.Context, key, value string) error {
	scalars, err := r.readScalars(ctx)
	if err != nil {
		return err
	}
	scalars[key] = value
	return r.writeScalars(scalars)
}

func (r *FileRepository) getScalar(ctx context.Context, key string) (string, error) {
	scalars, err := r.readScalars(ctx)
	if err != nil {
		return "", err
	}
	return scalars[key], nil
}

func (r *FileRepository) readScalars(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.scalarsPath())
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading scalar cache: %w", err)
	}

	scalars := map[string]string{}
	if err := json.Unmarshal(data, &scalars); err != nil {
		return nil, fmt.Errorf("decoding scalar cache: %w", err)
	}
	return scalars, nil
}

func (r *FileRepository) writeScalars(scalars map[string]string) error {
	data, err := json.Marshal(scalars)
	if err != nil {
		return fmt.Errorf("encoding scalar cache: %w", err)
	}
	if err := writeFileAtomic(r.scalarsPath(), data); err != nil {
		return fmt.Errorf("writing scalar cache: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}
