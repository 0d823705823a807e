package station

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/SkrapecMateja/ChargingStations/internal/models"
	"github.com/SkrapecMateja/ChargingStations/pkg/http/client"
)

// wfsPath is the GetFeature query against the geo-feature service; the bbox
// filter is appended per request.
const wfsPath = "/geoserver/ich-tanke-strom/ows?service=WFS&version=1.0.0&request=GetFeature&typeName=ich-tanke-strom%3Aevse&outputFormat=application%2Fjson&cql_filter="

// RawStation is one station record as delivered by the feature service,
// before domain mapping. Coordinates arrive as strings; facility powers may
// be absent per record.
type RawStation struct {
	ID         string
	EvseStatus string
	Latitude   string
	Longitude  string
	Powers     []*uint16
}

// Fetcher abstracts the remote station fetch for the orchestrator.
type Fetcher interface {
	FetchStations(ctx context.Context, box models.BoundingBox) ([]RawStation, error)
}

type cachedFetch struct {
	stations  []RawStation
	expiresAt time.Time
}

// Client fetches raw stations for a bounding box. Responses are memoized in
// a small LRU for a few seconds so a burst of triggers against the same box
// hits the service once.
type Client struct {
	httpClient client.Interface
	cache      *lru.Cache[string, cachedFetch]
	cacheTTL   time.Duration
	now        func() time.Time
}

type ClientOptions struct {
	HTTPClient client.Interface
	// CacheSize is the number of bounding boxes memoized. Default 16.
	CacheSize int
	// CacheTTL bounds how long a memoized response is served. Default 5s.
	// Keep it below the refresh interval or timer ticks go stale.
	CacheTTL time.Duration
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.CacheSize == 0 {
		opts.CacheSize = 16
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 5 * time.Second
	}

	responseCache, err := lru.New[string, cachedFetch](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating response cache: %w", err)
	}

	return &Client{
		httpClient: opts.HTTPClient,
		cache:      responseCache,
		cacheTTL:   opts.CacheTTL,
		now:        time.Now,
	}, nil
}

// FetchStations queries the feature service for all stations inside box.
// Failures are classified into the package taxonomy: an offline machine
// yields ErrNetworkUnavailable, everything else ErrServiceUnavailable.
func (c *Client) FetchStations(ctx context.Context, box models.BoundingBox) ([]RawStation, error) {
	key := box.QueryString()
	if entry, ok := c.cache.Get(key); ok {
		if c.now().Before(entry.expiresAt) {
			log.Debug().Str("bbox", key).Msg("Cache HIT for station fetch")
			return entry.stations, nil
		}
		c.cache.Remove(key)
	}

	filter := url.QueryEscape(fmt.Sprintf("bbox(geometry,%s)", key))
	resp, err := c.httpClient.Get(ctx, wfsPath+filter)
	if err != nil {
		if errors.Is(err, client.ErrNotConnected) {
			return nil, fmt.Errorf("%w: %w", ErrNetworkUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	stations, err := decodeFeatureCollection(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	log.Debug().Str("bbox", key).Int("station_count", len(stations)).Msg("Fetched stations")

	c.cache.Add(key, cachedFetch{stations: stations, expiresAt: c.now().Add(c.cacheTTL)})
	return stations, nil
}

func decodeFeatureCollection(data []byte) ([]RawStation, error) {
	var payload struct {
		Features []struct {
			Properties struct {
				ID             string `json:"_id"`
				EvseStatus     string `json:"EvseStatus"`
				GeoCoordinates struct {
					DecimalDegree struct {
						Latitude  string `json:"Latitude"`
						Longitude string `json:"Longitude"`
					} `json:"DecimalDegree"`
				} `json:"GeoCoordinates"`
				ChargingFacilities []struct {
					Power *uint16 `json:"Power"`
				} `json:"ChargingFacilities"`
			} `json:"properties"`
		} `json:"features"`
	}

	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding feature collection: %w", err)
	}

	stations := make([]RawStation, len(payload.Features))
	for i, f := range payload.Features {
		p := f.Properties
		powers := make([]*uint16, len(p.ChargingFacilities))
		for j, cf := range p.ChargingFacilities {
			powers[j] = cf.Power
		}
		stations[i] = RawStation{
			ID:         p.ID,
			EvseStatus: p.EvseStatus,
			Latitude:   p.GeoCoordinates.DecimalDegree.Latitude,
			Longitude:  p.GeoCoordinates.DecimalDegree.Longitude,
			Powers:     powers,
		}
	}
	return stations, nil
}
