package handler

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkrapecMateja/ChargingStations/internal/location"
	"github.com/SkrapecMateja/ChargingStations/internal/models"
	"github.com/SkrapecMateja/ChargingStations/internal/station"
)

type memRepo struct {
	mu          sync.Mutex
	stations    []models.Station
	lastUpdated *time.Time
	lastCoord   *models.Coordinate
}

func (m *memRepo) SaveStations(_ context.Context, s []models.Station) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stations = s
	return nil
}

func (m *memRepo) LoadStations(context.Context) ([]models.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stations, nil
}

func (m *memRepo) SaveLastUpdated(_ context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastUpdated = &t
	return nil
}

func (m *memRepo) LastUpdated(context.Context) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUpdated, nil
}

func (m *memRepo) SaveLastLocation(_ context.Context, c models.Coordinate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCoord = &c
	return nil
}

func (m *memRepo) LastKnownLocation(context.Context) (*models.Coordinate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCoord, nil
}

type fetcherFunc func(ctx context.Context, box models.BoundingBox) ([]station.RawStation, error)

func (f fetcherFunc) FetchStations(ctx context.Context, box models.BoundingBox) ([]station.RawStation, error) {
	return f(ctx, box)
}

func newTestStack(t *testing.T, fetcher station.Fetcher) (*station.Provider, *location.ManualSource, *StationsHandler) {
	t.Helper()

	source := location.NewManualSource()
	source.Grant()

	provider := station.NewProvider(station.ProviderOptions{
		Repository:     &memRepo{},
		Fetcher:        fetcher,
		Location:       source,
		UpdateInterval: time.Hour,
		SearchRadiusKm: 1,
		Logger:         zerolog.Nop(),
	})
	t.Cleanup(provider.Close)

	return provider, source, NewStationsHandler(provider, source, zerolog.Nop())
}

func staticFetcher() station.Fetcher {
	return fetcherFunc(func(context.Context, models.BoundingBox) ([]station.RawStation, error) {
		kw := uint16(50)
		return []station.RawStation{
			{ID: "st-1", EvseStatus: "Available", Latitude: "47.41", Longitude: "8.54", Powers: []*uint16{&kw}},
		}, nil
	})
}

func awaitLatest(t *testing.T, p *station.Provider) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if res, ok := p.Latest(); ok && res.Err == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("provider never published a successful batch")
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	_, _, h := newTestStack(t, staticFetcher())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestStationsBeforeFirstCycle(t *testing.T) {
	t.Parallel()

	_, _, h := newTestStack(t, staticFetcher())

	req := httptest.NewRequest(http.MethodGet, "/stations", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
}

func TestStationsServesLatestBatch(t *testing.T) {
	t.Parallel()

	p, source, h := newTestStack(t, staticFetcher())
	p.Start()
	source.Set(models.Coordinate{Latitude: 47.41, Longitude: 8.54})
	awaitLatest(t, p)

	req := httptest.NewRequest(http.MethodGet, "/stations", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"responseType":"stations"`)
	assert.Contains(t, body, `"st-1"`)
	assert.Contains(t, body, `"lastUpdate"`)
}

func TestLocationEndpointValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "valid coordinate accepted",
			body:       `{"latitude": 47.41, "longitude": 8.54}`,
			wantStatus: http.StatusOK,
			wantCode:   "accepted",
		},
		{
			name:       "latitude out of range",
			body:       `{"latitude": 91.0, "longitude": 8.54}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_coordinates",
		},
		{
			name:       "malformed body",
			body:       `{"latitude": "north"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_body",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, h := newTestStack(t, staticFetcher())

			req := httptest.NewRequest(http.MethodPut, "/location", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantCode)
		})
	}
}

func TestLocationEndpointDenied(t *testing.T) {
	t.Parallel()

	_, source, h := newTestStack(t, staticFetcher())
	source.Deny()

	req := httptest.NewRequest(http.MethodPut, "/location", strings.NewReader(`{"latitude": 47.41, "longitude": 8.54}`))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "location_denied")
}

func TestLifecycleEndpoints(t *testing.T) {
	t.Parallel()

	p, _, h := newTestStack(t, staticFetcher())
	p.Start()

	for _, path := range []string{"/lifecycle/background", "/lifecycle/foreground"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestStreamDeliversPublication(t *testing.T) {
	t.Parallel()

	p, source, h := newTestStack(t, staticFetcher())

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stations/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	p.Start()
	source.Set(models.Coordinate{Latitude: 47.41, Longitude: 8.54})

	reader := bufio.NewReader(resp.Body)
	var event, data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && event == "stations":
			assert.Contains(t, data, `"st-1"`)
			return
		case line == "":
			// A failure event may precede the first success; keep reading.
			event, data = "", ""
		}
	}
}
