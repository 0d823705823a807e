// Package handler exposes the refresh loop over HTTP: a snapshot endpoint,
// a server-sent-events stream of publications, and a manual location input.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/SkrapecMateja/ChargingStations/internal/api"
	"github.com/SkrapecMateja/ChargingStations/internal/location"
	"github.com/SkrapecMateja/ChargingStations/internal/station"
)

type StationsHandler struct {
	provider *station.Provider
	source   *location.ManualSource
	logger   zerolog.Logger
}

func NewStationsHandler(provider *station.Provider, source *location.ManualSource, logger zerolog.Logger) *StationsHandler {
	return &StationsHandler{
		provider: provider,
		source:   source,
		logger:   logger,
	}
}

// Routes mounts the handler on a fresh chi router.
func (h *StationsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)
	r.Get("/stations", h.handleStations)
	r.Get("/stations/stream", h.handleStream)
	r.Put("/location", h.handleLocation)
	r.Post("/lifecycle/background", h.handleBackground)
	r.Post("/lifecycle/foreground", h.handleForeground)

	return r
}

func (h *StationsHandler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	api.Success(w, map[string]string{"status": "ok"})
}

// handleStations serves the latest published batch. Before the first cycle
// completes there is nothing to show yet.
func (h *StationsHandler) handleStations(w http.ResponseWriter, r *http.Request) {
	res, ok := h.provider.Latest()
	if !ok {
		api.Error(w, "not_ready", "No station data yet", http.StatusServiceUnavailable)
		return
	}
	if res.Err != nil {
		api.FetchError(w, res.Err)
		return
	}

	lastUpdate, err := h.provider.LastUpdate(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("last-update lookup failed")
		lastUpdate = nil
	}

	api.Success(w, api.NewStationsResponse(res.Stations, lastUpdate))
}

func (h *StationsHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		api.Error(w, "streaming_unsupported", "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Subscribe before the headers go out so a client that triggers a
	// refresh once it sees the 200 cannot miss the publication.
	results, cancel := h.provider.Stations()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case res, open := <-results:
			if !open {
				return
			}
			if err := writeEvent(w, res); err != nil {
				h.logger.Debug().Err(err).Msg("stream client gone")
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, res station.Result) error {
	var payload []byte
	eventName := "stations"
	if res.Err != nil {
		eventName = "error"
		body, err := json.Marshal(api.NewErrorResponse("fetch_failed", station.Message(res.Err)))
		if err != nil {
			return err
		}
		payload = body
	} else {
		body, err := json.Marshal(api.NewStationsResponse(res.Stations, nil))
		if err != nil {
			return err
		}
		payload = body
	}

	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventName, payload)
	return err
}

type locationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// handleLocation feeds a coordinate into the manual location source, which
// triggers a refresh cycle if the source is authorized.
func (h *StationsHandler) handleLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, "invalid_body", "Invalid request body", http.StatusBadRequest)
		return
	}

	coord, err := api.ParseCoordinate(req.Latitude, req.Longitude)
	if err != nil {
		api.Error(w, "invalid_coordinates", err.Error(), http.StatusBadRequest)
		return
	}

	if h.source.Authorization() == location.AuthorizationDenied {
		api.Error(w, "location_denied", "Location access was denied", http.StatusForbidden)
		return
	}

	h.source.Set(coord)
	api.Success(w, map[string]string{"status": "accepted"})
}

func (h *StationsHandler) handleBackground(w http.ResponseWriter, _ *http.Request) {
	h.provider.EnterBackground()
	api.Success(w, map[string]string{"status": "background"})
}

func (h *StationsHandler) handleForeground(w http.ResponseWriter, _ *http.Request) {
	h.provider.EnterForeground()
	api.Success(w, map[string]string{"status": "foreground"})
}
