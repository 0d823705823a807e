package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/SkrapecMateja/ChargingStations/internal/models"
	"github.com/SkrapecMateja/ChargingStations/internal/station"
)

type APIResponse struct {
	ResponseType string `json:"responseType"`
}

type StationsResponse struct {
	APIResponse
	Stations   []models.Station `json:"stations"`
	LastUpdate *time.Time       `json:"lastUpdate,omitempty"`
}

type ErrorResponse struct {
	APIResponse
	Code  string `json:"code"`
	Error string `json:"error"`
}

func NewStationsResponse(stations []models.Station, lastUpdate *time.Time) *StationsResponse {
	if stations == nil {
		stations = []models.Station{}
	}
	return &StationsResponse{
		APIResponse: APIResponse{ResponseType: "stations"},
		Stations:    stations,
		LastUpdate:  lastUpdate,
	}
}

func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{
		APIResponse: APIResponse{ResponseType: "error"},
		Code:        code,
		Error:       message,
	}
}

// Response helpers
func Success(w http.ResponseWriter, body interface{}) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		Error(w, "internal_error", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(jsonBody)
}

func Error(w http.ResponseWriter, code, message string, statusCode int) {
	body, _ := json.Marshal(NewErrorResponse(code, message))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

// FetchError maps a refresh failure onto a status code and stable error
// code, using the human-readable text the rest of the system shows.
func FetchError(w http.ResponseWriter, err error) {
	code, status := classify(err)
	Error(w, code, station.Message(err), status)
}

func classify(err error) (string, int) {
	switch {
	case errors.Is(err, station.ErrLocationUnavailable):
		return "location_unavailable", http.StatusServiceUnavailable
	case errors.Is(err, station.ErrNetworkUnavailable):
		return "network_unavailable", http.StatusServiceUnavailable
	case errors.Is(err, station.ErrServiceUnavailable):
		return "service_unavailable", http.StatusBadGateway
	case errors.Is(err, station.ErrCacheReadFailed):
		return "cache_read_failed", http.StatusInternalServerError
	case errors.Is(err, station.ErrCacheWriteFailed):
		return "cache_write_failed", http.StatusInternalServerError
	default:
		return "internal_error", http.StatusInternalServerError
	}
}

// ParseCoordinate validates a latitude/longitude pair from a request body.
func ParseCoordinate(lat, lon float64) (models.Coordinate, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return models.Coordinate{}, InvalidCoordinatesError{}
	}
	return models.Coordinate{Latitude: lat, Longitude: lon}, nil
}

type InvalidCoordinatesError struct{}

func (e InvalidCoordinatesError) Error() string {
	return "Invalid coordinates"
}
