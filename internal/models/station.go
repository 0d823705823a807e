package models

import "time"

// Availability is the live status of a charging station as reported by the
// geo-feature service. Wire values outside the known set map to
// AvailabilityUnknown.
type Availability string

const (
	AvailabilityAvailable    Availability = "Available"
	AvailabilityOccupied     Availability = "Occupied"
	AvailabilityOutOfService Availability = "OutOfService"
	AvailabilityUnknown      Availability = "Unknown"
)

// ParseAvailability maps a raw status string to an Availability.
func ParseAvailability(s string) Availability {
	switch Availability(s) {
	case AvailabilityAvailable, AvailabilityOccupied, AvailabilityOutOfService:
		return Availability(s)
	default:
		return AvailabilityUnknown
	}
}

// ChargingFacility is a single charge point on a station.
type ChargingFacility struct {
	PowerKW uint16 `json:"power"`
}

// Station is the domain entity published to subscribers and persisted to the
// cache. A station is built once per fetch cycle and never mutated; each
// cycle's batch replaces the previous one wholesale.
type Station struct {
	ID           string             `json:"id"`
	Latitude     float64            `json:"latitude"`
	Longitude    float64            `json:"longitude"`
	Availability Availability       `json:"availability"`
	Facilities   []ChargingFacility `json:"facilities,omitempty"`
	LastUpdate   *time.Time         `json:"lastUpdate,omitempty"`
}

// MaxPowerKW returns the highest facility power rating, or 0 for a station
// with no facilities. This is the sort key for the power ordering.
func (s Station) MaxPowerKW() uint16 {
	var max uint16
	for _, f := range s.Facilities {
		if f.PowerKW > max {
			max = f.PowerKW
		}
	}
	return max
}

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
