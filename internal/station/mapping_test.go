package station

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkrapecMateja/ChargingStations/internal/models"
)

func power(v uint16) *uint16 { return &v }

func TestMapStations(t *testing.T) {
	t.Parallel()

	raws := []RawStation{
		{
			ID:         "CH001",
			EvseStatus: "Available",
			Latitude:   "47.410802",
			Longitude:  "8.5427098",
			Powers:     []*uint16{power(22), power(11)},
		},
		{
			ID:         "CH002",
			EvseStatus: "FooBar",
			Latitude:   "47.38",
			Longitude:  "8.54",
		},
	}

	stations := MapStations(raws)
	require.Len(t, stations, 2)

	assert.Equal(t, "CH001", stations[0].ID)
	assert.InDelta(t, 47.410802, stations[0].Latitude, 1e-9)
	assert.InDelta(t, 8.5427098, stations[0].Longitude, 1e-9)
	assert.Equal(t, models.AvailabilityAvailable, stations[0].Availability)
	assert.Equal(t, []models.ChargingFacility{{PowerKW: 22}, {PowerKW: 11}}, stations[0].Facilities)

	// Unrecognized status maps to Unknown.
	assert.Equal(t, models.AvailabilityUnknown, stations[1].Availability)
}

func TestMapStationsDropsFacilitiesWithoutPower(t *testing.T) {
	t.Parallel()

	raws := []RawStation{
		{
			ID:         "CH003",
			EvseStatus: "Occupied",
			Latitude:   "47.0",
			Longitude:  "8.0",
			Powers:     []*uint16{nil, power(50), nil},
		},
		{
			ID:         "CH004",
			EvseStatus: "Available",
			Latitude:   "47.1",
			Longitude:  "8.1",
			Powers:     []*uint16{nil},
		},
	}

	stations := MapStations(raws)
	require.Len(t, stations, 2)

	assert.Equal(t, []models.ChargingFacility{{PowerKW: 50}}, stations[0].Facilities)

	// All powers absent: empty facility list, sort key 0 — never a
	// defaulted zero-power facility.
	assert.Empty(t, stations[1].Facilities)
	assert.Equal(t, uint16(0), stations[1].MaxPowerKW())
}

func TestMapStationsSkipsUnparsableCoordinates(t *testing.T) {
	t.Parallel()

	raws := []RawStation{
		{ID: "bad", EvseStatus: "Available", Latitude: "north", Longitude: "8.0"},
		{ID: "good", EvseStatus: "Available", Latitude: "47.0", Longitude: "8.0"},
	}

	stations := MapStations(raws)
	require.Len(t, stations, 1)
	assert.Equal(t, "good", stations[0].ID)
}

func TestSortByMaxPower(t *testing.T) {
	t.Parallel()

	stations := []models.Station{
		{ID: "low", Facilities: []models.ChargingFacility{{PowerKW: 11}}},
		{ID: "none"},
		{ID: "high", Facilities: []models.ChargingFacility{{PowerKW: 150}, {PowerKW: 22}}},
		{ID: "mid", Facilities: []models.ChargingFacility{{PowerKW: 50}}},
	}

	SortByMaxPower(stations)

	ids := []string{stations[0].ID, stations[1].ID, stations[2].ID, stations[3].ID}
	assert.Equal(t, []string{"high", "mid", "low", "none"}, ids)
}

func TestSortByMaxPowerTiesKeepFetchOrder(t *testing.T) {
	t.Parallel()

	stations := []models.Station{
		{ID: "first", Facilities: []models.ChargingFacility{{PowerKW: 22}}},
		{ID: "second", Facilities: []models.ChargingFacility{{PowerKW: 22}}},
		{ID: "third", Facilities: []models.ChargingFacility{{PowerKW: 22}}},
		{ID: "fourth"},
		{ID: "fifth"},
	}

	SortByMaxPower(stations)

	ids := make([]string, len(stations))
	for i, s := range stations {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"first", "second", "third", "fourth", "fifth"}, ids)
}
