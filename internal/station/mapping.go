package station

import (
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/SkrapecMateja/ChargingStations/internal/models"
)

// MapStations converts raw wire records into domain stations.
//
// Unrecognized availability strings map to Unknown. Facilities without a
// usable power value are dropped, never defaulted to zero. A record whose
// coordinates do not parse is skipped entirely; a batch is either made of
// well-formed stations or smaller, never padded with zero coordinates.
func MapStations(raws []RawStation) []models.Station {
	stations := make([]models.Station, 0, len(raws))
	for _, raw := range raws {
		lat, latErr := strconv.ParseFloat(raw.Latitude, 64)
		lon, lonErr := strconv.ParseFloat(raw.Longitude, 64)
		if latErr != nil || lonErr != nil {
			log.Warn().Str("station_id", raw.ID).Msg("Skipping station with unparsable coordinates")
			continue
		}

		var facilities []models.ChargingFacility
		for _, power := range raw.Powers {
			if power == nil {
				continue
			}
			facilities = append(facilities, models.ChargingFacility{PowerKW: *power})
		}

		stations = append(stations, models.Station{
			ID:           raw.ID,
			Latitude:     lat,
			Longitude:    lon,
			Availability: models.ParseAvailability(raw.EvseStatus),
			Facilities:   facilities,
		})
	}
	return stations
}

// SortByMaxPower orders stations descending by their maximum facility
// power; stations without facilities sort as power 0. Ties keep fetch
// order.
func SortByMaxPower(stations []models.Station) {
	sort.SliceStable(stations, func(i, j int) bool {
		return stations[i].MaxPowerKW() > stations[j].MaxPowerKW()
	})
}
