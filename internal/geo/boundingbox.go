// Package geo holds the pure coordinate math used to scope station queries.
package geo

import (
	"math"

	"github.com/SkrapecMateja/ChargingStations/internal/models"
)

// kmPerDegree is the approximate surface distance of one degree of latitude.
const kmPerDegree = 111.0

// BoundingBoxCalculator converts a center point and radius into a lat/lon
// query box. Deterministic, no error cases.
type BoundingBoxCalculator struct{}

// Compute returns the bounding box of radiusKm around center.
//
// The center is first normalized to a canonical frame (latitude by absolute
// value, negative longitudes folded by +360) so the delta math does not flip
// signs around the antimeridian or in the southern hemisphere. Near the
// poles cos(lat) approaches zero and the longitude delta grows very large;
// that is a known limitation of the flat-earth approximation, not handled
// specially.
func (BoundingBoxCalculator) Compute(center models.Coordinate, radiusKm float64) models.BoundingBox {
	c := normalize(center)

	latDelta := radiusKm / kmPerDegree
	lonDelta := radiusKm / (kmPerDegree * math.Cos(c.Latitude*math.Pi/180))

	return models.BoundingBox{
		MinLat: c.Latitude - latDelta,
		MaxLat: c.Latitude + latDelta,
		MinLon: c.Longitude - lonDelta,
		MaxLon: c.Longitude + lonDelta,
	}
}

func normalize(c models.Coordinate) models.Coordinate {
	lat := c.Latitude
	if lat < 0 {
		lat = -lat
	}
	lon := c.Longitude
	if lon < 0 {
		lon += 360
	}
	return models.Coordinate{Latitude: lat, Longitude: lon}
}
