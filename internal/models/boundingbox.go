package models

import (
	"fmt"
	"math"
)

// BoundingBox is a rectangular lat/lon region scoping a geographic query.
// It is derived from a center and radius and never persisted.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// QueryString encodes the box the way the geo-feature service expects it:
// minLon,minLat,maxLon,maxLat.
func (b BoundingBox) QueryString() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// LatSpanMeters returns the north-south extent of the box in meters.
func (b BoundingBox) LatSpanMeters() float64 {
	return (b.MaxLat - b.MinLat) * 111.0 * 1000
}

// LonSpanMeters returns the east-west extent of the box in meters, measured
// at the box's mid latitude.
func (b BoundingBox) LonSpanMeters() float64 {
	midLat := (b.MinLat + b.MaxLat) / 2
	return (b.MaxLon - b.MinLon) * 111.0 * math.Cos(midLat*math.Pi/180) * 1000
}
