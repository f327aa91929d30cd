package mds

import (
	"fmt"
	"math"
)

// earthRadiusMeters is the mean Earth radius used for great-circle distances.
const earthRadiusMeters = 6371000.0

// GPS is a single telemetry fix in the MDS GPS schema.
type GPS struct {
	Lat                float64  `json:"lat"`
	Lng                float64  `json:"lng"`
	Altitude           *float64 `json:"altitude,omitempty"`
	Heading            *float64 `json:"heading,omitempty"`
	Speed              *float64 `json:"speed,omitempty"`
	Accuracy           *float64 `json:"accuracy,omitempty"`
	HorizontalAccuracy *float64 `json:"horizontal_accuracy,omitempty"`
	VerticalAccuracy   *float64 `json:"vertical_accuracy,omitempty"`
	Satellites         *int     `json:"satellites,omitempty"`
	Hdop               *float64 `json:"hdop,omitempty"`
}

// Validate range-checks the fix.
func (g *GPS) Validate() error {
	if g.Lat < -90 || g.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", g.Lat)
	}
	if g.Lng < -180 || g.Lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", g.Lng)
	}
	if g.Heading != nil && (*g.Heading < 0 || *g.Heading > 360) {
		return fmt.Errorf("heading %v out of range [0, 360]", *g.Heading)
	}
	return nil
}

// Point is a GeoJSON Point geometry, coordinates ordered [lng, lat].
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewPoint builds a GeoJSON Point from a lat/lng pair.
func NewPoint(lat, lng float64) Point {
	return Point{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

// Feature is a GeoJSON Feature wrapping a Point geometry.
type Feature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   Point          `json:"geometry"`
}

// NewFeature builds a Feature for a fix, stamping the observation time (ms)
// into the properties the way agency consumers expect.
func NewFeature(lat, lng float64, timestampMillis int64) *Feature {
	return &Feature{
		Type:       "Feature",
		Properties: map[string]any{"timestamp": timestampMillis},
		Geometry:   NewPoint(lat, lng),
	}
}

// Haversine returns the great-circle distance in meters between two
// coordinate pairs.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}
