// Package types contains wire types shared by the HTTP layer and its clients.
package types

// GeoJSON type names.
const (
	TypeFeatureCollection = "FeatureCollection"
	TypeFeature           = "Feature"
	TypePoint             = "Point"
)

// FeatureCollection is a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a GeoJSON Feature with a point geometry.
type Feature struct {
	Type       string          `json:"type"`
	Geometry   Geometry        `json:"geometry"`
	Properties EventProperties `json:"properties"`
}

// Geometry is a GeoJSON point. Coordinates are [longitude, latitude].
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// EventProperties carries the event fields shown on the map.
type EventProperties struct {
	ID           int64   `json:"id"`
	Timestamp    string  `json:"timestamp"`
	CheckpointID string  `json:"checkpoint_id,omitempty"`
	VehicleID    string  `json:"vehicle_id,omitempty"`
	RiskScore    int     `json:"risk_score"`
	Probability  float64 `json:"probability"`
	IsSuspicious int     `json:"is_suspicious"`
}

// NewPoint returns a point feature at lat/lon.
func NewPoint(lat, lon float64, props EventProperties) Feature {
	return Feature{
		Type:       TypeFeature,
		Geometry:   Geometry{Type: TypePoint, Coordinates: [2]float64{lon, lat}},
		Properties: props,
	}
}

// NewFeatureCollection wraps features; a nil slice encodes as [].
func NewFeatureCollection(features []Feature) FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return FeatureCollection{Type: TypeFeatureCollection, Features: features}
}
