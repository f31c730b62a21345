package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrNoGeometry reports input that carries neither a geometry nor a point
// location, so no GeoJSON feature can be built.
var ErrNoGeometry = errors.New("event: no geometry data available")

// FeatureInput is the loosely structured payload accepted for GeoJSON
// conversion. Geometry, when present, takes precedence over Location.
type FeatureInput struct {
	Geometry   json.RawMessage `json:"geometry,omitempty"`
	Properties map[string]any  `json:"properties,omitempty"`
	Location   *Location       `json:"location,omitempty"`
	Source     string          `json:"source,omitempty"`
	Type       string          `json:"event_type,omitempty"`
}

// ToGeoJSON builds a GeoJSON feature from the input. The feature carries the
// input properties plus a normalization timestamp, the source, and the event
// type. Inputs without spatial data return ErrNoGeometry.
func (in FeatureInput) ToGeoJSON() (*geojson.Feature, error) {
	var geom orb.Geometry

	switch {
	case len(in.Geometry) > 0 && string(in.Geometry) != "null":
		g, err := geojson.UnmarshalGeometry(in.Geometry)
		if err != nil {
			return nil, fmt.Errorf("event: decode geometry: %w", err)
		}
		geom = g.Geometry()
	case in.Location != nil:
		geom = orb.Point{in.Location.Lon, in.Location.Lat}
	default:
		return nil, ErrNoGeometry
	}

	f := geojson.NewFeature(geom)
	for k, v := range in.Properties {
		f.Properties[k] = v
	}
	f.Properties["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	f.Properties["source"] = orUnknown(in.Source)
	f.Properties["event_type"] = orUnknown(in.Type)

	return f, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
