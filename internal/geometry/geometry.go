// Package geometry builds canonical point geometries from provider
// coordinate fields.
package geometry

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// DefaultSRID is the coordinate reference system used by occurrence
// providers (WGS 84).
const DefaultSRID = 4326

// Point is a lon/lat point tagged with its spatial reference identifier.
type Point struct {
	Lon  float64
	Lat  float64
	SRID int
}

// EWKT renders the point as extended well-known text, the form the
// synthese store persists (e.g. "SRID=4326;POINT(55.45 -21.32)").
func (p *Point) EWKT() string {
	return fmt.Sprintf("SRID=%d;POINT(%s %s)",
		p.SRID,
		strconv.FormatFloat(p.Lon, 'f', -1, 64),
		strconv.FormatFloat(p.Lat, 'f', -1, 64))
}

func (p *Point) String() string { return p.EWKT() }

// Build constructs a point from raw latitude/longitude values. It returns
// nil when either coordinate is absent or non-numeric; a missing location
// is not an error.
func Build(lat, lon any, srid int) *Point {
	latF, ok := toFloat(lat)
	if !ok {
		return nil
	}
	lonF, ok := toFloat(lon)
	if !ok {
		return nil
	}
	if srid == 0 {
		srid = DefaultSRID
	}
	return &Point{Lon: lonF, Lat: latF, SRID: srid}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
