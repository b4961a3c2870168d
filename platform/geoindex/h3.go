// Package geoindex buckets coordinates into H3 cells for proximity queries.
package geoindex

import (
	"math"

	"github.com/uber/h3-go/v4"
)

const (
	// Resolution 9 cells are roughly 0.1 km² with ~174 m edges.
	DefaultResolution = 9
	maxRings          = 60
)

// edgeKm approximates the mean hexagon edge length per resolution.
var edgeKm = map[int]float64{
	7:  1.406,
	8:  0.531,
	9:  0.201,
	10: 0.076,
}

type H3Index struct {
	resolution int
}

func New(resolution int) *H3Index {
	if _, ok := edgeKm[resolution]; !ok {
		resolution = DefaultResolution
	}
	return &H3Index{resolution: resolution}
}

func (x *H3Index) Cell(latitude, longitude float64) string {
	return h3.LatLngToCell(h3.NewLatLng(latitude, longitude), x.resolution).String()
}

// Rings is how many grid rings are needed to cover radiusKm.
func (x *H3Index) Rings(radiusKm float64) int {
	if radiusKm <= 0 {
		return 0
	}
	// Centre-to-centre distance between neighbouring hexagons is sqrt(3) edges.
	rings := int(math.Ceil(radiusKm / (edgeKm[x.resolution] * math.Sqrt(3))))
	if rings > maxRings {
		rings = maxRings
	}
	return rings
}

func (x *H3Index) Neighborhood(latitude, longitude, radiusKm float64) []string {
	origin := h3.LatLngToCell(h3.NewLatLng(latitude, longitude), x.resolution)
	cells := h3.GridDisk(origin, x.Rings(radiusKm))
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		out = append(out, c.String())
	}
	return out
}
