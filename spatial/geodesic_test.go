// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/geodesic"
)

// destination walks distKm from p along azimuth azi on the ellipsoid.
func destination(p Point, azi, distKm float64) Point {
	var lat, lng float64

	geodesic.WGS84.Direct(p.Lat, p.Lng, azi, distKm*1000, &lat, &lng, nil)

	return Point{Lat: lat, Lng: lng}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Point
		expected float64
		delta    float64
	}{
		{
			name:     "SamePoint",
			a:        Point{Lat: 29.6516, Lng: -82.3248},
			b:        Point{Lat: 29.6516, Lng: -82.3248},
			expected: 0,
			delta:    0,
		},
		{
			name:     "OneDegreeOfLatitudeAtEquator",
			a:        Point{Lat: 0, Lng: 0},
			b:        Point{Lat: 1, Lng: 0},
			expected: 110.574,
			delta:    0.001,
		},
		{
			name:     "OneDegreeOfLongitudeAtEquator",
			a:        Point{Lat: 0, Lng: 0},
			b:        Point{Lat: 0, Lng: 1},
			expected: 111.319,
			delta:    0.001,
		},
		{
			name:     "NeighbouringBlocks",
			a:        Point{Lat: 29.6516, Lng: -82.3248},
			b:        Point{Lat: 29.6520, Lng: -82.3252},
			expected: 0.058,
			delta:    0.002,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, Distance(tc.a, tc.b), tc.delta)
			assert.InDelta(t, tc.expected, Distance(tc.b, tc.a), tc.delta, "distance must be symmetric")
		})
	}
}

func TestDistance_IdenticalPointsIsExactlyZero(t *testing.T) {
	for _, p := range []Point{
		{Lat: 0, Lng: 0},
		{Lat: 29.6516, Lng: -82.3248},
		{Lat: -89.9, Lng: 179.9},
	} {
		assert.Zero(t, Distance(p, p), "distance from %s to itself", p)
	}
}

func TestDistance_MatchesDirectProblem(t *testing.T) {
	origin := Point{Lat: 29.6516, Lng: -82.3248}

	for _, d := range []float64{0.3, 0.999, 1.0, 1.001, 50} {
		for _, azi := range []float64{0, 45, 90, 180, -135} {
			p := destination(origin, azi, d)
			assert.InDelta(t, d, Distance(origin, p), 1e-9, "azimuth %v distance %v", azi, d)
		}
	}
}

func TestHaversineDistance_IsCloseToGeodesic(t *testing.T) {
	a := Point{Lat: 29.6516, Lng: -82.3248}
	b := destination(a, 30, 1)

	geo := Distance(a, b) * 1000
	hav := a.HaversineDistance(&b)

	assert.InEpsilon(t, geo, hav, 0.006)
	assert.NotEqual(t, math.Round(geo*1000), math.Round(hav*1000), "spherical model should not agree to the millimeter")
}

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Lat: 29.65, Lng: -82.32}.Valid())
	assert.True(t, Point{Lat: -90, Lng: 180}.Valid())
	assert.False(t, Point{Lat: 91, Lng: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lng: -180.5}.Valid())
	assert.False(t, Point{Lat: math.NaN(), Lng: 0}.Valid())
}

func TestCell(t *testing.T) {
	a := Point{Lat: 29.6516, Lng: -82.3248}

	cell, err := Cell(a, CellResolution)
	require.NoError(t, err)
	assert.True(t, cell.IsValid())
	assert.Equal(t, CellResolution, cell.Resolution())

	same, err := Cell(Point{Lat: 29.65161, Lng: -82.32481}, CellResolution)
	require.NoError(t, err)
	assert.Equal(t, cell, same)

	_, err = Cell(a, 16)
	assert.Error(t, err)
}
