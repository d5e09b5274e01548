// Copyright 2025 The Canvass Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"fmt"

	"github.com/tidwall/geodesic"
	"github.com/uber/h3-go/v4"
)

// CellResolution is the H3 resolution used to index incidents (~0.7 km² cells).
const CellResolution = 8

// Distance returns the geodesic distance in kilometers between a and b on
// the WGS-84 ellipsoid.
func Distance(a, b Point) float64 {
	if a == b {
		return 0
	}

	var s12 float64

	geodesic.WGS84.Inverse(a.Lat, a.Lng, b.Lat, b.Lng, &s12, nil, nil)

	return s12 / 1000
}

// Cell returns the H3 cell containing p at the given resolution.
func Cell(p Point, res int) (h3.Cell, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), res)
	if err != nil {
		return 0, fmt.Errorf("converting %s to h3 cell at res %d: %w", p, res, err)
	}

	return cell, nil
}
