// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

// Package proximity finds the incidents that cluster around the incident with
// the largest number of people involved.
package proximity

import (
	"math"
	"slices"
	"strings"

	"github.com/gnvdata/canvass/spatial"
)

// DefaultRadiusKm is the search radius around the center incident.
const DefaultRadiusKm = 1.0

// haversineSlack bounds how much the spherical approximation may
// underestimate the ellipsoidal distance.
const haversineSlack = 1.01

// Incident is a geocoded record from any of the incident categories.
type Incident struct {
	ID       string        `json:"case_number"`
	Point    spatial.Point `json:"point"`
	Involved int64         `json:"total_involved"`
	Category string        `json:"category"`
}

// Result is a single entry of the proximity report.
type Result struct {
	Involved int64  `json:"total_involved"`
	ID       string `json:"case_number"`
}

// SelectCenter returns the incident with the most people involved. Ties are
// broken by the smallest ID so the choice does not depend on input order.
// ok is false when incidents is empty.
func SelectCenter(incidents []Incident) (center Incident, ok bool) {
	for i, inc := range incidents {
		if i == 0 ||
			inc.Involved > center.Involved ||
			(inc.Involved == center.Involved && inc.ID < center.ID) {
			center = inc
		}
	}

	return center, len(incidents) > 0
}

// WithinRadius returns every incident whose geodesic distance to center is at
// most radiusKm. A non-positive or NaN radius means DefaultRadiusKm.
func WithinRadius(incidents []Incident, center spatial.Point, radiusKm float64) []Result {
	if math.IsNaN(radiusKm) || radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}

	bound := radiusKm * 1000 * haversineSlack
	nearby := make([]Result, 0, len(incidents))

	for _, inc := range incidents {
		// certainly outside, skip the iterative solution
		if center.HaversineDistance(&inc.Point) > bound {
			continue
		}

		if spatial.Distance(center, inc.Point) <= radiusKm {
			nearby = append(nearby, Result{Involved: inc.Involved, ID: inc.ID})
		}
	}

	return nearby
}

// SortResults orders results by people involved, descending, then by ID.
func SortResults(results []Result) {
	slices.SortStableFunc(results, func(a, b Result) int {
		switch {
		case a.Involved > b.Involved:
			return -1
		case a.Involved < b.Involved:
			return 1
		default:
			return strings.Compare(a.ID, b.ID)
		}
	})
}

// Canvass selects the center incident and returns the ordered list of
// incidents within radiusKm of it. It returns nil when incidents is empty.
func Canvass(incidents []Incident, radiusKm float64) []Result {
	center, ok := SelectCenter(incidents)
	if !ok {
		return nil
	}

	nearby := WithinRadius(incidents, center.Point, radiusKm)
	SortResults(nearby)

	return nearby
}
