// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

package canvass

import "github.com/gnvdata/canvass/opendata"

// FetchMetrics tracks statistics about the fetch phase.
type FetchMetrics struct {
	Records int // usable records
	Dropped int // rows rejected by the record adapter
	Pages   int
}

// Merge combines two FetchMetrics.
func (f *FetchMetrics) Merge(o *FetchMetrics) *FetchMetrics {
	f.Records += o.Records
	f.Dropped += o.Dropped
	f.Pages += o.Pages

	return f
}

func fetchMetricsOf(r *opendata.FetchResult) *FetchMetrics {
	return &FetchMetrics{Records: len(r.Records), Dropped: r.Dropped, Pages: r.Pages}
}

// Metrics tracks a whole run.
type Metrics struct {
	FetchMetrics

	Stored    int64 // rows written to the store
	Incidents int   // geocoded incidents read back
	Nearby    int   // incidents within the radius, center included
}
