// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

// Package canvass runs the daily pipeline: fetch the incident categories,
// store them, and report the incidents near the one with the most people
// involved.
package canvass

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gnvdata/canvass/opendata"
	"github.com/gnvdata/canvass/proximity"
	"github.com/gnvdata/canvass/store"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Fetcher retrieves the records of a source for a calendar day.
type Fetcher interface {
	Fetch(ctx context.Context, src opendata.Source, day time.Time) (*opendata.FetchResult, error)
}

// Options configures a run.
type Options struct {
	// Day to canvass; only the calendar date is used
	Day time.Time

	// RadiusKm around the center incident, DefaultRadiusKm when zero
	RadiusKm float64

	// Sources to fetch, all known sources when empty
	Sources []opendata.Source
}

// Runner executes a single pass of the pipeline.
type Runner struct {
	fetcher Fetcher
	repo    store.IncidentRepository
	out     io.Writer
	stage   Stage
	Metrics Metrics
}

// NewRunner creates a runner writing results to out.
func NewRunner(fetcher Fetcher, repo store.IncidentRepository, out io.Writer) *Runner {
	return &Runner{fetcher: fetcher, repo: repo, out: out}
}

// Stage returns the stage the last run reached.
func (r *Runner) Stage() Stage {
	return r.stage
}

func (r *Runner) enter(s Stage) {
	r.stage = s
}

// Date validates a calendar date given as separate fields.
func Date(year, month, day int) (time.Time, error) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date %04d-%02d-%02d", year, month, day)
	}

	return t, nil
}

// Run fetches, stores and canvasses opts.Day. A fetch failure aborts the
// run before anything is stored or written. Days without records, or
// without geocoded records, end silently with no output.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	r.Metrics = Metrics{}

	defer func() {
		if !r.stage.Terminal() {
			log.Printf("Canvass of %s aborted while %s", opts.Day.Format(time.DateOnly), r.stage)
		}
	}()

	sources := opts.Sources
	if len(sources) == 0 {
		sources = opendata.Sources()
	}

	r.enter(StageFetching)

	results, err := r.fetchAll(ctx, sources, opts.Day)
	if err != nil {
		return err
	}

	if r.Metrics.Records == 0 {
		log.Printf("No records for %s", opts.Day.Format(time.DateOnly))
		r.enter(StageEmpty)

		return nil
	}

	r.enter(StageStoring)

	r.Metrics.Stored, err = r.repo.ReplaceAll(results)
	if err != nil {
		return fmt.Errorf("storing records: %w", err)
	}

	r.enter(StageQuerying)

	incidents, err := r.repo.Incidents()
	if err != nil {
		return fmt.Errorf("querying incidents: %w", err)
	}

	r.Metrics.Incidents = len(incidents)
	if len(incidents) == 0 {
		log.Printf("None of the %d records for %s is geocoded", r.Metrics.Stored, opts.Day.Format(time.DateOnly))
		r.enter(StageEmpty)

		return nil
	}

	r.enter(StageSelecting)

	center, _ := proximity.SelectCenter(incidents)
	log.Printf("Center incident %s (%s) with %d people involved", center.ID, center.Category, center.Involved)

	r.enter(StageFiltering)

	nearby := proximity.WithinRadius(incidents, center.Point, opts.RadiusKm)
	r.Metrics.Nearby = len(nearby)

	r.enter(StageOrdering)
	proximity.SortResults(nearby)

	r.enter(StageEmitting)

	if err := Write(r.out, nearby); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}

	r.enter(StageDone)
	log.Printf(
		"Canvass complete - %d incidents near %s out of %d geocoded, %d stored",
		r.Metrics.Nearby,
		center.ID,
		r.Metrics.Incidents,
		r.Metrics.Stored,
	)

	return nil
}

func (r *Runner) fetchAll(ctx context.Context, sources []opendata.Source, day time.Time) ([]*opendata.FetchResult, error) {
	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(len(sources),
			progressbar.OptionSetDescription("Fetching "+day.Format(time.DateOnly)),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	results := make([]*opendata.FetchResult, 0, len(sources))

	for _, src := range sources {
		if bar == nil {
			log.Printf("Fetching %s for %s", src.Name, day.Format(time.DateOnly))
		}

		result, err := r.fetcher.Fetch(ctx, src, day)
		if err != nil {
			var fetchErr *opendata.FetchError
			if errors.As(err, &fetchErr) {
				return nil, err
			}

			return nil, fmt.Errorf("fetching %s: %w", src.Name, err)
		}

		m := fetchMetricsOf(result)
		r.Metrics.FetchMetrics.Merge(m)

		if m.Dropped > 0 {
			log.Printf("Dropped %d %s rows without case_number", m.Dropped, src.Name)
		}

		results = append(results, result)

		if bar != nil {
			if err := bar.Add(1); err != nil {
				log.Printf("Updating progress bar: %s", err)
			}
		}
	}

	log.Printf(
		"Fetch phase complete - %d records, %d dropped across %d pages",
		r.Metrics.Records,
		r.Metrics.Dropped,
		r.Metrics.Pages,
	)

	return results, nil
}

// Write prints one "count<TAB>case_number" line per result.
func Write(w io.Writer, results []proximity.Result) error {
	for _, res := range results {
		if _, err := fmt.Fprintf(w, "%d\t%s\n", res.Involved, res.ID); err != nil {
			return err
		}
	}

	return nil
}
