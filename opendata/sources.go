// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

package opendata

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	errMultipleMatches = errors.New("multiple matches")
	errSourceNotFound  = errors.New("source not found")
)

// BaseURL is the City of Gainesville open data portal (Socrata).
const BaseURL = "https://data.cityofgainesville.org/resource/"

// Source describes one incident category published on the portal. See:
// https://data.cityofgainesville.org/browse?category=Public+Safety
type Source struct {
	Name      string `json:"name"`       // Category name, also the name of the local table
	DatasetID string `json:"dataset_id"` // Socrata four-by-four identifier
	URL       string `json:"url"`        // JSON resource endpoint
}

// Validate checks if the Source has all required fields.
func (s *Source) Validate() error {
	if s.Name == "" {
		return errors.New("source: name must not be empty")
	}

	if s.URL == "" {
		return fmt.Errorf("source %q: URL must not be empty", s.Name)
	}

	return nil
}

// Title returns the display name of the source.
func (s *Source) Title() string {
	return cases.Title(language.English).String(s.Name)
}

func newSource(name, datasetID string) Source {
	return Source{
		Name:      name,
		DatasetID: datasetID,
		URL:       BaseURL + datasetID + ".json",
	}
}

// Incident categories, in the order they are fetched and unioned.
var sources = []Source{
	newSource("arrests", "ktq3-kscm"),
	newSource("crashes", "d6wv-s8u2"),
	newSource("crimes", "cdd4-6ifk"),
}

// Sources returns a copy of the known sources.
func Sources() []Source {
	ret := make([]Source, len(sources))
	copy(ret, sources)

	return ret
}

// Find locates a source by case-insensitive name prefix or dataset id.
func Find(q string) (*Source, error) {
	if q == "" {
		return nil, errors.New("empty search query")
	}

	var found *Source

	for i := range sources {
		s := &sources[i]
		if s.DatasetID != q &&
			(len(s.Name) < len(q) || !strings.EqualFold(s.Name[:len(q)], q)) {
			continue
		}

		if found != nil {
			return nil, fmt.Errorf("%w for %q: %q, %q", errMultipleMatches, q, found.Name, s.Name)
		}

		srcCopy := *s
		found = &srcCopy
	}

	if found == nil {
		return nil, fmt.Errorf("%w: %q", errSourceNotFound, q)
	}

	return found, nil
}

// Each applies the given callback function to each source.
// It stops iteration and returns the error if the callback returns an error.
func Each(callback func(Source) error) error {
	for i := range sources {
		if err := callback(sources[i]); err != nil {
			return err
		}
	}

	return nil
}
