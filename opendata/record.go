// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

package opendata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedRecord is returned for rows that cannot be used at all.
var ErrMalformedRecord = errors.New("malformed record")

// Record is a single incident row as published by the portal. Socrata
// serializes numbers as strings, and omits null fields entirely.
type Record struct {
	CaseNumber    string          `json:"case_number"`
	Datetime      string          `json:"datetime,omitempty"`
	Latitude      *float64        `json:"latitude,omitempty"`
	Longitude     *float64        `json:"longitude,omitempty"`
	TotalInvolved int64           `json:"total_involved"`
	Raw           json.RawMessage `json:"-"`
}

// Geocoded reports whether the record carries both coordinates.
func (r *Record) Geocoded() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// UnmarshalJSON validates and coerces a raw portal object. A missing or empty
// case_number is an error; bad coordinates become nil and a bad
// total_involved becomes 0.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	caseNumber, ok := stringField(fields["case_number"])
	if !ok || caseNumber == "" {
		return fmt.Errorf("%w: missing case_number", ErrMalformedRecord)
	}

	datetime, _ := stringField(fields["datetime"])

	*r = Record{
		CaseNumber: caseNumber,
		Datetime:   datetime,
		Raw:        append(json.RawMessage(nil), bytes.TrimSpace(data)...),
	}

	lat, latOk := numberField(fields["latitude"])
	lng, lngOk := numberField(fields["longitude"])

	if latOk && lngOk && lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180 {
		r.Latitude, r.Longitude = &lat, &lng
	}

	// fractional counts are as unusable as garbage ones
	if n, ok := numberField(fields["total_involved"]); ok && n > 0 && n < math.MaxInt64 && n == math.Trunc(n) {
		r.TotalInvolved = int64(n)
	}

	return nil
}

// stringField accepts a JSON string or number.
func stringField(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), true
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}

	return "", false
}

// numberField accepts a JSON number or a numeric string.
func numberField(raw json.RawMessage) (float64, bool) {
	s, ok := stringField(raw)
	if !ok || s == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}

// DecodeRecords decodes a JSON array of portal objects. Malformed rows are
// skipped and reported in the returned count; a body that isn't an array is
// an error.
func DecodeRecords(data []byte) ([]Record, int, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, 0, fmt.Errorf("decoding response: %w", err)
	}

	records := make([]Record, 0, len(rows))
	dropped := 0

	for _, row := range rows {
		var rec Record
		if err := json.Unmarshal(row, &rec); err != nil {
			dropped++

			continue
		}

		records = append(records, rec)
	}

	return records, dropped, nil
}
