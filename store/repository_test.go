// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"database/sql"
	"encoding/json"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/gnvdata/canvass/opendata"
	"github.com/gnvdata/canvass/proximity"
	"github.com/gnvdata/canvass/spatial"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*sql.DB, IncidentRepository) {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewSQLIncidentRepository(db)
	require.NoError(t, err)
	require.NoError(t, repo.CreateSchema())

	return db, repo
}

func source(t *testing.T, name string) opendata.Source {
	t.Helper()

	src, err := opendata.Find(name)
	require.NoError(t, err)

	return *src
}

func records(t *testing.T, raw string) []opendata.Record {
	t.Helper()

	recs, dropped, err := opendata.DecodeRecords([]byte(raw))
	require.NoError(t, err)
	require.Zero(t, dropped)

	return recs
}

func fixture(t *testing.T) []*opendata.FetchResult {
	return []*opendata.FetchResult{
		{
			Source: source(t, "arrests"),
			Records: records(t, `[
				{"case_number": "202500001", "datetime": "2025-01-01T12:34:56.000", "latitude": "29.6516", "longitude": "-82.3248", "total_involved": "5"},
				{"case_number": "202500004", "datetime": "2025-01-01T01:00:00.000"}
			]`),
		},
		{
			Source: source(t, "crashes"),
			Records: records(t, `[
				{"case_number": "202500002", "latitude": "29.6520", "longitude": "-82.3252", "total_involved": 3}
			]`),
		},
		{
			Source: source(t, "crimes"),
			Records: records(t, `[
				{"case_number": "202500003", "latitude": "30.0", "longitude": "-83.0"}
			]`),
		},
	}
}

func TestSQLRepository_ReplaceAllAndIncidents(t *testing.T) {
	db, repo := setupTestDB(t)

	n, err := repo.ReplaceAll(fixture(t))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	incidents, err := repo.Incidents()
	require.NoError(t, err)

	expected := []proximity.Incident{
		{ID: "202500001", Point: spatial.Point{Lat: 29.6516, Lng: -82.3248}, Involved: 5, Category: "arrests"},
		{ID: "202500002", Point: spatial.Point{Lat: 29.6520, Lng: -82.3252}, Involved: 3, Category: "crashes"},
		{ID: "202500003", Point: spatial.Point{Lat: 30.0, Lng: -83.0}, Involved: 0, Category: "crimes"},
	}
	if diff := cmp.Diff(expected, incidents); diff != "" {
		t.Errorf("incidents mismatch (-expected +got):\n%s", diff)
	}

	// raw rows are kept verbatim
	var raw string
	err = db.QueryRow(`SELECT raw FROM arrests WHERE case_number = '202500004'`).Scan(&raw)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &obj))
	assert.Equal(t, "2025-01-01T01:00:00.000", obj["datetime"])

	// ungeocoded rows have no cell
	var cell sql.NullString
	err = db.QueryRow(`SELECT h3_res8 FROM arrests WHERE case_number = '202500004'`).Scan(&cell)
	require.NoError(t, err)
	assert.False(t, cell.Valid)

	expectedCell, err := spatial.Cell(spatial.Point{Lat: 29.6516, Lng: -82.3248}, spatial.CellResolution)
	require.NoError(t, err)
	err = db.QueryRow(`SELECT h3_res8 FROM arrests WHERE case_number = '202500001'`).Scan(&cell)
	require.NoError(t, err)
	assert.Equal(t, expectedCell.String(), cell.String)
}

func TestSQLRepository_ReplaceAllOverwrites(t *testing.T) {
	_, repo := setupTestDB(t)

	_, err := repo.ReplaceAll(fixture(t))
	require.NoError(t, err)

	_, err = repo.ReplaceAll([]*opendata.FetchResult{
		{Source: source(t, "arrests"), Records: records(t, `[{"case_number": "X", "latitude": "1", "longitude": "2", "total_involved": 9}]`)},
		{Source: source(t, "crashes")},
		{Source: source(t, "crimes")},
	})
	require.NoError(t, err)

	incidents, err := repo.Incidents()
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, "X", incidents[0].ID)
	assert.Equal(t, int64(9), incidents[0].Involved)

	counts, err := repo.Counts()
	require.NoError(t, err)
	assert.Equal(t, []TableCount{
		{Category: "arrests", Rows: 1, Geocoded: 1},
		{Category: "crashes", Rows: 0, Geocoded: 0},
		{Category: "crimes", Rows: 0, Geocoded: 0},
	}, counts)
}

func TestSQLRepository_UnknownTableRollsBack(t *testing.T) {
	_, repo := setupTestDB(t)

	_, err := repo.ReplaceAll(fixture(t))
	require.NoError(t, err)

	_, err = repo.ReplaceAll([]*opendata.FetchResult{
		{Source: source(t, "arrests")},
		{Source: opendata.Source{Name: "fires", URL: "http://example.org"}},
	})
	require.Error(t, err)

	incidents, err := repo.Incidents()
	require.NoError(t, err)
	assert.Len(t, incidents, 3, "failed replacement must leave previous data intact")
}

func TestSQLRepository_EmptySchema(t *testing.T) {
	_, repo := setupTestDB(t)

	incidents, err := repo.Incidents()
	require.NoError(t, err)
	assert.Empty(t, incidents)

	counts, err := repo.Counts()
	require.NoError(t, err)
	assert.Len(t, counts, 3)
}

func TestNewSQLIncidentRepository_NilDB(t *testing.T) {
	_, err := NewSQLIncidentRepository(nil)
	assert.Error(t, err)
}
