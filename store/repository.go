// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

// Package store persists fetched incident records in DuckDB.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gnvdata/canvass/opendata"
	"github.com/gnvdata/canvass/proximity"
	"github.com/gnvdata/canvass/spatial"
)

// IncidentRepository defines the interface for database operations.
type IncidentRepository interface {
	// CreateSchema creates the per-category tables if they don't exist.
	CreateSchema() error
	// ReplaceAll overwrites each category table with the fetched records.
	ReplaceAll(results []*opendata.FetchResult) (int64, error)
	// Incidents returns every stored incident that has both coordinates.
	Incidents() ([]proximity.Incident, error)
	// Counts returns the number of stored and geocoded rows per category.
	Counts() ([]TableCount, error)
}

// TableCount summarizes the content of a category table.
type TableCount struct {
	Category string `json:"category"`
	Rows     int64  `json:"rows"`
	Geocoded int64  `json:"geocoded"`
}

type sqlIncidentRepository struct {
	db     *sql.DB
	tables []string
}

// NewSQLIncidentRepository returns a repository with one table per known source.
func NewSQLIncidentRepository(db *sql.DB) (IncidentRepository, error) {
	if db == nil {
		return nil, errors.New("nil database handle")
	}

	repo := &sqlIncidentRepository{db: db}
	for _, src := range opendata.Sources() {
		repo.tables = append(repo.tables, src.Name)
	}

	return repo, nil
}

const tableColumns = `(
	case_number VARCHAR NOT NULL,
	datetime VARCHAR,
	latitude DOUBLE,
	longitude DOUBLE,
	total_involved BIGINT NOT NULL DEFAULT 0,
	h3_res8 VARCHAR,
	raw VARCHAR
)`

func (r *sqlIncidentRepository) hasTable(name string) bool {
	for _, t := range r.tables {
		if t == name {
			return true
		}
	}

	return false
}

func (r *sqlIncidentRepository) CreateSchema() error {
	for _, table := range r.tables {
		if _, err := r.db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q %s`, table, tableColumns)); err != nil {
			return fmt.Errorf("creating table %s: %w", table, err)
		}
	}

	return nil
}

func nve(v string) any {
	if v == "" {
		return nil
	}

	return v
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}

	return *v
}

// cellOf returns the H3 cell of a geocoded record, or nil.
func cellOf(rec *opendata.Record) (any, error) {
	if !rec.Geocoded() {
		return nil, nil
	}

	cell, err := spatial.Cell(spatial.Point{Lat: *rec.Latitude, Lng: *rec.Longitude}, spatial.CellResolution)
	if err != nil {
		return nil, err
	}

	return cell.String(), nil
}

func (r *sqlIncidentRepository) ReplaceAll(results []*opendata.FetchResult) (n int64, err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	for _, result := range results {
		table := result.Source.Name
		if !r.hasTable(table) {
			return 0, fmt.Errorf("unknown category table %q", table)
		}

		if _, err := tx.Exec(fmt.Sprintf(`CREATE OR REPLACE TABLE %q %s`, table, tableColumns)); err != nil {
			return 0, fmt.Errorf("replacing table %s: %w", table, err)
		}

		stored, err := insertRecords(tx, table, result.Records)
		if err != nil {
			return 0, err
		}

		n += stored
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	return n, nil
}

func insertRecords(tx *sql.Tx, table string, records []opendata.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %q VALUES (?, ?, ?, ?, ?, ?, ?)`, table))
	if err != nil {
		return 0, fmt.Errorf("preparing insert into %s: %w", table, err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]

		cell, err := cellOf(rec)
		if err != nil {
			return 0, fmt.Errorf("indexing %s: %w", rec.CaseNumber, err)
		}

		if _, err := stmt.Exec(
			rec.CaseNumber,
			nve(rec.Datetime),
			nullableFloat(rec.Latitude),
			nullableFloat(rec.Longitude),
			rec.TotalInvolved,
			cell,
			nve(string(rec.Raw)),
		); err != nil {
			return 0, fmt.Errorf("inserting %s into %s: %w", rec.CaseNumber, table, err)
		}
	}

	return int64(len(records)), nil
}

func (r *sqlIncidentRepository) incidentsQuery() string {
	selects := make([]string, 0, len(r.tables))
	for _, table := range r.tables {
		selects = append(selects, fmt.Sprintf(
			`SELECT case_number, latitude, longitude, total_involved, '%s' AS category FROM %q`,
			table, table,
		))
	}

	return fmt.Sprintf(`
		SELECT case_number, latitude, longitude, COALESCE(total_involved, 0) AS people, category
		FROM (
			%s
		)
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY category, case_number`,
		strings.Join(selects, "\n\t\t\tUNION ALL\n\t\t\t"),
	)
}

func (r *sqlIncidentRepository) Incidents() ([]proximity.Incident, error) {
	rows, err := r.db.Query(r.incidentsQuery())
	if err != nil {
		return nil, fmt.Errorf("querying incidents: %w", err)
	}
	defer rows.Close()

	var incidents []proximity.Incident

	for rows.Next() {
		var inc proximity.Incident
		if err := rows.Scan(&inc.ID, &inc.Point.Lat, &inc.Point.Lng, &inc.Involved, &inc.Category); err != nil {
			return nil, fmt.Errorf("scanning incident: %w", err)
		}

		incidents = append(incidents, inc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating incidents: %w", err)
	}

	return incidents, nil
}

func (r *sqlIncidentRepository) Counts() ([]TableCount, error) {
	counts := make([]TableCount, 0, len(r.tables))

	for _, table := range r.tables {
		c := TableCount{Category: table}

		err := r.db.QueryRow(fmt.Sprintf(
			`SELECT COUNT(*), COUNT(*) FILTER (WHERE latitude IS NOT NULL AND longitude IS NOT NULL) FROM %q`,
			table,
		)).Scan(&c.Rows, &c.Geocoded)
		if err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}

		counts = append(counts, c)
	}

	return counts, nil
}
