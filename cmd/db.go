// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/gnvdata/canvass/store"
)

const dbFile = "canvass.duckdb"

// openRepository opens (creating if needed) the database under dir.
func openRepository(dir string) (*sql.DB, store.IncidentRepository, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("duckdb", filepath.Join(dir, dbFile))
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repo, err := store.NewSQLIncidentRepository(db)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("initializing repository: %w", err), db.Close())
	}

	if err := repo.CreateSchema(); err != nil {
		return nil, nil, errors.Join(fmt.Errorf("creating schema: %w", err), db.Close())
	}

	return db, repo, nil
}
