// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

package canvass

// Stage is a step of a run. Stages only move forward.
type Stage int

const (
	StageFetching Stage = iota
	StageStoring
	StageQuerying
	StageSelecting
	StageFiltering
	StageOrdering
	StageEmitting
	StageDone
	// StageEmpty ends a run that had nothing to report.
	StageEmpty
)

var stageNames = [...]string{
	StageFetching:  "fetching",
	StageStoring:   "storing",
	StageQuerying:  "querying",
	StageSelecting: "selecting",
	StageFiltering: "filtering",
	StageOrdering:  "ordering",
	StageEmitting:  "emitting",
	StageDone:      "done",
	StageEmpty:     "empty",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}

	return stageNames[s]
}

// Terminal reports whether no further stage follows s.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageEmpty
}
