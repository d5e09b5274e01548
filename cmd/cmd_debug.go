// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gnvdata/canvass/spatial"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugDistanceCmd = &cobra.Command{
	Use:   "distance",
	Short: "Geodesic distance between pairs of points",
	Long: `Reads "lat1 lon1 lat2 lon2" per line and prints the geodesic distance in
kilometers, followed by the H3 cell of each point.

$ echo 29.6516 -82.3248 29.6520 -82.3252 | canvass debug distance
	`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		input := os.Stdin
		if isatty.IsTerminal(input.Fd()) {
			fmt.Fprintln(os.Stderr, "Enter point pairs to measure, one per line…")
		}

		return measure(input, cmd.OutOrStdout())
	},
}

func parsePair(line string) (spatial.Point, spatial.Point, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) != 4 {
		return spatial.Point{}, spatial.Point{}, fmt.Errorf("expected 4 coordinates, got %d", len(fields))
	}

	var v [4]float64

	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return spatial.Point{}, spatial.Point{}, fmt.Errorf("parsing %q: %w", f, err)
		}

		v[i] = n
	}

	a, b := spatial.Point{Lat: v[0], Lng: v[1]}, spatial.Point{Lat: v[2], Lng: v[3]}
	if !a.Valid() || !b.Valid() {
		return a, b, fmt.Errorf("coordinates out of range: %s %s", a, b)
	}

	return a, b, nil
}

func measure(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		a, b, err := parsePair(line)
		if err != nil {
			fmt.Fprintf(w, "%s\t%q\n", line, err)

			continue
		}

		cellA, errA := spatial.Cell(a, spatial.CellResolution)
		cellB, errB := spatial.Cell(b, spatial.CellResolution)
		if errA != nil || errB != nil {
			fmt.Fprintf(w, "%s\t%q\n", line, fmt.Sprint(errA, errB))

			continue
		}

		fmt.Fprintf(w, "%f\t%s\t%s\n", spatial.Distance(a, b), cellA, cellB)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugDistanceCmd)
}
