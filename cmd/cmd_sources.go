// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/gnvdata/canvass/opendata"
	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources [query]",
	Short: "Lists the incident categories fetched from the portal",
	Long: `Lists the incident categories fetched from the portal. An optional query
narrows the list to the category whose name starts with it, or whose dataset
id matches it.

$ canvass sources cra
	`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) > 0 {
			query = args[0]
		}

		return printSources(cmd.OutOrStdout(), query)
	},
}

// printSources writes every source, or only the one matching query.
func printSources(w io.Writer, query string) error {
	each := opendata.Each
	if query != "" {
		src, err := opendata.Find(query)
		if err != nil {
			return err
		}

		each = func(callback func(opendata.Source) error) error {
			return callback(*src)
		}
	}

	a, b, c := strings.Repeat("─", 10), strings.Repeat("─", 10), strings.Repeat("─", 60)
	fmt.Fprintf(w, "╭─%-10s─┬─%-10s─┬─%-60s╮\n", a, b, c)
	fmt.Fprintf(w, "│ %-10s │ %-10s │ %-60s│\n", "Category", "Dataset", "URL")
	fmt.Fprintf(w, "├─%-10s─┼─%-10s─┼─%-60s┤\n", a, b, c)
	err := each(func(src opendata.Source) error {
		_, err := fmt.Fprintf(w, "│ %-10s │ %-10s │ %-60s│\n", src.Title(), src.DatasetID, src.URL)

		return err
	})
	fmt.Fprintf(w, "╰─%-10s─┴─%-10s─┴─%-60s╯\n", a, b, c)

	return err
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
