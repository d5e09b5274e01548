// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gnvdata/canvass/canvass"
	"github.com/gnvdata/canvass/opendata"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var date struct {
	year, month, day int
}

var rootCmd = &cobra.Command{
	Use:   "canvass",
	Short: "incidents near the day's largest incident in Gainesville",
	Long: `
canvass downloads the arrests, traffic crashes and crime responses published
by the City of Gainesville for a given day, stores them locally and prints the
incidents within 1 km of the incident with the most people involved, one
"<people>\t<case_number>" line each.
`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		day, err := canvass.Date(date.year, date.month, date.day)
		if err != nil {
			return err
		}

		db, repo, err := openRepository(viper.GetString("db-path"))
		if err != nil {
			return err
		}
		defer db.Close()

		client := opendata.NewClient(clientOptions())
		runner := canvass.NewRunner(client, repo, cmd.OutOrStdout())

		return runDay(cmd.Context(), runner, canvass.Options{Day: day})
	},
}

// runDay runs the canvass, hinting at the app token when the portal throttles.
func runDay(ctx context.Context, runner *canvass.Runner, opts canvass.Options) error {
	err := runner.Run(ctx, opts)
	if opendata.IsRateLimitError(err) {
		log.Printf("The portal is rate limiting requests; set --app-token or CANVASS_APP_TOKEN to raise the limit")
	}

	return err
}

var Version = "dev"

func clientOptions() *opendata.ClientOptions {
	return &opendata.ClientOptions{
		UserAgent:           fmt.Sprintf("canvass/%s (+https://github.com/gnvdata/canvass)", Version),
		AppToken:            viper.GetString("app-token"),
		EnableHTTPTrace:     viper.GetBool("trace-http"),
		EnableHTTPBodyTrace: viper.GetBool("trace-http-body"),
	}
}

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().IntVar(&date.year, "year", 0, "Year of the day to canvass")
	rootCmd.Flags().IntVar(&date.month, "month", 0, "Month of the day to canvass (1-12)")
	rootCmd.Flags().IntVar(&date.day, "day", 0, "Day of the month to canvass")

	for _, name := range []string{"year", "month", "day"} {
		if err := rootCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	flags := rootCmd.PersistentFlags()
	flags.String("db-path", "db", "Directory where the local database is stored")
	flags.String("app-token", "", "Socrata app token, raises the portal's rate limits")
	flags.Bool("trace-http", false, "Display HTTP requests-responses")
	flags.Bool("trace-http-body", false, "Display HTTP requests-responses bodies")

	viper.SetEnvPrefix("canvass")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
}
