// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"log"

	"github.com/gnvdata/canvass/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the last stored day over a read-only HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, repo, err := openRepository(viper.GetString("db-path"))
		if err != nil {
			return err
		}
		defer db.Close()

		log.Printf("Serving on http://%s/api/canvass", serveAddr)

		return server.NewServer(repo).Run(serveAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:8080", "Address to listen on")
}
