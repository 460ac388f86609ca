// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command watchlistd ranks unwatched recordings into a watch list and serves it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuGH/watchlist/internal/config"
	"github.com/ManuGH/watchlist/internal/log"
	"github.com/ManuGH/watchlist/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "watchlistd",
		Short:         "Watch list ranking daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (YAML)")

	root.AddCommand(
		newServeCmd(&configPath),
		newRankCmd(&configPath),
		newExportCmd(&configPath),
		newVerifyCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

// loadConfig loads configuration and configures logging from it.
func loadConfig(path string) (config.AppConfig, *config.Loader, error) {
	log.Configure(log.Config{Level: "info", Service: "watchlistd", Version: version.Version})

	loader := config.NewLoader(path, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		return cfg, nil, err
	}

	log.Configure(log.Config{Level: cfg.LogLevel, Service: "watchlistd", Version: cfg.Version})
	return cfg, loader, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
