// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuGH/watchlist/internal/persistence/sqlite"
)

var errCorrupt = errors.New("database integrity check failed")

func newVerifyCmd(configPath *string) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the library database for corruption",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			mode := "quick"
			if full {
				mode = "full"
			}
			return verifyDatabase(cmd.Context(), cmd.OutOrStdout(), cfg.DatabasePath(), mode)
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "run integrity_check instead of quick_check")
	return cmd
}

func verifyDatabase(ctx context.Context, w io.Writer, path, mode string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("database %s: %w", path, err)
	}
	fmt.Fprintf(w, "verifying %s (mode: %s)\n", path, mode)

	issues, err := sqlite.VerifyIntegrity(ctx, path, mode)
	if err != nil {
		return err
	}
	if issues != nil {
		for _, issue := range issues {
			fmt.Fprintf(w, "  - %s\n", issue)
		}
		return errCorrupt
	}

	fmt.Fprintln(w, "integrity ok")
	return nil
}
