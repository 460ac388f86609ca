// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/ManuGH/watchlist/internal/cache"
	"github.com/ManuGH/watchlist/internal/config"
	"github.com/ManuGH/watchlist/internal/library"
	"github.com/ManuGH/watchlist/internal/watchlist"
)

func newRankCmd(configPath *string) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank the watch list once and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			snap, err := rankOnce(cmd.Context(), cfg, "cli")
			if err != nil {
				return err
			}
			if asJSON {
				return writeSnapshotJSON(cmd.OutOrStdout(), snap)
			}
			return writeSnapshotTable(cmd.OutOrStdout(), snap)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newExportCmd(configPath *string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Rank the watch list once and write it to a JSON file atomically",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			snap, err := rankOnce(cmd.Context(), cfg, "export")
			if err != nil {
				return err
			}
			if err := exportSnapshot(out, snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d entries to %s\n", len(snap.Entries), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "watchlist.json", "output file")
	return cmd
}

// rankOnce opens the store, ranks once and returns the snapshot.
func rankOnce(ctx context.Context, cfg config.AppConfig, trigger string) (*watchlist.Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := library.NewStore(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	svc := watchlist.NewService(store, cache.NewMemory(), cfg.Ranking)
	return svc.Refresh(ctx, trigger)
}

func writeSnapshotJSON(w io.Writer, snap *watchlist.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func writeSnapshotTable(w io.Writer, snap *watchlist.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSCORE\tKEY\tRULE\tTITLE")
	for i, e := range snap.Entries {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\n", i+1, e.Score, e.Candidate.Key, e.Candidate.RuleID, e.Candidate.Title)
	}
	return tw.Flush()
}

// exportSnapshot writes the snapshot with fsync and atomic rename.
func exportSnapshot(path string, snap *watchlist.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := renameio.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
