package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/treefix50/soundboard/internal/auth"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	cmd.AddCommand(newDBCheckCommand(ctx))
	cmd.AddCommand(newDBVacuumCommand(ctx))
	cmd.AddCommand(newDBPurgeCommand(ctx))
	cmd.AddCommand(newDBAudioCommand(ctx))
	return cmd
}

func newDBCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run an integrity check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			results, err := store.IntegrityCheck()
			if err != nil {
				return fmt.Errorf("integrity check: %w", err)
			}
			version, err := store.SchemaVersion()
			if err != nil {
				return fmt.Errorf("schema version: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Schema version: %d\n", version)
			if len(results) == 1 && results[0] == "ok" {
				fmt.Fprintln(out, "Integrity: ok")
				return nil
			}
			fmt.Fprintln(out, "Integrity problems:")
			for _, line := range results {
				fmt.Fprintf(out, "  %s\n", line)
			}
			return fmt.Errorf("database failed integrity check")
		},
	}
}

func newDBVacuumCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum [target]",
		Short: "Compact the database, or write a compacted copy to target",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := ""
			if len(args) == 1 {
				target = strings.TrimSpace(args[0])
			}
			if target == "" {
				unlock, err := acquireLock(cfg)
				if err != nil {
					return err
				}
				defer unlock()
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Vacuum(target); err != nil {
				return fmt.Errorf("vacuum: %w", err)
			}
			if err := store.Analyze(); err != nil {
				return fmt.Errorf("analyze: %w", err)
			}
			if target != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote compacted copy to %s\n", target)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Database compacted")
			}
			return nil
		},
	}
}

func newDBPurgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired records and sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.PurgeExpired(cmd.Context())
			if err != nil {
				return fmt.Errorf("purge records: %w", err)
			}
			manager := auth.NewManager(store, cfg.SessionDuration(), 0)
			defer manager.Close()
			if err := manager.CleanupExpiredSessions(cmd.Context()); err != nil {
				return fmt.Errorf("purge sessions: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s expired records\n", humanize.Comma(removed))
			return nil
		},
	}
}

func newDBAudioCommand(ctx *commandContext) *cobra.Command {
	var prune bool

	cmd := &cobra.Command{
		Use:   "audio",
		Short: "List stored audio files",
		Long:  "List stored audio files. Files no clip refers to are marked unused; --prune deletes them.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run := ctx.withBoard
			if prune {
				run = ctx.withLockedBoard
			}
			return run(cmd.Context(), func(env *boardEnv) error {
				files, err := env.store.ListBlobs(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(files) == 0 {
					fmt.Fprintln(out, "No audio files stored")
					return nil
				}

				used := make(map[string]bool)
				for _, c := range env.board.Clips.Clips() {
					if c.IsLocal() {
						used[c.AudioID] = true
					}
				}

				var (
					rows  [][]string
					total uint64
					freed uint64
					dead  int
				)
				for _, f := range files {
					size := uint64(max(f.Size, 0))
					total += size
					if !used[f.ID] {
						dead++
						if prune {
							if err := env.store.DeleteBlob(cmd.Context(), f.ID); err != nil {
								return fmt.Errorf("delete audio %s: %w", f.ID, err)
							}
							freed += size
						}
					}
					rows = append(rows, []string{
						f.ID,
						f.Label,
						f.Name,
						humanize.Bytes(size),
						humanize.Time(f.CreatedAt),
						yesNo(used[f.ID]),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Label", "File", "Size", "Added", "In use"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				fmt.Fprintf(out, "%d files, %s total, %d unused\n", len(files), humanize.Bytes(total), dead)
				if prune && dead > 0 {
					fmt.Fprintf(out, "Pruned %d files (%s)\n", dead, humanize.Bytes(freed))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&prune, "prune", false, "Delete files no clip refers to")
	return cmd
}
