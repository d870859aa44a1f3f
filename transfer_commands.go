package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/treefix50/soundboard/internal/board"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the clips as JSON",
		Long:  "Write the clips as a JSON array to file, or to stdout when no file is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBoard(cmd.Context(), func(env *boardEnv) error {
				data, err := env.board.Clips.Export()
				if err != nil {
					return err
				}
				if len(args) == 0 || args[0] == "-" {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return err
				}
				if err := os.WriteFile(args[0], append(data, '\n'), 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d clips to %s\n", env.board.Clips.Len(), args[0])
				return nil
			})
		},
	}
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load clips from an exported JSON file",
		Long: "Load clips from an exported JSON file (\"-\" reads stdin). By default new clips are " +
			"appended and segments already on the board are skipped; --replace discards the board first.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}

			policy := board.ImportMerge
			if replace {
				policy = board.ImportReplace
			}
			return ctx.withLockedBoard(cmd.Context(), func(env *boardEnv) error {
				added, err := env.board.Clips.Import(cmd.Context(), data, policy)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d clips (%s); board now has %d\n",
					added, policy, env.board.Clips.Len())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Replace the board instead of merging")
	return cmd
}
