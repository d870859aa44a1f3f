package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/treefix50/soundboard/internal/board"
)

func newBindingsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bindings",
		Aliases: []string{"keys"},
		Short:   "Show and edit keypad bindings",
	}
	cmd.AddCommand(newBindingsListCommand(ctx))
	cmd.AddCommand(newBindCommand(ctx))
	cmd.AddCommand(newUnbindCommand(ctx))
	return cmd
}

func newBindingsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the keypad",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBoard(cmd.Context(), func(env *boardEnv) error {
				fmt.Fprintln(cmd.OutOrStdout(), renderKeypad(env.board.KeypadView()))
				return nil
			})
		},
	}
}

func renderKeypad(views []board.BindingView) string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		index, name := "", ""
		if v.Index != nil {
			index = strconv.Itoa(*v.Index)
			name = v.Clip
			if name == "" {
				name = "(no clip)"
			}
		}
		rows = append(rows, []string{v.Label, string(v.Code), index, name})
	}
	return renderTable(
		[]string{"Key", "Code", "#", "Clip"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
	)
}

func newBindCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "bind <key> <index>",
		Short: "Bind a keypad key to a clip",
		Long:  "Bind a keypad key to a clip. Keys may be given as codes (Numpad7) or labels (7, ., Enter).",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := board.ParseKey(args[0])
			if err != nil {
				return err
			}
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			return ctx.withLockedBoard(cmd.Context(), func(env *boardEnv) error {
				if err := env.board.Bind(cmd.Context(), key, index); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Key %s plays #%d\n", key.Label(), index)
				return nil
			})
		},
	}
}

func newUnbindCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unbind <key>",
		Short: "Clear a keypad binding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := board.ParseKey(args[0])
			if err != nil {
				return err
			}
			return ctx.withLockedBoard(cmd.Context(), func(env *boardEnv) error {
				removed, err := env.board.Bindings.Unbind(cmd.Context(), key)
				if err != nil {
					return err
				}
				if removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Key %s cleared\n", key.Label())
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Key %s was not bound\n", key.Label())
				}
				return nil
			})
		},
	}
}
