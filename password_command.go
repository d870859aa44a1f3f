package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/treefix50/soundboard/internal/auth"
)

func newPasswordCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Manage the admin password",
	}
	cmd.AddCommand(newPasswordSetCommand(ctx))
	return cmd
}

func newPasswordSetCommand(ctx *commandContext) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the admin password and sign out every client",
		Long:  "Replace the admin password and sign out every client. Without --password a random one is generated and printed.",
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

			generated := false
			password = strings.TrimSpace(password)
			if password == "" {
				password = auth.GeneratePassword()
				generated = true
			}

			manager := auth.NewManager(store, cfg.SessionDuration(), 0)
			defer manager.Close()
			if err := manager.SetPassword(cmd.Context(), password); err != nil {
				return fmt.Errorf("set password: %w", err)
			}

			out := cmd.OutOrStdout()
			if generated {
				fmt.Fprintf(out, "New admin password: %s\n", password)
			} else {
				fmt.Fprintln(out, "Admin password updated")
			}
			if !cfg.Auth.Enabled {
				fmt.Fprintln(out, "Note: auth.enabled is false; the server does not ask for it.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "New password")
	return cmd
}
