package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newPingCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping <profile>",
		Short: "Test a saved connection profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			cfg, err := a.Profile(args[0])
			if err != nil {
				return err
			}
			if err := a.Sessions.TestConnection(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n",
				color.New(color.FgGreen, color.Bold).Sprint("ok"),
				cfg.DisplayName())
			return nil
		},
	}
}
