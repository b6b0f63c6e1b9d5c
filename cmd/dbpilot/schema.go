package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newSchemaCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <profile>",
		Short: "Print the schema summary of a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := root.load(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg, err := a.Profile(args[0])
			if err != nil {
				return err
			}
			if _, err := a.Sessions.Connect(ctx, cfg); err != nil {
				return err
			}

			text, err := a.Service.SchemaContext(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, color.New(color.FgCyan, color.Bold).Sprintf("# %s", cfg.DisplayName()))
			fmt.Fprint(out, text)
			return nil
		},
	}
}
