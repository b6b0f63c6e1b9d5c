package main

import (
	"context"

	"github.com/koustreak/dbpilot/internal/app"
	"github.com/koustreak/dbpilot/internal/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// appFs is the filesystem config, .env and history files live on.
var appFs = afero.NewOsFs()

type rootOptions struct {
	configPath string
	envDir     string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "dbpilot",
		Short:         "Browse and edit PostgreSQL and MySQL databases",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "path to the settings file")
	cmd.PersistentFlags().StringVar(&opts.envDir, "env-dir", ".", "directory holding .env and .env.local")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newPingCommand(opts))
	cmd.AddCommand(newSchemaCommand(opts))
	return cmd
}

// load reads .env files and the settings file, then builds the App.
func (o *rootOptions) load(ctx context.Context, opts ...app.Option) (*app.App, error) {
	if err := config.LoadEnv(appFs, o.envDir); err != nil {
		return nil, err
	}
	cfg, err := config.Load(appFs, o.configPath)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, nil, append([]app.Option{app.WithFs(appFs)}, opts...)...)
}
