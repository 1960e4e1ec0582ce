package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/quickmark/internal/app"
	"github.com/MrSnakeDoc/quickmark/internal/version"
)

func newServeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with scheduled sync and tombstone cleanup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := app.New(ctx, o.cfg, o.log)
			if err != nil {
				return err
			}
			// Serve closes the store on shutdown.
			return a.Serve()
		},
	}
}

func newVersionCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrinter(cmd, o)
			info := map[string]string{
				"version":   version.Version,
				"commit":    version.Commit,
				"buildDate": version.BuildDate,
				"goVersion": version.GoVersion,
			}
			if p.json {
				return p.JSON(info)
			}
			p.Linef("%s", version.String())
			return nil
		},
	}
}
