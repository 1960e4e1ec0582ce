// Package cli is the quickmark command line: a local-first bookmark
// collection with optional cloud sync and an HTTP API for browser pages.
package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/quickmark/internal/app"
	"github.com/MrSnakeDoc/quickmark/internal/config"
	"github.com/MrSnakeDoc/quickmark/internal/logger"
)

type options struct {
	configFile string
	jsonOut    bool
	verbose    bool

	cfg *config.Config
	log logger.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:           "quickmark",
		Short:         "Local-first bookmarks with cloud sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Save and find bookmarks
  quickmark add https://go.dev/doc --tag go
  quickmark list --tag go
  quickmark open godoc

  # Sync with the cloud copy
  quickmark signin
  quickmark sync

  # Run the API for the new-tab page, with scheduled sync
  quickmark serve
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(o.configFile)
		if err != nil {
			return err
		}
		o.cfg = cfg

		// One-shot commands stay quiet unless asked; serve logs at the
		// configured level.
		level := cfg.LogLevel
		if cmd.Name() != "serve" && !o.verbose {
			level = "warn"
		}
		if o.verbose {
			level = "debug"
		}
		o.log = logger.NewWithFile(level, cfg.PrettyLog, logger.FileOptions{
			Path:       cfg.LogFile,
			MaxSizeMB:  cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAgeDays: cfg.LogMaxAgeDays,
		})
		return nil
	}

	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if o.log != nil {
			_ = o.log.Sync()
		}
	}

	cmd.PersistentFlags().StringVar(&o.configFile, "config", "", "Config file (default: ~/.quickmark/config.yaml)")
	cmd.PersistentFlags().BoolVar(&o.jsonOut, "json", false, "Print machine-readable JSON")
	cmd.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "Debug logging")

	cmd.AddCommand(newServeCmd(o))
	cmd.AddCommand(newAddCmd(o))
	cmd.AddCommand(newListCmd(o))
	cmd.AddCommand(newOpenCmd(o))
	cmd.AddCommand(newEditCmd(o))
	cmd.AddCommand(newTagCmd(o))
	cmd.AddCommand(newRemoveCmd(o))
	cmd.AddCommand(newGroupsCmd(o))
	cmd.AddCommand(newImportCmd(o))
	cmd.AddCommand(newExportCmd(o))
	cmd.AddCommand(newGCCmd(o))
	cmd.AddCommand(newSyncCmd(o))
	cmd.AddCommand(newSignInCmd(o))
	cmd.AddCommand(newSignOutCmd(o))
	cmd.AddCommand(newWhoAmICmd(o))
	cmd.AddCommand(newClearCloudCmd(o))
	cmd.AddCommand(newAutoSyncCmd(o))
	cmd.AddCommand(newStatusCmd(o))
	cmd.AddCommand(newVersionCmd(o))

	return cmd
}

// withApp opens the store for one command and closes it afterwards.
func withApp(cmd *cobra.Command, o *options, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, o.cfg, o.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			o.log.Warn("failed to close store", logger.Error(err))
		}
	}()

	if err := fn(ctx, a); err != nil {
		o.log.Debug("command failed", logger.Error(err))
		return err
	}
	return nil
}
