package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/quickmark/internal/app"
	"github.com/MrSnakeDoc/quickmark/internal/transfer"
	"github.com/MrSnakeDoc/quickmark/internal/utils"
)

func newImportCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON backup or a Homepage bookmarks/services YAML file",
		Long: `Import bookmarks from a file. JSON backups written by "quickmark export"
(or a bare JSON array of bookmarks) and Homepage bookmarks.yaml or
services.yaml files are accepted. URLs already in the collection are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, o, func(ctx context.Context, a *app.App) error {
				added, err := a.Transfer.ImportFile(ctx, args[0])
				if err != nil {
					return err
				}
				p := newPrinter(cmd, o)
				if p.json {
					return p.JSON(map[string]int{"added": added})
				}
				p.Successf("imported %d bookmarks from %s", added, args[0])
				return nil
			})
		},
	}
}

func newExportCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file|-]",
		Short: "Write a JSON backup (default: quickmark-backup-<date>.json)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := transfer.FileName(time.Now())
			if len(args) == 1 {
				path = args[0]
			}

			return withApp(cmd, o, func(ctx context.Context, a *app.App) error {
				if path == "-" {
					return a.Transfer.WriteExport(ctx, cmd.OutOrStdout())
				}

				f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", path, err)
				}
				if err := a.Transfer.WriteExport(ctx, f); err != nil {
					utils.Close(f)
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}

				p := newPrinter(cmd, o)
				if p.json {
					return p.JSON(map[string]string{"file": path})
				}
				p.Successf("exported to %s", path)
				return nil
			})
		},
	}
}
