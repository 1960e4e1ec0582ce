package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/quickmark/internal/app"
	"github.com/MrSnakeDoc/quickmark/internal/domain"
	"github.com/MrSnakeDoc/quickmark/internal/logger"
)

func newSyncCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Merge this device's bookmarks with the cloud copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, o, func(ctx context.Context, a *app.App) error {
				s, err := a.RequireSync()
				if err != nil {
					return err
				}
				res, err := s.PerformSync(ctx)
				if err != nil {
					return err
				}
				p := newPrinter(cmd, o)
				if p.json {
					return p.JSON(res)
				}
				p.Successf("synced: %d local + %d cloud → %d bookmarks", res.LocalCount, res.CloudCount, res.MergedCount)
				return nil
			})
		},
	}
}

func newSignInCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "signin",
		Short: "Sign in to enable cloud sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, o, func(ctx context.Context, a *app.App) error {
				s, err := a.RequireSync()
				if err != nil {
					return err
				}
				if o.cfg.SignInTimeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, o.cfg.SignInTimeout)
					defer cancel()
				}

				user, err := s.SignIn(ctx)
				if err != nil {
					if errors.Is(err, context.DeadlineExceeded) {
						return fmt.Errorf("sign-in timed out after %s", o.cfg.SignInTimeout)
					}
					return err
				}
				p := newPrinter(cmd, o)
				if p.json {
					return p.JSON(user)
				}
				p.Successf("signed in as %s", displayName(user))
				return nil
			})
		},
	}
}

func newSignOutCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out; local bookmarks are kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, o, func(ctx context.Context, a *app.App) error {
				s, err := a.RequireSync()
				if err != nil {
					return err
				}
				if err := s.SignOut(ctx); err != nil {
					return err
				}
				p := newPrinter(cmd, o)
				if p.json {
					return p.JSON(true)
				}
				p.Successf("signed out")
				return nil
			})
		},
	}
}

func newWhoAmICmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, o, func(ctx context.Context, a *app.App) error {
				s, err := a.RequireSync()
				if err != nil {
					return err
				}
				user, err := s.Init(ctx)
				if err != nil {
					return err
				}
				p := newPrinter(cmd, o)
				if p.json {
					return p.JSON(user)
				}
				if user == nil {
					p.Warnf("not signed in")
					return nil
				}
				p.Linef("%s %s", displayName(user), p.dim("("+user.UID+")"))
				return nil
			})
		},
	}
}

func newClearCloudCmd(o *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear-cloud",
		Short: "Delete the cloud copy of your bookmarks; local data is kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				ok, err := confirm(cmd, "Delete all bookmarks stored in the cloud?")
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("aborted")
				}
			}

			return withApp(cmd, o, func(ctx context.Context, a *app.App) error {
				s, err := a.RequireSync()
				if err != nil {
					return err
				}
				if err := s.ClearCloudData(ctx); err != nil {
					return err
				}
				p := newPrinter(cmd, o)
				if p.json {
					return p.JSON(true)
				}
				p.Successf("cloud data cleared")
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newAutoSyncCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:       "autosync <on|off>",
		Short:     "Enable or disable the 12-hour automatic sync",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch args[0] {
			case "on", "true", "enable":
				enabled = true
			case "off", "false", "disable":
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}

			return withApp(cmd, o, func(ctx context.Context, a *app.App) error {
				s, err := a.RequireSync()
				if err != nil {
					return err
				}
				if err := s.SetAutoSync(ctx, enabled); err != nil {
					return err
				}
				p := newPrinter(cmd, o)
				if p.json {
					return p.JSON(enabled)
				}
				p.Successf("auto-sync %s", args[0])
				return nil
			})
		},
	}
}

type statusView struct {
	Bookmarks  int    `json:"bookmarks"`
	Tombstones int    `json:"tombstones"`
	Backend    string `json:"backend"`
	Sync       any    `json:"sync,omitempty"`
}

func newStatusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show collection size, sign-in and sync state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, o, func(ctx context.Context, a *app.App) error {
				c, err := a.Local().Collection(ctx)
				if err != nil {
					return err
				}
				view := statusView{
					Bookmarks:  len(c.Bookmarks),
					Tombstones: len(c.DeletedURLs),
					Backend:    o.cfg.StoreBackend,
				}

				p := newPrinter(cmd, o)
				if a.Sync == nil {
					if p.json {
						return p.JSON(view)
					}
					p.Linef("%s %d bookmarks, %d deletion markers (%s)", p.title("local:"), view.Bookmarks, view.Tombstones, view.Backend)
					p.Linef("%s not configured", p.title("sync: "))
					return nil
				}

				if _, err := a.Sync.Init(ctx); err != nil && !errors.Is(err, domain.ErrUnauthenticated) {
					o.log.Warn("could not restore sign-in", logger.Error(err))
				}
				st, err := a.Sync.Status(ctx)
				if err != nil {
					return err
				}
				view.Sync = st
				if p.json {
					return p.JSON(view)
				}

				p.Linef("%s %d bookmarks, %d deletion markers (%s)", p.title("local:"), view.Bookmarks, view.Tombstones, view.Backend)
				if st.User == nil {
					p.Linef("%s %s", p.title("sync: "), p.warn("not signed in"))
					return nil
				}
				last := "never"
				if st.LastSync != nil {
					last = st.LastSync.Local().Format(time.DateTime)
				}
				auto := "off"
				if st.AutoSync {
					auto = "on"
				}
				p.Linef("%s %s, state %s, last sync %s, auto-sync %s", p.title("sync: "), displayName(st.User), st.State, last, auto)
				if st.AutoSyncDue {
					p.Linef("       %s", p.dim("an automatic sync is due"))
				}
				return nil
			})
		},
	}
}

func displayName(u *domain.User) string {
	if u == nil {
		return ""
	}
	switch {
	case u.Email != "":
		return u.Email
	case u.DisplayName != "":
		return u.DisplayName
	default:
		return u.UID
	}
}
