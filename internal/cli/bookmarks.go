package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/quickmark/internal/app"
	"github.com/MrSnakeDoc/quickmark/internal/collection"
	"github.com/MrSnakeDoc/quickmark/internal/domain"
	"github.com/MrSnakeDoc/quickmark/internal/utils"
)

func newAddCmd(o *options) *cobra.Command {
	var in collection.NewBookmark

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Save a bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.URL = args[0]
			return withApp(cmd, o, func(ctx context.Context, a *app.App) error {
				b, err := a.Collection.Add(ctx, in)
				if err != nil {
					return err
				}
				p := newPrinter(cmd, o)
				if p.json {
					return p.JSON(b)
				}
				p.Successf("added %s to %s", b.URL, b.GroupOrDefault())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Title, "title", "", "Title (default: the host name)")
	cmd.Flags().StringVar(&in.Group, "group", "", "Group (default: the group of another bookmark on the same host)")
	cmd.Flags().StringVar(&in.Note, "note", "", "Free-form note")
	cmd.Flags().StringSliceVarP(&in.Tags, "tag", "t", nil, "Tag (repeatable or comma-separated)")
	return cmd
}

func newListCmd(o *options) *cobra.Command {
	var (
		tag    string
		text   string
		sort   string
		groups bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List bookmarks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := collection.Query{Tag: tag, Text: text, Sort: domain.ParseSortMode(sort)}
			return withApp(cmd, o, func(ctx context.Context, a *app.App) error {
				p := newPrinter(cmd, o)
				if groups {
					gs, err := a.Collection.Groups(ctx, q)
					if err != nil {
						return err
					}
					if p.json {
						return p.JSON(gs)
					}
					p.Groups(gs)
					return nil
				}

				items, err := a.Collection.List(ctx, q)
				if err != nil {
					return err
				}
				if p.json {
					return p.JSON(items)
				}
				p.Bookmarks(items)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Only bookmarks with this tag")
	cmd.Flags().StringVarP(&text, "query", "q", "", "Fuzzy search, best match first")
	cmd.Flags().StringVar(&sort, "sort", string(domain.SortRecent), "Order: recent, alpha or clicks")
	cmd.Flags().BoolVarP(&groups, "groups", "g", false, "Bucket by group")
	return cmd
}

func newOpenCmd(o *options) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "open <query...>",
		Short: "Open the best matching bookmark and count the visit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withApp(cmd, o, func(ctx context.Context, a *app.App) error {
				b, err := a.Collection.Find(ctx, query)
				if err != nil {
					return err
				}
				if b, err = a.Collection.Click(ctx, b.ID); err != nil {
					return err
				}

				p := newPrinter(cmd, o)
				if p.json {
					return p.JSON(b)
				}
				if printOnly {
					p.Linef("%s", b.URL)
					return nil
				}
				if err := utils.OpenBrowser(b.URL); err != nil {
					return fmt.Errorf("failed to open %s: %w", b.URL, err)
				}
				p.Successf("opened %s", b.URL)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&printOnly, "print", "p", false, "Print the url instead of opening it")
	return cmd
}

func newEditCmd(o *options) *cobra.Command {
	var (
		title, group, note string
		tags               []string
	)

	cmd := &cobra.Command{
		Use:   "edit <id|url>",
		Short: "Change a bookmark's title, group, note or tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch collection.Patch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("group") {
				patch.Group = &group
			}
			if flags.Changed("note") {
				patch.Note = &note
			}
			if flags.Changed("tags") {
				patch.Tags = &tags
			}
			if patch == (collection.Patch{}) {
				return errors.New("nothing to change: pass --title, --group, --note or --tags")
			}

			return withApp(cmd, o, func(ctx context.Context, a *app.App) error {
				id, err := resolveID(ctx, a, args[0])
				if err != nil {
					return err
				}
				b, err := a.Collection.Edit(ctx, id, patch)
				if err != nil {
					return err
				}
				p := newPrinter(cmd, o)
				if p.json {
					return p.JSON(b)
				}
				p.Bookmark(b)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&group, "group", "", "Move to this group")
	cmd.Flags().StringVar(&note, "note", "", "New note")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Replace all tags")
	return cmd
}

func newTagCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tag <id|url> <tag...>",
		Short: "Add tags to a bookmark",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, o, func(ctx context.Context, a *app.App) error {
				id, err := resolveID(ctx, a, args[0])
				if err != nil {
					return err
				}
				b, err := a.Collection.AddTags(ctx, id, args[1:])
				if err != nil {
					return err
				}
				p := newPrinter(cmd, o)
				if p.json {
					return p.JSON(b)
				}
				p.Successf("%s tagged %s", b.URL, strings.Join(b.Tags, ", "))
				return nil
			})
		},
	}
}

func newRemoveCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id|url>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a bookmark",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, o, func(ctx context.Context, a *app.App) error {
				id, err := resolveID(ctx, a, args[0])
				if err != nil {
					return err
				}
				b, err := a.Collection.Get(ctx, id)
				if err != nil {
					return err
				}
				if err := a.Collection.Delete(ctx, id); err != nil {
					return err
				}
				p := newPrinter(cmd, o)
				if p.json {
					return p.JSON(b)
				}
				p.Successf("deleted %s", b.URL)
				return nil
			})
		},
	}
}

func newGroupsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups [name...]",
		Short: "Show the group order, or set it when names are given",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, o, func(ctx context.Context, a *app.App) error {
				if len(args) > 0 {
					if err := a.Collection.SetGroupOrder(ctx, args); err != nil {
						return err
					}
				}
				order, err := a.Collection.GroupOrder(ctx)
				if err != nil {
					return err
				}
				p := newPrinter(cmd, o)
				if p.json {
					return p.JSON(order)
				}
				if len(order) == 0 {
					p.Linef("%s", p.dim("no group order set, groups are sorted by name"))
					return nil
				}
				for i, g := range order {
					p.Linef("%2d. %s", i+1, g)
				}
				return nil
			})
		},
	}
	return cmd
}

func newGCCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Drop deletion markers older than 30 days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, o, func(ctx context.Context, a *app.App) error {
				removed, err := a.Collection.PurgeTombstones(ctx)
				if err != nil {
					return err
				}
				p := newPrinter(cmd, o)
				if p.json {
					return p.JSON(map[string]int{"removed": removed})
				}
				p.Successf("removed %d expired deletion markers", removed)
				return nil
			})
		},
	}
}

// resolveID accepts a full id, a unique id prefix as printed by list, or a url.
func resolveID(ctx context.Context, a *app.App, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", domain.ErrNotFound
	}
	if b, err := a.Collection.Get(ctx, ref); err == nil {
		return b.ID, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	items, err := a.Collection.List(ctx, collection.Query{})
	if err != nil {
		return "", err
	}

	var matches []string
	for _, b := range items {
		if b.URL == ref {
			return b.ID, nil
		}
		if strings.HasPrefix(b.ID, ref) {
			matches = append(matches, b.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", domain.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q matches %d bookmarks, use a longer id", ref, len(matches))
	}
}
