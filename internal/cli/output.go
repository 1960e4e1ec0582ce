package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
)

const defaultWidth = 100

var errNotInteractive = errors.New("confirmation needed but stdin is not a terminal; pass --yes")

// printer renders command output as colored text on a terminal, plain text
// when piped, or JSON with --json.
type printer struct {
	out   io.Writer
	json  bool
	width int

	title  func(a ...any) string
	dim    func(a ...any) string
	accent func(a ...any) string
	ok     func(a ...any) string
	warn   func(a ...any) string
}

func newPrinter(cmd *cobra.Command, o *options) *printer {
	p := &printer{out: cmd.OutOrStdout(), json: o.jsonOut, width: defaultWidth}

	tty := false
	if f, ok := p.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		tty = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 40 {
			p.width = w
		}
	}

	style := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if !tty {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	p.title = style(color.Bold)
	p.dim = style(color.Faint)
	p.accent = style(color.FgCyan)
	p.ok = style(color.FgGreen)
	p.warn = style(color.FgYellow)
	return p
}

func (p *printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) Linef(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) Successf(format string, args ...any) {
	_, _ = fmt.Fprintln(p.out, p.ok("✓"), fmt.Sprintf(format, args...))
}

func (p *printer) Warnf(format string, args ...any) {
	_, _ = fmt.Fprintln(p.out, p.warn("!"), fmt.Sprintf(format, args...))
}

func (p *printer) Bookmarks(items []domain.Bookmark) {
	if len(items) == 0 {
		p.Linef("%s", p.dim("no bookmarks"))
		return
	}
	for i := range items {
		p.bookmarkLine(&items[i], "")
	}
}

func (p *printer) Groups(groups []domain.Group) {
	if len(groups) == 0 {
		p.Linef("%s", p.dim("no bookmarks"))
		return
	}
	for gi, g := range groups {
		if gi > 0 {
			p.Linef("")
		}
		p.Linef("%s %s", p.title(g.Name), p.dim(fmt.Sprintf("(%d)", len(g.Bookmarks))))
		for i := range g.Bookmarks {
			p.bookmarkLine(&g.Bookmarks[i], "  ")
		}
	}
}

func (p *printer) bookmarkLine(b *domain.Bookmark, indent string) {
	id := b.ID
	if len(id) > 8 {
		id = id[:8]
	}

	var tags string
	if len(b.Tags) > 0 {
		tags = " " + p.accent("#"+strings.Join(b.Tags, " #"))
	}

	// id, two gaps and the url share the line with the title
	room := p.width - len(indent) - len(id) - 4 - utf8.RuneCountInString(b.URL)
	p.Linef("%s%s  %s  %s%s", indent, p.dim(id), p.title(truncate(b.Title, room)), p.dim(b.URL), tags)
}

func (p *printer) Bookmark(b domain.Bookmark) {
	p.Linef("%s", p.title(b.Title))
	p.Linef("  id:       %s", b.ID)
	p.Linef("  url:      %s", b.URL)
	p.Linef("  group:    %s", b.GroupOrDefault())
	if len(b.Tags) > 0 {
		p.Linef("  tags:     %s", strings.Join(b.Tags, ", "))
	}
	if b.Note != "" {
		p.Linef("  note:     %s", b.Note)
	}
	p.Linef("  clicks:   %d", b.ClickCount)
	if b.CreatedAt > 0 {
		p.Linef("  created:  %s", time.UnixMilli(b.CreatedAt).Format(time.DateTime))
	}
}

func truncate(s string, max int) string {
	if max < 10 {
		max = 10
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}

// confirm asks a yes/no question on the command's stdin.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return false, errNotInteractive
	}

	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
