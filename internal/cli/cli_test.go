package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrSnakeDoc/quickmark/internal/collection"
	"github.com/MrSnakeDoc/quickmark/internal/config"
	"github.com/MrSnakeDoc/quickmark/internal/domain"
)

// isolate points the data directory at a fresh temp dir with cloud sync
// unconfigured.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("QUICKMARK_DATA_DIR", dir)
	t.Setenv("QUICKMARK_STORE", "sqlite")
	t.Setenv("QUICKMARK_PROJECT_ID", "")
	t.Setenv("QUICKMARK_API_KEY", "")
	t.Setenv("QUICKMARK_LOG_FILE", "")
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", args...)
	if err != nil {
		t.Fatalf("quickmark %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func listJSON(t *testing.T, args ...string) []domain.Bookmark {
	t.Helper()
	out := mustRun(t, append([]string{"list", "--json"}, args...)...)
	var items []domain.Bookmark
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("list output is not JSON: %v\n%s", err, out)
	}
	return items
}

func TestAddListRemove(t *testing.T) {
	isolate(t)

	out := mustRun(t, "add", "https://go.dev/doc", "--title", "Go docs", "-t", "go,lang")
	if !strings.Contains(out, "added https://go.dev/doc to go.dev") {
		t.Errorf("add output = %q", out)
	}
	mustRun(t, "add", "https://pkg.go.dev", "--group", "Go")

	items := listJSON(t)
	if len(items) != 2 {
		t.Fatalf("list = %d bookmarks, want 2", len(items))
	}

	if got := listJSON(t, "--tag", "lang"); len(got) != 1 || got[0].Title != "Go docs" {
		t.Errorf("list --tag lang = %+v", got)
	}

	_, err := run(t, "", "add", "https://go.dev/doc")
	if !errors.Is(err, collection.ErrExists) {
		t.Errorf("duplicate add error = %v, want ErrExists", err)
	}

	mustRun(t, "rm", "https://go.dev/doc")
	if got := listJSON(t); len(got) != 1 || got[0].URL != "https://pkg.go.dev" {
		t.Errorf("after rm list = %+v", got)
	}

	status := mustRun(t, "status", "--json")
	var st struct {
		Bookmarks  int             `json:"bookmarks"`
		Tombstones int             `json:"tombstones"`
		Sync       json.RawMessage `json:"sync"`
	}
	if err := json.Unmarshal([]byte(status), &st); err != nil {
		t.Fatalf("status output is not JSON: %v", err)
	}
	if st.Bookmarks != 1 || st.Tombstones != 1 || st.Sync != nil {
		t.Errorf("status = %+v, want 1 bookmark, 1 tombstone, no sync", st)
	}
}

func TestEditTagAndGroups(t *testing.T) {
	isolate(t)
	mustRun(t, "add", "https://grafana.example.com", "--title", "Grafana")

	id := listJSON(t)[0].ID

	if _, err := run(t, "", "edit", id); err == nil {
		t.Error("edit without flags error = nil, want error")
	}

	mustRun(t, "edit", id[:8], "--group", "Monitoring", "--note", "dashboards")
	mustRun(t, "tag", id, "ops", "#infra")

	b := listJSON(t)[0]
	if b.Group != "Monitoring" || b.Note != "dashboards" {
		t.Errorf("edited = %+v", b)
	}
	if strings.Join(b.Tags, ",") != "ops,infra" {
		t.Errorf("Tags = %v, want [ops infra]", b.Tags)
	}

	out := mustRun(t, "groups", "Monitoring", "Home", "--json")
	var order []string
	if err := json.Unmarshal([]byte(out), &order); err != nil {
		t.Fatalf("groups output is not JSON: %v", err)
	}
	if strings.Join(order, ",") != "Monitoring,Home" {
		t.Errorf("group order = %v", order)
	}

	text := mustRun(t, "list", "--groups")
	if !strings.Contains(text, "Monitoring") || !strings.Contains(text, "Grafana") {
		t.Errorf("list --groups output = %q", text)
	}
}

func TestOpenPrint(t *testing.T) {
	isolate(t)
	mustRun(t, "add", "https://grafana.example.com", "--title", "Grafana")

	out := mustRun(t, "open", "--print", "graf")
	if strings.TrimSpace(out) != "https://grafana.example.com" {
		t.Errorf("open --print = %q", out)
	}
	if got := listJSON(t)[0].ClickCount; got != 1 {
		t.Errorf("ClickCount = %d, want 1", got)
	}

	if _, err := run(t, "", "open", "--print", "zzzqqq"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("open without match error = %v, want ErrNotFound", err)
	}
}

func TestExportImport(t *testing.T) {
	isolate(t)
	mustRun(t, "add", "https://a.com")
	mustRun(t, "add", "https://b.com")

	backup := mustRun(t, "export", "-")

	dir := isolate(t)
	path := filepath.Join(dir, "backup.json")
	if err := os.WriteFile(path, []byte(backup), 0o600); err != nil {
		t.Fatalf("write backup: %v", err)
	}

	out := mustRun(t, "import", path, "--json")
	if !strings.Contains(out, `"added": 2`) {
		t.Errorf("import output = %q", out)
	}
	if got := listJSON(t); len(got) != 2 {
		t.Errorf("after import list = %d bookmarks, want 2", len(got))
	}

	out = mustRun(t, "import", path, "--json")
	if !strings.Contains(out, `"added": 0`) {
		t.Errorf("second import output = %q, want nothing added", out)
	}
}

func TestGC(t *testing.T) {
	isolate(t)
	out := mustRun(t, "gc", "--json")
	if !strings.Contains(out, `"removed": 0`) {
		t.Errorf("gc output = %q", out)
	}
}

func TestSyncCommandsNeedRemote(t *testing.T) {
	tests := [][]string{
		{"sync"},
		{"signin"},
		{"signout"},
		{"whoami"},
		{"autosync", "on"},
		{"clear-cloud", "--yes"},
	}

	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			isolate(t)
			_, err := run(t, "", args...)
			if !errors.Is(err, config.ErrRemoteNotConfigured) {
				t.Errorf("error = %v, want ErrRemoteNotConfigured", err)
			}
		})
	}
}

func TestClearCloudAsksFirst(t *testing.T) {
	isolate(t)
	_, err := run(t, "n\n", "clear-cloud")
	if err == nil || err.Error() != "aborted" {
		t.Errorf("clear-cloud declined error = %v, want aborted", err)
	}
}

func TestAutoSyncRejectsUnknownValue(t *testing.T) {
	isolate(t)
	if _, err := run(t, "", "autosync", "maybe"); err == nil {
		t.Error("autosync maybe error = nil, want error")
	}
}
