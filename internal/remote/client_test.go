package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
)

type staticCreds struct {
	token string
	user  *domain.User
	err   error
}

func (s staticCreds) ValidCredential(context.Context) (string, error) { return s.token, s.err }
func (s staticCreds) CurrentUser() *domain.User                      { return s.user }

// fakeFirestore keeps documents by path and records requests.
type fakeFirestore struct {
	mu       sync.Mutex
	docs     map[string][]byte
	requests []string
	auth     []string
	status   int
	errBody  string
}

func newFakeFirestore() *fakeFirestore {
	return &fakeFirestore{docs: make(map[string][]byte)}
}

func (f *fakeFirestore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.auth = append(f.auth, r.Header.Get("Authorization"))

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.errBody))
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, ok := f.docs[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"not found"}}`))
			return
		}
		_, _ = w.Write(doc)
	case http.MethodPatch:
		body, _ := io.ReadAll(r.Body)
		f.docs[r.URL.Path] = body
		_, _ = w.Write(body)
	case http.MethodDelete:
		if _, ok := f.docs[r.URL.Path]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(f.docs, r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	}
}

func newTestClient(t *testing.T, f *fakeFirestore) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	creds := staticCreds{token: "tok", user: &domain.User{UID: "uid-1", Email: "me@example.com", DisplayName: "me"}}
	return New(creds, Options{
		BaseURL:    srv.URL + "/v1/docs",
		HTTPClient: srv.Client(),
		Now:        func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
}

func TestFetch_MissingDocumentIsEmpty(t *testing.T) {
	f := newFakeFirestore()
	c := newTestClient(t, f)

	s, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(s.Bookmarks) != 0 || len(s.GroupOrder) != 0 || len(s.DeletedURLs) != 0 {
		t.Errorf("Fetch() = %+v, want empty snapshot", s)
	}
	if s.Bookmarks == nil || s.GroupOrder == nil || s.DeletedURLs == nil {
		t.Error("Fetch() must return non-nil empty collections")
	}
	if f.auth[0] != "Bearer tok" {
		t.Errorf("Authorization = %q, want Bearer tok", f.auth[0])
	}
	if f.requests[0] != "GET /v1/docs/users/uid-1/quickmark/bookmarks" {
		t.Errorf("request = %q", f.requests[0])
	}
}

func TestFetch_DocumentWithoutFieldsIsEmpty(t *testing.T) {
	f := newFakeFirestore()
	f.docs["/v1/docs/users/uid-1/quickmark/bookmarks"] = []byte(`{"name":"x"}`)
	c := newTestClient(t, f)

	s, err := c.Fetch(context.Background())
	if err != nil || len(s.Bookmarks) != 0 {
		t.Errorf("Fetch() = %+v, %v, want empty", s, err)
	}
}

func TestPushFetch_RoundTrip(t *testing.T) {
	f := newFakeFirestore()
	c := newTestClient(t, f)

	want := Snapshot{
		Bookmarks: []domain.Bookmark{
			{
				ID: "1", URL: "https://a.com", Title: "A", Favicon: "https://a.com/f.ico", Note: "n",
				Group: "work", Tags: []string{"x", "y"}, CreatedAt: 1700000000000,
				ClickCount: 3, LastClickAt: 1700000001000, LastActiveAt: 1700000002000,
			},
			{ID: "2", URL: "https://b.com", Tags: []string{}},
		},
		GroupOrder:  []string{"work", "home"},
		DeletedURLs: domain.DeletedURLs{"https://c.com": 42, "https://d.com": 43},
		DeviceID:    "device_abc",
	}

	if err := c.Push(context.Background(), want); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	got, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if !reflect.DeepEqual(got.Bookmarks, want.Bookmarks) {
		t.Errorf("Bookmarks = %+v, want %+v", got.Bookmarks, want.Bookmarks)
	}
	if !reflect.DeepEqual(got.GroupOrder, want.GroupOrder) {
		t.Errorf("GroupOrder = %v, want %v", got.GroupOrder, want.GroupOrder)
	}
	if !reflect.DeepEqual(got.DeletedURLs, want.DeletedURLs) {
		t.Errorf("DeletedURLs = %v, want %v", got.DeletedURLs, want.DeletedURLs)
	}
	if got.DeviceID != "device_abc" {
		t.Errorf("DeviceID = %q", got.DeviceID)
	}
	if !got.UpdatedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("UpdatedAt = %v", got.UpdatedAt)
	}
}

func TestPush_WireFormat(t *testing.T) {
	f := newFakeFirestore()
	c := newTestClient(t, f)

	err := c.Push(context.Background(), Snapshot{
		Bookmarks: []domain.Bookmark{{ID: "1", URL: "u", ClickCount: 7}},
	})
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(f.docs["/v1/docs/users/uid-1/quickmark/bookmarks"], &raw); err != nil {
		t.Fatalf("stored document is not JSON: %v", err)
	}
	fields := raw["fields"].(map[string]any)
	bookmarks := fields["bookmarks"].(map[string]any)["arrayValue"].(map[string]any)["values"].([]any)
	first := bookmarks[0].(map[string]any)["mapValue"].(map[string]any)["fields"].(map[string]any)

	if got := first["clickCount"].(map[string]any)["integerValue"]; got != "7" {
		t.Errorf("clickCount integerValue = %v, want \"7\"", got)
	}
	if got := first["title"].(map[string]any)["stringValue"]; got != "" {
		t.Errorf("title stringValue = %v, want empty string", got)
	}
	if _, ok := fields["updatedAt"].(map[string]any)["timestampValue"]; !ok {
		t.Error("updatedAt must be a timestampValue")
	}
}

func TestDecode_Defaults(t *testing.T) {
	doc := document{}
	if err := json.Unmarshal([]byte(`{
		"fields": {
			"bookmarks": {"arrayValue": {"values": [{"mapValue": {"fields": {"url": {"stringValue": "u"}}}}]}},
			"deletedUrls": {"arrayValue": {"values": [{"mapValue": {"fields": {"deletedAt": {"integerValue": "5"}}}}]}}
		}
	}`), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	s := decodeSnapshot(doc)
	want := domain.Bookmark{URL: "u", Tags: []string{}}
	if len(s.Bookmarks) != 1 || !reflect.DeepEqual(s.Bookmarks[0], want) {
		t.Errorf("Bookmarks = %+v, want %+v", s.Bookmarks, want)
	}
	if len(s.GroupOrder) != 0 || s.GroupOrder == nil {
		t.Errorf("GroupOrder = %#v, want empty", s.GroupOrder)
	}
	if len(s.DeletedURLs) != 0 {
		t.Errorf("DeletedURLs = %v, entries without url must be skipped", s.DeletedURLs)
	}
}

func TestRemoteError(t *testing.T) {
	f := newFakeFirestore()
	f.status = http.StatusForbidden
	f.errBody = `{"error":{"code":403,"message":"Missing or insufficient permissions."}}`
	c := newTestClient(t, f)

	_, err := c.Fetch(context.Background())

	var remoteErr *domain.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("Fetch() error = %v, want RemoteError", err)
	}
	if remoteErr.Status != http.StatusForbidden || remoteErr.Message != "Missing or insufficient permissions." {
		t.Errorf("RemoteError = %+v", remoteErr)
	}
}

func TestDelete_ToleratesMissing(t *testing.T) {
	f := newFakeFirestore()
	c := newTestClient(t, f)

	if err := c.Delete(context.Background()); err != nil {
		t.Errorf("Delete() on missing document error = %v", err)
	}

	_ = c.Push(context.Background(), Snapshot{})
	if err := c.Delete(context.Background()); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if len(f.docs) != 0 {
		t.Errorf("documents left: %d", len(f.docs))
	}
}

func TestEnsureProfile_CreatesOnce(t *testing.T) {
	f := newFakeFirestore()
	c := newTestClient(t, f)

	if err := c.EnsureProfile(context.Background()); err != nil {
		t.Fatalf("EnsureProfile() error = %v", err)
	}
	if err := c.EnsureProfile(context.Background()); err != nil {
		t.Fatalf("EnsureProfile() second call error = %v", err)
	}

	patches := 0
	for _, r := range f.requests {
		if r == "PATCH /v1/docs/users/uid-1" {
			patches++
		}
	}
	if patches != 1 {
		t.Errorf("profile PATCH count = %d, want 1 (requests: %v)", patches, f.requests)
	}

	var doc document
	_ = json.Unmarshal(f.docs["/v1/docs/users/uid-1"], &doc)
	if fieldString(doc.Fields, "email") != "me@example.com" || fieldString(doc.Fields, "createdAt") == "" {
		t.Errorf("profile fields = %+v", doc.Fields)
	}
}

func TestUnauthenticated(t *testing.T) {
	c := New(staticCreds{err: domain.ErrUnauthenticated}, Options{BaseURL: "http://127.0.0.1:0"})

	if _, err := c.Fetch(context.Background()); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("Fetch() error = %v, want ErrUnauthenticated", err)
	}
}
