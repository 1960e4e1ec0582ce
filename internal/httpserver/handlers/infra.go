package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/quickmark/internal/store"
)

type componentStatus struct {
	OK        bool   `json:"ok"`
	Backend   string `json:"backend,omitempty"`
	Keys      *int   `json:"keys,omitempty"`
	Bookmarks *int   `json:"bookmarks,omitempty"`
	Deleted   *int   `json:"tombstones,omitempty"`
	SignedIn  *bool  `json:"signed_in,omitempty"`
	State     string `json:"state,omitempty"`
	LastSync  string `json:"last_sync,omitempty"`
	AutoSync  *bool  `json:"auto_sync,omitempty"`
	Impact    string `json:"impact,omitempty"`
	Error     string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the state of local persistence and sync.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		components := map[string]componentStatus{
			"store": checkStore(ctx, d),
			"sync":  checkSync(ctx, d),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if store, ok := components["store"]; ok && !store.OK {
		return "critical" // nothing can be read or saved
	}
	if sync, ok := components["sync"]; ok && !sync.OK {
		return "local-only"
	}
	return "synced"
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	if err := d.Local.Backend().Ping(ctx); err != nil {
		return componentStatus{OK: false, Backend: d.StoreBackend, Error: err.Error()}
	}

	c, err := d.Local.Collection(ctx)
	if err != nil {
		return componentStatus{OK: false, Backend: d.StoreBackend, Error: err.Error()}
	}
	bookmarks, deleted := len(c.Bookmarks), len(c.DeletedURLs)
	st := componentStatus{
		OK:        true,
		Backend:   d.StoreBackend,
		Bookmarks: &bookmarks,
		Deleted:   &deleted,
	}
	if l, ok := d.Local.Backend().(store.Lister); ok {
		if names, err := l.Names(ctx); err == nil {
			n := len(names)
			st.Keys = &n
		}
	}
	return st
}

func checkSync(ctx context.Context, d deps.Deps) componentStatus {
	if d.Sync == nil {
		return componentStatus{OK: false, Impact: "sync-disabled", Error: "remote not configured"}
	}

	st, err := d.Sync.Status(ctx)
	if err != nil {
		return componentStatus{OK: false, Error: err.Error()}
	}

	signedIn := st.User != nil
	lastSync := "never"
	if st.LastSync != nil {
		lastSync = st.LastSync.Format("2006-01-02 15:04:05")
	}

	s := componentStatus{
		OK:       signedIn,
		SignedIn: &signedIn,
		State:    string(st.State),
		LastSync: lastSync,
		AutoSync: &st.AutoSync,
	}
	if !signedIn {
		s.Impact = "sync-disabled"
	}
	return s
}
