package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/quickmark/internal/collection"
	"github.com/MrSnakeDoc/quickmark/internal/domain"
	"github.com/MrSnakeDoc/quickmark/internal/httpserver/deps"
)

func listQuery(r *http.Request) collection.Query {
	q := r.URL.Query()
	return collection.Query{
		Tag:  strings.TrimSpace(q.Get("tag")),
		Text: strings.TrimSpace(q.Get("q")),
		Sort: domain.ParseSortMode(q.Get("sort")),
	}
}

// ListBookmarks returns the collection as a flat list, or bucketed by group
// with ?view=groups.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := listQuery(r)

		if r.URL.Query().Get("view") == "groups" {
			groups, err := d.Collection.Groups(r.Context(), q)
			if err != nil {
				writeError(w, r, d.Logger, err)
				return
			}
			writeResult(w, http.StatusOK, groups)
			return
		}

		items, err := d.Collection.List(r.Context(), q)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeResult(w, http.StatusOK, items)
	}
}

// AddBookmark creates a bookmark.
func AddBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in collection.NewBookmark
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		b, err := d.Collection.Add(r.Context(), in)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeResult(w, http.StatusCreated, b)
	}
}

type toggleResponse struct {
	Bookmarked bool            `json:"bookmarked"`
	Bookmark   domain.Bookmark `json:"bookmark"`
}

// ToggleBookmark adds the url when absent and removes it when present.
func ToggleBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in collection.NewBookmark
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		b, exists, err := d.Collection.Toggle(r.Context(), in)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeResult(w, http.StatusOK, toggleResponse{Bookmarked: exists, Bookmark: b})
	}
}

// EditBookmark applies a partial edit.
func EditBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p collection.Patch
		if err := decodeJSON(w, r, &p); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		b, err := d.Collection.Edit(r.Context(), chi.URLParam(r, "id"), p)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeResult(w, http.StatusOK, b)
	}
}

// DeleteBookmark removes a bookmark and records its tombstone.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Collection.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeResult(w, http.StatusOK, true)
	}
}

// ClickBookmark records a visit.
func ClickBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := d.Collection.Click(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeResult(w, http.StatusOK, b)
	}
}

// ListTags returns every tag in use.
func ListTags(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := d.Collection.Tags(r.Context())
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeResult(w, http.StatusOK, tags)
	}
}

type groupOrderRequest struct {
	Order []string `json:"order"`
}

// GetGroupOrder returns the stored group order.
func GetGroupOrder(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := d.Collection.GroupOrder(r.Context())
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeResult(w, http.StatusOK, order)
	}
}

// PutGroupOrder replaces the group order.
func PutGroupOrder(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req groupOrderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		if err := d.Collection.SetGroupOrder(r.Context(), req.Order); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		order, err := d.Collection.GroupOrder(r.Context())
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeResult(w, http.StatusOK, order)
	}
}
