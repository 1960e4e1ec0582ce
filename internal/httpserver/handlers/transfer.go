package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
	"github.com/MrSnakeDoc/quickmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/quickmark/internal/transfer"
)

// Export streams a JSON backup as an attachment.
func Export(d deps.Deps) http.HandlerFunc {
	now := d.TimeNow
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		backup, err := d.Transfer.Export(r.Context())
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", transfer.FileName(now())))
		writeJSON(w, http.StatusOK, backup)
	}
}

type importResponse struct {
	Added int `json:"added"`
}

// Import adds bookmarks from a JSON backup in the body, or from a Homepage
// YAML document with ?format=homepage.
func Import(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, r, d.Logger, &domain.ImportFormatError{Reason: "could not read upload", Err: err})
			return
		}

		var added int
		if r.URL.Query().Get("format") == "homepage" {
			added, err = d.Transfer.ImportHomepage(r.Context(), data)
		} else {
			added, err = d.Transfer.Import(r.Context(), data)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeResult(w, http.StatusOK, importResponse{Added: added})
	}
}
