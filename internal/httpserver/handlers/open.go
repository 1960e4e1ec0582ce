package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
	"github.com/MrSnakeDoc/quickmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/quickmark/internal/logger"
)

// Open redirects to the bookmark that best matches ?q= and counts the visit.
// It lets a browser keyword search ("qm %s") jump straight to a bookmark.
func Open(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			writeError(w, r, d.Logger, errBadRequest)
			return
		}

		b, err := d.Collection.Find(ctx, query)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				d.Logger.Debug("no bookmark matches query", logger.String("query", query))
			}
			writeError(w, r, d.Logger, err)
			return
		}

		if _, err := d.Collection.Click(ctx, b.ID); err != nil {
			d.Logger.Warn("failed to record click",
				logger.String("url", b.URL),
				logger.Error(err))
		}

		d.Logger.Info("bookmark redirect",
			logger.String("query", query),
			logger.String("url", b.URL))
		http.Redirect(w, r, b.URL, http.StatusFound)
	}
}
