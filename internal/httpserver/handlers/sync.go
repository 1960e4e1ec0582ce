package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/quickmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/quickmark/internal/logger"
)

// SyncInit restores a persisted identity without user interaction.
func SyncInit(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := d.Sync.Init(r.Context())
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeResult(w, http.StatusOK, user)
	}
}

// SyncSignIn runs the interactive sign-in. The request stays open until the
// browser round trip completes or SignInTimeout elapses.
func SyncSignIn(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if d.SignInTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.SignInTimeout)
			defer cancel()
		}

		user, err := d.Sync.SignIn(ctx)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeResult(w, http.StatusOK, user)
	}
}

// SyncSignOut revokes and forgets the identity.
func SyncSignOut(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Sync.SignOut(r.Context()); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeResult(w, http.StatusOK, true)
	}
}

// SyncUser returns the signed-in identity, or null.
func SyncUser(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, http.StatusOK, d.Sync.CurrentUser())
	}
}

// SyncPerform runs a sync cycle, or joins the one in flight.
func SyncPerform(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := d.Sync.PerformSync(r.Context())
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeResult(w, http.StatusOK, res)
	}
}

// SyncShould reports whether an automatic cycle is due.
func SyncShould(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		due, err := d.Sync.ShouldAutoSync(r.Context())
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeResult(w, http.StatusOK, due)
	}
}

// SyncClearCloud deletes the remote bookmark document.
func SyncClearCloud(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Sync.ClearCloudData(r.Context()); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeResult(w, http.StatusOK, true)
	}
}

type autoSyncRequest struct {
	Enabled *bool `json:"enabled"`
}

// SyncAutoSync stores the auto-sync preference.
func SyncAutoSync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req autoSyncRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		if req.Enabled == nil {
			writeError(w, r, d.Logger, errBadRequest)
			return
		}
		if err := d.Sync.SetAutoSync(r.Context(), *req.Enabled); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeResult(w, http.StatusOK, *req.Enabled)
	}
}

// SyncStatus reports identity, cycle state and schedule information.
func SyncStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := d.Sync.Status(r.Context())
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeResult(w, http.StatusOK, st)
	}
}

// SyncTrigger enqueues a background sync without waiting for it.
func SyncTrigger(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.SyncTrigger != nil && d.SyncTrigger() {
			d.Logger.Info("manual sync triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeResult(w, http.StatusAccepted, true)
			return
		}

		d.Logger.Warn("sync already pending",
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusTooManyRequests, errorEnvelope{Error: "A sync is already pending."})
	}
}
