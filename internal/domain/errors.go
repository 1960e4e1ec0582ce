package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrUnauthenticated means no identity is available on this device.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrAuthExpired means the refresh credential was rejected and the
	// identity has been signed out.
	ErrAuthExpired = errors.New("session expired, please sign in again")

	// ErrNotFound is returned by lookups for unknown bookmarks or keys.
	ErrNotFound = errors.New("not found")

	// ErrStorage marks a failure of device-local persistence.
	ErrStorage = errors.New("local storage error")
)

// RemoteError is a non-success response from the remote document store.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote store returned status %d", e.Status)
	}
	return fmt.Sprintf("remote store: %s", e.Message)
}

// ImportFormatError rejects an import payload as a whole.
type ImportFormatError struct {
	Reason string
	Err    error
}

func (e *ImportFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid import format: %s: %v", e.Reason, e.Err)
	}
	return "invalid import format: " + e.Reason
}

func (e *ImportFormatError) Unwrap() error { return e.Err }

// UserMessage turns any error into the sentence shown to a user. Transport
// details stay in the logs.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var remoteErr *RemoteError
	var importErr *ImportFormatError
	var urlErr *url.Error
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "Not signed in. Sign in to enable cloud sync."
	case errors.Is(err, ErrAuthExpired):
		return ErrAuthExpired.Error()
	case errors.Is(err, ErrNotFound):
		return "Bookmark not found."
	case errors.As(err, &remoteErr):
		if remoteErr.Message != "" {
			return remoteErr.Message
		}
		return "Sync failed."
	case errors.As(err, &importErr):
		return "Import failed: " + importErr.Reason
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &urlErr):
		return "Could not reach the sync service. It will be retried on the next sync."
	case errors.Is(err, ErrStorage):
		return "Could not access local bookmark storage. Run with --verbose or check the logs for details."
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return "Received data that could not be read. Run with --verbose or check the logs for details."
	default:
		return err.Error()
	}
}
