package utils

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
)

// RemoteError builds a *domain.RemoteError from a Google API error body
// `{"error":{"message":...}}`, using fallback when no message is present.
func RemoteError(resp *http.Response, fallback string) error {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, &body)

	msg := body.Error.Message
	if msg == "" {
		msg = fallback
	}
	return &domain.RemoteError{Status: resp.StatusCode, Message: msg}
}
