package utils

import (
	"io"
)

// maxDrain bounds how much of an unread response body is discarded before
// closing, so keep-alive connections can be reused.
const maxDrain = 64 << 10

// Close closes c and ignores any error.
func Close(c io.Closer) {
	_ = c.Close()
}

// DrainClose discards what is left of a response body, then closes it.
func DrainClose(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, maxDrain))
	_ = rc.Close()
}
