package testutil

import (
	"net/http"
	"time"

	"octopus/pkg/requestcontext"
)

// WithTime freezes the request clock.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
