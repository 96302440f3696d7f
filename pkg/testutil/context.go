package testutil

import (
	"net/http"
	"time"

	id "rollcall/pkg/domain"
	"rollcall/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context, simulating what the
// identity middleware does for authenticated requests. Invalid UUIDs are
// silently ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
}

// WithRequestTime pins the request-scoped clock, simulating the requesttime
// middleware.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
