// Package identity resolves the acting user for a request.
//
// The service sits behind the platform's auth proxy, which authenticates the
// session and forwards the user as the X-User-ID header. This middleware
// parses it into the context; handlers reject requests without one.
package identity

import (
	"net/http"

	id "rollcall/pkg/domain"
	"rollcall/pkg/requestcontext"
)

// Header carries the authenticated user, set by the fronting auth proxy.
const Header = "X-User-ID"

// Middleware parses X-User-ID into the request context. A missing or
// malformed header leaves the context without a user; endpoint handlers
// return 401 for operations that need an actor.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(Header)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := id.ParseUserID(raw)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := requestcontext.WithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
