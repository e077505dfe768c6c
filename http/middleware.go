package http

import (
	"context"
	"net/http"
	"strings"
)

type identityKey struct{}

// Identity extracts the caller identity from request metadata. The
// Authorization header is treated as an opaque identity string, not a
// verified token; an empty result means an anonymous caller. This is the
// single seam through which handlers learn who is calling, so nothing
// else ever parses headers.
func Identity(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("Authorization"))
}

// IdentityMiddleware stores the caller identity on the request context.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), identityKey{}, Identity(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext returns the identity stored by IdentityMiddleware,
// or "" when none was set.
func IdentityFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(identityKey{}).(string)
	return identity
}
