package middleware

import (
	"net/http"

	"github.com/justinas/alice"
)

// NewNoStore returns a middleware marking every response uncacheable.
// Auth decisions and redirects carrying cookies must never be served from an
// intermediary cache.
func NewNoStore() alice.Constructor {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			rw.Header().Set("Cache-Control", "no-store")
			rw.Header().Set("Pragma", "no-cache")
			next.ServeHTTP(rw, req)
		})
	}
}
