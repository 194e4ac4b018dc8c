// Package api implements the Berkana REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// queryTokenParam carries the token for clients that cannot set headers,
// such as a browser EventSource.
const queryTokenParam = "access_token"

// AuthMiddleware returns middleware that validates a Bearer token. With
// enabled false every request passes. allowQuery additionally accepts the
// token as ?access_token= on GET requests.
func AuthMiddleware(enabled bool, token string, allowQuery bool) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok && allowQuery && r.Method == http.MethodGet {
				got, ok = r.URL.Query().Get(queryTokenParam), true
			}
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="berkana"`)
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
