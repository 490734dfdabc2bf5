package control

import (
	"crypto/subtle"
	"net/http"
)

const (
	// TokenHeader is the header name for the control token.
	TokenHeader = "X-Control-Token"
)

// NewAuthMiddleware rejects requests that do not carry token in TokenHeader.
// An empty token disables the check.
func NewAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(TokenHeader)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid control token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
