package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/teabranch/amazon-chat-completions-server/internal/httputil"
)

// Middleware returns a chi middleware that authenticates every request
// against a single static bearer token (SERVER_API_KEY). There is no
// multi-tenant key store. Comparison is constant-time so response latency
// doesn't leak how much of the token matched.
func Middleware(serverAPIKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := w.Header().Get("X-Request-ID")

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.WriteError(w, reqID, httputil.KindAuthentication, "Missing Authorization header. Use: Authorization: Bearer <api-key>")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				httputil.WriteError(w, reqID, httputil.KindAuthentication, "Invalid Authorization format. Use: Authorization: Bearer <api-key>")
				return
			}
			if token == "" {
				httputil.WriteError(w, reqID, httputil.KindAuthentication, "Empty API key")
				return
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(serverAPIKey)) != 1 {
				httputil.WriteError(w, reqID, httputil.KindAuthentication, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
