package auth

import (
	"net/http"
	"strings"
)

// Middleware guards protected routes. A request without a bearer token is
// 401; a request whose token fails verification is 403. The distinction is
// part of the access-control contract: missing-entirely and
// present-but-invalid must be tellable apart by status code.
func Middleware(tokens *TokenService, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		identity, ok := tokens.Verify(tokenStr)
		if !ok {
			writeError(w, http.StatusForbidden, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// bearerToken extracts the token from a "Bearer <token>" header. A header
// without the scheme prefix counts as no token at all.
func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}
