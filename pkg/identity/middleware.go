package identity

import (
	"net/http"
	"strings"
)

// SessionCookieName is the browser transport for session tokens. The
// Authorization header takes precedence when both are present.
const SessionCookieName = "lh_session"

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Middleware verifies the session token and injects the account ID into the
// request context. Requests without a valid token get 401.
func Middleware(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			accountID, err := tokens.Verify(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), accountID)))
		})
	}
}

// OptionalMiddleware injects the account ID when a valid token is present
// and passes the request through untouched otherwise. Used on routes that
// render differently for signed-in visitors.
func OptionalMiddleware(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := tokenFromRequest(r); token != "" {
				if accountID, err := tokens.Verify(token); err == nil {
					r = r.WithContext(WithAccountID(r.Context(), accountID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
