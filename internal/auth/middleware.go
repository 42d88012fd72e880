package auth

import (
	"net/http"
	"strings"

	"github.com/skylinehq/skyline/backend/pkg/utils"
)

// Middleware resolves the bearer token into an identity on the request
// context, or rejects with 401 before any stream opens.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			// Browsers cannot set headers on websocket handshakes.
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			utils.RespondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		id, err := s.Verify(token)
		if err != nil {
			utils.RespondError(w, http.StatusUnauthorized, "invalid session")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
