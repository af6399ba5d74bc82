package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/cardline/backend/pkg/utils"
)

const secretHeader = "X-Webhook-Secret"

// RequireSecret rejects requests whose secret header does not match the
// configured value. An empty configured secret disables the check.
func RequireSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" {
				presented := r.Header.Get(secretHeader)
				if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
					log.Warn().Str("path", r.URL.Path).Msg("webhook secret mismatch")
					utils.RespondError(w, http.StatusUnauthorized, "invalid webhook secret")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
