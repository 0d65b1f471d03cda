package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/alexedwards/argon2id"

	"github.com/ymcoiffure/salon-bookings/internal/http/response"
	"github.com/ymcoiffure/salon-bookings/pkg/logger"
)

const AdminKeyHeader = "x-admin-key"

// AdminKey rejects any request whose x-admin-key header does not match.
// When hash is set it holds an argon2id encoding and wins over key.
func AdminKey(key, hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !adminKeyMatches(r.Header.Get(AdminKeyHeader), key, hash) {
				logger.WarnContext(r.Context(), "Admin request refused",
					"path", r.URL.Path,
					"client_ip", ClientIP(r),
				)
				response.Unauthorized(w, "Refusé")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func adminKeyMatches(given, key, hash string) bool {
	if given == "" {
		return false
	}
	if hash != "" {
		ok, err := argon2id.ComparePasswordAndHash(given, hash)
		if err != nil {
			logger.Error("Admin key hash is malformed", "error", err)
			return false
		}
		return ok
	}
	if key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(key)) == 1
}
