package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/checkout-backend/api/responses"
	"github.com/angelmondragon/checkout-backend/api/validators"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/security"
)

// AdminKey guards operator routes with an API key verified against an
// argon2id hash. With no hash configured every request is rejected.
func AdminKey(hash string, logg *logger.Logger) func(http.Handler) http.Handler {
	hash = strings.TrimSpace(hash)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := validators.APIKeyFromRequest(r)
			if key == "" || hash == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin api key required"))
				return
			}

			ok, err := security.VerifyAPIKey(key, hash)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify admin api key"))
				return
			}
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid admin api key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
