package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	dErrors "octopus/pkg/domain-errors"
	"octopus/pkg/platform/httputil"
	"octopus/pkg/requestcontext"
)

const (
	tokenHeader = "X-Admin-Token"
	actorHeader = "X-Admin-Actor"
)

// RequireAdminToken guards administrative routes. An empty expected token
// locks the routes entirely. The optional X-Admin-Actor header names the
// operator for audit trails.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := r.Header.Get(tokenHeader)
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}

			actor := strings.TrimSpace(r.Header.Get(actorHeader))
			if actor == "" || len(actor) > 128 {
				actor = "admin"
			}
			ctx = requestcontext.WithActorID(ctx, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
