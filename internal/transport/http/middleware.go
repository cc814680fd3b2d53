package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	dErrors "medisync/pkg/domain-errors"
)

// TokenAuthenticator validates bearer tokens and resolves them to a user.
type TokenAuthenticator interface {
	ValidateAccessToken(ctx context.Context, accessToken string) (uuid.UUID, error)
}

type contextKeyUserID struct{}

// GetUserID returns the authenticated user from the request context, or
// uuid.Nil outside a RequireAuth-guarded route.
func GetUserID(ctx context.Context) uuid.UUID {
	userID, ok := ctx.Value(contextKeyUserID{}).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return userID
}

// RequireAuth rejects requests without a valid bearer access token and puts
// the authenticated user ID on the request context.
func RequireAuth(authenticator TokenAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "request without bearer token", "path", r.URL.Path)
				WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			userID, err := authenticator.ValidateAccessToken(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "rejected access token",
					"path", r.URL.Path,
					"error", err,
				)
				WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx = context.WithValue(ctx, contextKeyUserID{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
