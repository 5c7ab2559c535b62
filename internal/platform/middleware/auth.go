package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"ledgergate/internal/auth"
	"ledgergate/internal/auth/token"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/platform/httputil"
	"ledgergate/pkg/requestcontext"
)

// TokenReader decodes a bearer credential, collapsing every decode failure
// into a single not-authenticated signal.
type TokenReader interface {
	ReadToken(ctx context.Context, tokenString string) (*auth.IdentityClaim, token.Class, bool)
}

// AccountResolver maps a verified claim to an internal account.
type AccountResolver interface {
	Resolve(ctx context.Context, claim auth.IdentityClaim) (*auth.AuthorizedAccount, error)
}

// RequireAuth gates protected routes. It extracts the bearer access token,
// decodes it, resolves the embedded claim to an account, and attaches the
// account to the request context. It is a pure gate: it never mints tokens
// and never contacts the registry.
//
// Every rejection path answers 401 with the same body: a valid token for a
// missing account must be indistinguishable from no token at all. The one
// exception is an account-store outage, which answers 503 so clients do not
// mistake a transient failure for a revoked credential.
func RequireAuth(reader TokenReader, resolver AccountResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			bearer, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || bearer == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}

			claim, class, ok := reader.ReadToken(ctx, bearer)
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			if class != token.ClassAccess {
				logger.WarnContext(ctx, "unauthorized access - wrong token class",
					"request_id", requestID,
					"class", string(class),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}

			account, err := resolver.Resolve(ctx, *claim)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeNotFound) {
					logger.WarnContext(ctx, "unauthorized access - no account for identity",
						"request_id", requestID,
						"nation_id", claim.NationID,
						"ruler_name", claim.RulerName,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
					return
				}
				logger.ErrorContext(ctx, "account resolution failed",
					"request_id", requestID,
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithAccount(ctx, account)))
		})
	}
}
