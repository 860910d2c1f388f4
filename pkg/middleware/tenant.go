package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/acrewise/acrewise/pkg/handlers"
)

type ownerKey struct{}

var (
	// ErrMissingToken indicates the request carried no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken indicates bearer token verification failed.
	ErrInvalidToken = errors.New("invalid bearer token")
	// ErrMissingOwnerClaim indicates the verified token carried no usable owner claim.
	ErrMissingOwnerClaim = errors.New("token missing owner claim")
)

// OwnerFromContext returns the tenant owner identifier resolved by the Tenant
// middleware. Every persisted record is scoped to this identifier.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey{}).(string)
	return owner, ok && owner != ""
}

// WithOwner returns a context carrying the given owner identifier.
// Exposed for tests and non-HTTP callers of owner-scoped systems.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// Tenant returns middleware that resolves the owner identifier for each request.
// With a verifier, it validates the Authorization bearer token via OIDC and
// extracts the owner claim. With a nil verifier (auth disabled), every request
// is scoped to devOwner. Requests without a resolvable owner are rejected.
func Tenant(verifier *oidc.IDTokenVerifier, ownerClaim, devOwner string, logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With("middleware", "tenant")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), devOwner)))
				return
			}

			raw, ok := bearerToken(r)
			if !ok {
				handlers.RespondError(w, log, http.StatusUnauthorized, ErrMissingToken)
				return
			}

			token, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				log.Warn("token verification failed", "error", err)
				handlers.RespondError(w, log, http.StatusUnauthorized, ErrInvalidToken)
				return
			}

			owner, err := extractOwner(token, ownerClaim)
			if err != nil {
				handlers.RespondError(w, log, http.StatusUnauthorized, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func extractOwner(token *oidc.IDToken, claim string) (string, error) {
	if claim == "" || claim == "sub" {
		if token.Subject == "" {
			return "", ErrMissingOwnerClaim
		}
		return token.Subject, nil
	}

	var claims map[string]any
	if err := token.Claims(&claims); err != nil {
		return "", ErrMissingOwnerClaim
	}

	owner, ok := claims[claim].(string)
	if !ok || owner == "" {
		return "", ErrMissingOwnerClaim
	}
	return owner, nil
}
