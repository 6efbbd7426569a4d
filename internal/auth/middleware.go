package auth

import (
	"context"
	"fmt"
	"net/http"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

type contextKey string

const principalKey contextKey = "principal"

// Level is a caller's capability.
type Level int

const (
	Anonymous Level = iota
	Authenticated
	Admin
)

func (l Level) String() string {
	switch l {
	case Authenticated:
		return "authenticated"
	case Admin:
		return "admin"
	default:
		return "anonymous"
	}
}

// Principal is the resolved caller attached to the request context.
type Principal struct {
	User  *models.User
	Admin bool
}

type UserResolver interface {
	Resolve(ctx context.Context, claims models.Claims) (*models.User, error)
}

// Middleware verifies the bearer token, resolves the user and stores the
// principal in the request context. Any failure is a 401.
func Middleware(verifier Verifier, users UserResolver, adminRole string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteError(w, "Authentication required", fmt.Errorf("%w: %v", models.ErrUnauthorized, err))
				return
			}

			claims, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("INVALID_TOKEN", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, "Invalid token", err)
				return
			}

			user, err := users.Resolve(r.Context(), claims)
			if err != nil {
				utils.WriteError(w, "Authentication failed", err)
				return
			}

			p := &Principal{
				User:  user,
				Admin: user.IsStaff || (adminRole != "" && claims.HasRole(adminRole)),
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the caller, or nil for anonymous requests.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// Classify is a pure function of the resolved principal.
func Classify(p *Principal) Level {
	switch {
	case p == nil || p.User == nil:
		return Anonymous
	case p.Admin:
		return Admin
	default:
		return Authenticated
	}
}

// Require gates a route on a minimum capability: anonymous callers get 401,
// authenticated callers below the level get 403.
func Require(level Level) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := Classify(PrincipalFrom(r.Context()))
			switch {
			case got == Anonymous && level > Anonymous:
				utils.WriteError(w, "Authentication required", models.ErrUnauthorized)
			case got < level:
				utils.WriteError(w, "Insufficient privileges", fmt.Errorf("%w: %s access required", models.ErrForbidden, level))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return Require(Admin)(next)
}
