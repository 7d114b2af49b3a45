package middleware

import (
	"context"
	"net/http"
	"strings"

	"carestaff/internal/auth"
	"carestaff/internal/models"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated caller. Handlers extract it once and pass it
// explicitly into every service operation.
type Principal struct {
	UserID     string
	Role       string
	CareHomeID *string
}

func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

func (p Principal) IsCareHomeManager() bool {
	return p.Role == models.RoleCareHomeAdmin && p.CareHomeID != nil
}

func (p Principal) IsWorker() bool {
	return p.Role == models.RoleHealthWorker
}

// ManagesCareHome reports whether the principal administers the given care
// home. Platform admins manage all of them.
func (p Principal) ManagesCareHome(careHomeID string) bool {
	if p.IsAdmin() {
		return true
	}
	return p.IsCareHomeManager() && *p.CareHomeID == careHomeID
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalKey).(Principal)
	return principal, ok
}

func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// PrincipalFromToken builds a principal from a raw token, used by the
// websocket endpoint where the token arrives in the query string.
func PrincipalFromToken(secret, raw string) (Principal, error) {
	claims, err := auth.ParseToken(secret, raw)
	if err != nil {
		return Principal{}, err
	}
	return Principal{
		UserID:     claims.UserID,
		Role:       claims.Role,
		CareHomeID: claims.CareHomeID,
	}, nil
}

func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}
			claims, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			principal := Principal{
				UserID:     claims.UserID,
				Role:       claims.Role,
				CareHomeID: claims.CareHomeID,
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
