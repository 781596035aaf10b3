package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/assigna-app/apiserver/internal/auth"
	"github.com/assigna-app/apiserver/types"
)

// RequireAuth enforces bearer authentication and injects the decoded
// claims into the request context. An expired token gets a distinct
// message so clients know to attempt a refresh.
func RequireAuth(issuer *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Authorization is required.")
				return
			}

			claims, err := issuer.Decode(tokenString)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					writeError(w, http.StatusUnauthorized, "Token is expired.")
					return
				}
				writeError(w, http.StatusUnauthorized, "Token is not valid.")
				return
			}

			ctx := context.WithValue(r.Context(), contextClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireLead admits only team-lead claims. Runs after RequireAuth.
func RequireLead(next http.Handler) http.Handler {
	return requireRole(types.RoleLead)(next)
}

// RequireMember admits only team-member claims. Runs after RequireAuth.
func RequireMember(next http.Handler) http.Handler {
	return requireRole(types.RoleMember)(next)
}

func requireRole(role types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := claimsFromContext(r.Context())
			if err != nil || claims.Role != role {
				writeError(w, http.StatusForbidden, "You are not allowed to access this resource.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
