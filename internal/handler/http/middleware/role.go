package middleware

import (
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/identity"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/response"
)

// RequirePermission checks the role claim against the role permission table. It is a
// coarse gate; services still ask the authorizer about the specific dealership.
func RequirePermission(permission identity.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFrom(r.Context())
			if !ok {
				response.Forbidden(w, fmt.Sprintf("Insufficient permissions: required '%s'", permission))
				return
			}

			if !identity.HasPermission(claims.Role, permission) {
				response.Forbidden(w, fmt.Sprintf("Insufficient permissions: required '%s', but role is '%s'", permission, claims.Role))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
