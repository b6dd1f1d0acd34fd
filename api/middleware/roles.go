package middleware

import (
	"net/http"

	"github.com/angelmondragon/pharmalink-backend/api/responses"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
	"github.com/angelmondragon/pharmalink-backend/pkg/logger"
)

// RequireRole admits callers whose token role is one of roles. Asking for
// RoleAdmin also admits the superadmin.
func RequireRole(logg *logger.Logger, roles ...enums.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !roleAllowed(RoleFromContext(r.Context()), roles) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "Access denied"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func roleAllowed(role enums.Role, allowed []enums.Role) bool {
	for _, candidate := range allowed {
		if role == candidate {
			return true
		}
		if candidate == enums.RoleAdmin && role.IsAdmin() {
			return true
		}
	}
	return false
}
