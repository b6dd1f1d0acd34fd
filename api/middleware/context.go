package middleware

import (
	"context"

	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
)

type contextKey string

const (
	ctxAccountID   contextKey = "account_id"
	ctxRole        contextKey = "actor_role"
	ctxIsMainAdmin contextKey = "is_main_admin"
	ctxUsername    contextKey = "username"
	ctxAccessID    contextKey = "access_id"
)

func AccountIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccountID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.Role {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.Role); ok {
		return v
	}
	return ""
}

// IsMainAdminFromContext reports whether the caller authenticated as the
// single superadmin account.
func IsMainAdminFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(ctxIsMainAdmin).(bool)
	return v
}

func UsernameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUsername).(string); ok {
		return v
	}
	return ""
}

// AccessIDFromContext returns the jti of the access token that authenticated the request.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// WithAccount injects the authenticated account into the context.
func WithAccount(ctx context.Context, accountID string, role enums.Role, isMainAdmin bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxAccountID, accountID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return context.WithValue(ctx, ctxIsMainAdmin, isMainAdmin)
}
