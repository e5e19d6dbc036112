// Package requestctx carries per-request identity values through context.
//
// Tenant-scoped storage reads these values to filter every query to the
// caller's company. Queries issued without an established tenant context
// fail closed before touching storage.
package requestctx

import "context"

// companyIDContextKey is the context key for the authenticated tenant.
type companyIDContextKey struct{}

// userIDContextKey is the context key for authenticated user identity.
type userIDContextKey struct{}

// WithTenant stores the tenant pair in context.
func WithTenant(ctx context.Context, companyID, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, companyIDContextKey{}, companyID)
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// CompanyIDFromContext returns the company identifier stored in context.
func CompanyIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(companyIDContextKey{}).(string)
	return value
}

// UserIDFromContext returns the user identifier stored in context.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(userIDContextKey{}).(string)
	return value
}
