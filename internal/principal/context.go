// Package principal carries the authenticated caller through request contexts.
package principal

import "context"

type ctxKey string

const principalKey ctxKey = "inkstudio.principal"

// Role names understood by the admin API.
const (
	RoleAdmin  = "admin"
	RoleArtist = "artist"
	RoleStaff  = "staff"
)

// Principal is the verified identity behind a request.
type Principal struct {
	Subject string
	Email   string
	Role    string
}

// IsAdmin reports whether the principal may use admin endpoints.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext extracts the principal if present.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.Subject != ""
}

// ActorFromContext returns a loggable actor id, "system" when unauthenticated.
func ActorFromContext(ctx context.Context) string {
	if p, ok := FromContext(ctx); ok {
		return p.Subject
	}
	return "system"
}
