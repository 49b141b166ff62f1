package entities

import "context"

// Identity is the request-scoped caller as vouched for by the identity provider.
type Identity struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
}

// SystemIdentity is used by background jobs such as the request expiry sweeper.
func SystemIdentity() Identity {
	return Identity{UserID: "system", Role: RoleSystem}
}

// IsZero reports whether no caller is attached.
func (i Identity) IsZero() bool {
	return i.UserID == ""
}

type identityKey struct{}

// ContextWithIdentity returns a copy of ctx carrying id.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller attached by the auth middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && !id.IsZero()
}
