package auth

import "context"

type identityKey struct{}

// NewContext returns a context carrying the verified identity.
func NewContext(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// GetIdentity extracts the verified identity from the context, or nil
// when the request is anonymous.
func GetIdentity(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityKey{}).(*Identity)
	return identity
}
