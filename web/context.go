package web

import "context"

func contextWithIdentity(ctx context.Context, id sessionIdentity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// identity returns the session identity placed by the auth middleware.
func identity(ctx context.Context) sessionIdentity {
	id, _ := ctx.Value(identityKey{}).(sessionIdentity)
	return id
}
