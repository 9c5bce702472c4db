package howto

import (
	"context"
	"errors"
)

// Identity resolution happens in the surrounding auth layer; the resolved
// user travels on the request context.

type userContextKey struct{}

// ErrNoActingUser indicates an operation that requires an identity was
// called without one on the context.
var ErrNoActingUser = errors.New("no acting user on context")

// WithUser returns a context carrying the acting user.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// UserFromContext returns the acting user, or nil when none is attached.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userContextKey{}).(*User)
	return u
}

func actingUser(ctx context.Context) (*User, error) {
	u := UserFromContext(ctx)
	if u == nil || u.UserName == "" {
		return nil, ErrNoActingUser
	}
	return u, nil
}
