package common

import (
	"context"
	"slices"
)

// caller is what RequireAuth learned about the request's account.
type caller struct {
	id    string
	roles []string
}

type callerKey struct{}

func callerFrom(ctx context.Context) caller {
	c, _ := ctx.Value(callerKey{}).(caller)
	return c
}

// WithUserID records the authenticated account id, keeping any roles.
func WithUserID(ctx context.Context, id string) context.Context {
	c := callerFrom(ctx)
	c.id = id
	return context.WithValue(ctx, callerKey{}, c)
}

// UserID reports the account id set by WithUserID.
func UserID(ctx context.Context) (string, bool) {
	c := callerFrom(ctx)
	return c.id, c.id != ""
}

func WithRoles(ctx context.Context, roles []string) context.Context {
	c := callerFrom(ctx)
	c.roles = slices.Clone(roles)
	return context.WithValue(ctx, callerKey{}, c)
}

func Roles(ctx context.Context) []string {
	return callerFrom(ctx).roles
}

func HasRole(ctx context.Context, role string) bool {
	return slices.Contains(Roles(ctx), role)
}
