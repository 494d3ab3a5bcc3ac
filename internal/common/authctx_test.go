package common

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCallerContext(t *testing.T) {
	ctx := context.Background()
	_, ok := UserID(ctx)
	require.False(t, ok)
	require.False(t, HasRole(ctx, "admin"))

	roles := []string{"counsellor", "admin"}
	ctx = WithRoles(WithUserID(ctx, "u-7"), roles)
	roles[1] = "mutated"

	id, ok := UserID(ctx)
	require.True(t, ok)
	require.Equal(t, "u-7", id)
	require.True(t, HasRole(ctx, "admin"))
	require.Equal(t, []string{"counsellor", "admin"}, Roles(ctx))
}
