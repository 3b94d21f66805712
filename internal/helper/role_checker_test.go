package helper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend-kantin/internal/models"
	"backend-kantin/internal/store/storetest"
)

func TestCheckUserRole(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()

	_, err := st.CreateUser(ctx, models.User{Username: "admin", Name: "Admin", Password: "x", Role: models.RoleSuperUser})
	require.NoError(t, err)
	_, err = st.CreateUser(ctx, models.User{Username: "kasir", Name: "Kasir", Password: "x", Role: "cashier"})
	require.NoError(t, err)
	_, err = st.CreateUser(ctx, models.User{Username: "lama", Name: "Lama", Password: "x", Role: models.RoleSuperUser, IsBanned: "y"})
	require.NoError(t, err)

	u, err := CheckUserRole(ctx, st, "admin", models.RoleSuperUser)
	require.NoError(t, err)
	assert.Equal(t, "Admin", u.Name)

	_, err = CheckUserRole(ctx, st, "kasir", models.RoleSuperUser)
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = CheckUserRole(ctx, st, "lama", models.RoleSuperUser)
	assert.ErrorIs(t, err, ErrUserBanned)

	_, err = CheckUserRole(ctx, st, "hantu", models.RoleSuperUser)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
