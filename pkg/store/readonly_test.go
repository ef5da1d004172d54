package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicita/medicita/pkg/apperrors"
	"github.com/medicita/medicita/pkg/models"
	"github.com/medicita/medicita/pkg/store"
	"github.com/medicita/medicita/pkg/store/memory"
)

func TestReadOnlyStoreBlocksWrites(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()

	readOnly := false
	wrapped := store.NewReadOnlyStore(inner, func() bool { return readOnly })

	user := &models.User{FullName: "Ana", Email: "ana@example.com"}
	require.NoError(t, wrapped.CreateUser(ctx, user))

	readOnly = true

	err := wrapped.CreateUser(ctx, &models.User{FullName: "Ben", Email: "ben@example.com"})
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)

	user.FullName = "Ana Maria"
	assert.Error(t, wrapped.UpdateUser(ctx, user))
	assert.Error(t, wrapped.CreateDoctor(ctx, &models.Doctor{Name: "Dr. Soto"}))
	assert.Error(t, wrapped.CreateAppointment(ctx, &models.Appointment{
		UserID: user.ID, StartsAt: time.Now().Add(time.Hour),
	}))
	assert.Error(t, wrapped.MarkAllNotificationsRead(ctx, user.ID))
	assert.Error(t, wrapped.DeleteReadNotifications(ctx, user.ID))

	// Reads keep working while the guard is up.
	got, err := wrapped.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ana", got.FullName)

	count, err := wrapped.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Dropping the guard re-enables writes on the next call.
	readOnly = false
	assert.NoError(t, wrapped.UpdateUser(ctx, user))
}

func TestReadOnlyStoreUnwrap(t *testing.T) {
	inner := memory.New()
	wrapped := store.NewReadOnlyStore(inner, func() bool { return true })

	ro, ok := wrapped.(*store.ReadOnlyStore)
	require.True(t, ok)
	assert.Same(t, store.Store(inner), ro.Unwrap())
}
