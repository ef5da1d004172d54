package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/medicita/medicita/pkg/apperrors"
	"github.com/medicita/medicita/pkg/models"
)

func TestCreateUserAssignsIDAndRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := New()

	user := &models.User{FullName: "Ana", Email: "ana@example.com"}
	require.NoError(t, s.CreateUser(ctx, user))
	assert.False(t, user.ID.IsZero())
	assert.False(t, user.CreatedAt.IsZero())

	err := s.CreateUser(ctx, &models.User{FullName: "Other Ana", Email: "ana@example.com"})
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeAlreadyExists, appErr.Code)
}

func TestGetMissReturnsNilNil(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := models.ParseUserID("42")
	require.NoError(t, err)

	user, err := s.GetUser(ctx, id)
	assert.NoError(t, err)
	assert.Nil(t, user)

	user, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestAuthenticateUser(t *testing.T) {
	ctx := context.Background()
	s := New()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, s.CreateUser(ctx, &models.User{
		FullName: "Ana", Email: "ana@example.com", PasswordHash: string(hash),
	}))

	user, err := s.AuthenticateUser(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.FullName)

	_, err = s.AuthenticateUser(ctx, "ana@example.com", "wrong")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeInvalidCredentials, appErr.Code)

	// An unknown email reports the same failure as a bad password.
	_, err = s.AuthenticateUser(ctx, "nobody@example.com", "secret1")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeInvalidCredentials, appErr.Code)
}

func TestRatingPerAppointmentUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()

	apptID, err := models.ParseAppointmentID("10")
	require.NoError(t, err)

	require.NoError(t, s.CreateRating(ctx, &models.Rating{AppointmentID: apptID, Score: 4}))

	err = s.CreateRating(ctx, &models.Rating{AppointmentID: apptID, Score: 2})
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeAlreadyRated, appErr.Code)

	got, err := s.GetRatingByAppointment(ctx, apptID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 4, got.Score)
}

func TestCreateRatingRejectsOutOfRangeScore(t *testing.T) {
	ctx := context.Background()
	s := New()

	apptID, _ := models.ParseAppointmentID("10")
	for _, score := range []int{0, 6, -1} {
		err := s.CreateRating(ctx, &models.Rating{AppointmentID: apptID, Score: score})
		require.Error(t, err, "score %d", score)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
	}
}

func TestAppointmentsOrderedByStartTime(t *testing.T) {
	ctx := context.Background()
	s := New()

	userID, _ := models.ParseUserID("1")
	base := time.Now()
	for _, offset := range []time.Duration{72 * time.Hour, 24 * time.Hour, 48 * time.Hour} {
		require.NoError(t, s.CreateAppointment(ctx, &models.Appointment{
			UserID: userID, StartsAt: base.Add(offset),
		}))
	}

	appts, err := s.ListAppointmentsByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, appts, 3)
	assert.True(t, appts[0].StartsAt.Before(appts[1].StartsAt))
	assert.True(t, appts[1].StartsAt.Before(appts[2].StartsAt))
	assert.Equal(t, models.StatusPending, appts[0].Status)
}

func TestNotificationBatchOperations(t *testing.T) {
	ctx := context.Background()
	s := New()

	ana, _ := models.ParseUserID("1")
	ben, _ := models.ParseUserID("2")

	base := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateNotification(ctx, &models.Notification{
			UserID:    ana,
			Title:     "update",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, s.CreateNotification(ctx, &models.Notification{UserID: ben, Title: "other"}))

	// Newest first.
	all, err := s.ListNotificationsByUser(ctx, ana)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))

	require.NoError(t, s.MarkNotificationRead(ctx, all[0].ID))
	unread, err := s.ListUnreadNotificationsByUser(ctx, ana)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	require.NoError(t, s.MarkAllNotificationsRead(ctx, ana))
	unread, err = s.ListUnreadNotificationsByUser(ctx, ana)
	require.NoError(t, err)
	assert.Empty(t, unread)

	// Deleting read notifications only touches the addressed user.
	require.NoError(t, s.DeleteReadNotifications(ctx, ana))
	count, err := s.CountNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	benList, err := s.ListNotificationsByUser(ctx, ben)
	require.NoError(t, err)
	assert.Len(t, benList, 1)
}

func TestUpdateMissingRecordsFail(t *testing.T) {
	ctx := context.Background()
	s := New()

	userID, _ := models.ParseUserID("99")
	err := s.UpdateUser(ctx, &models.User{ID: userID, FullName: "Ghost"})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)

	doctorID, _ := models.ParseDoctorID("99")
	require.Error(t, s.UpdateDoctor(ctx, &models.Doctor{ID: doctorID, Name: "Ghost"}))

	apptID, _ := models.ParseAppointmentID("99")
	require.Error(t, s.UpdateAppointment(ctx, &models.Appointment{ID: apptID}))
}

func TestListDoctorsBySpecialty(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateDoctor(ctx, &models.Doctor{Name: "Dr. Zuniga", Specialty: "Cardiology"}))
	require.NoError(t, s.CreateDoctor(ctx, &models.Doctor{Name: "Dr. Alba", Specialty: "Cardiology"}))
	require.NoError(t, s.CreateDoctor(ctx, &models.Doctor{Name: "Dr. Mora", Specialty: "Dermatology"}))

	cardio, err := s.ListDoctorsBySpecialty(ctx, "Cardiology")
	require.NoError(t, err)
	require.Len(t, cardio, 2)
	// Name order carries over from the full listing.
	assert.Equal(t, "Dr. Alba", cardio[0].Name)
	assert.Equal(t, "Dr. Zuniga", cardio[1].Name)
}

func TestListAllAppointmentsOrdersIDsNumerically(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, raw := range []string{"10", "2", "1"} {
		id, err := models.ParseAppointmentID(raw)
		require.NoError(t, err)
		require.NoError(t, s.CreateAppointment(ctx, &models.Appointment{
			ID:       id,
			UserID:   models.UserIDFromInt64(1),
			DoctorID: models.DoctorIDFromInt64(1),
			StartsAt: time.Now().Add(time.Hour),
		}))
	}

	out, err := s.ListAllAppointments(ctx)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "1", out[0].ID.String())
	assert.Equal(t, "2", out[1].ID.String())
	assert.Equal(t, "10", out[2].ID.String())
}

func TestIDLessPutsNonDecimalLast(t *testing.T) {
	assert.True(t, idLess("2", "10"))
	assert.False(t, idLess("10", "2"))
	assert.True(t, idLess("7", "abc"))
	assert.False(t, idLess("abc", "7"))
	assert.True(t, idLess("abc", "abd"))
}
