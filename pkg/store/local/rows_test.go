package local

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicita/medicita/pkg/models"
)

func gormTag(t *testing.T, typ any, field string) string {
	t.Helper()
	f, ok := reflect.TypeOf(typ).FieldByName(field)
	require.True(t, ok, "field %s not found", field)
	return f.Tag.Get("gorm")
}

func TestRowConstraintsCascade(t *testing.T) {
	for _, tc := range []struct {
		row   any
		field string
	}{
		{appointmentRow{}, "User"},
		{appointmentRow{}, "Doctor"},
		{ratingRow{}, "User"},
		{ratingRow{}, "Doctor"},
		{ratingRow{}, "Appointment"},
		{notificationRow{}, "User"},
	} {
		tag := gormTag(t, tc.row, tc.field)
		assert.Contains(t, tag, "OnDelete:CASCADE",
			"%T.%s", tc.row, tc.field)
	}

	// A notification survives its appointment being deleted.
	tag := gormTag(t, notificationRow{}, "Appointment")
	assert.Contains(t, tag, "OnDelete:SET NULL")
}

func TestAppointmentRowRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	appt := &models.Appointment{
		ID:        models.AppointmentIDFromInt64(7),
		UserID:    models.UserIDFromInt64(3),
		DoctorID:  models.DoctorIDFromInt64(5),
		StartsAt:  now.Add(48 * time.Hour),
		Status:    models.StatusConfirmed,
		Notes:     "first visit",
		CreatedAt: now,
		UpdatedAt: now,
	}

	row, err := rowFromAppointment(appt)
	require.NoError(t, err)
	assert.Equal(t, int64(7), row.ID)
	assert.Equal(t, int64(3), row.UserID)
	assert.Equal(t, int64(5), row.DoctorID)

	back := row.toModel()
	assert.Equal(t, appt, back)
}

func TestRowFromAppointmentRejectsRemoteIDs(t *testing.T) {
	appt := &models.Appointment{
		UserID:   models.NewUserID(),
		DoctorID: models.DoctorIDFromInt64(1),
	}
	_, err := rowFromAppointment(appt)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not representable locally"))
}

func TestNotificationRowRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	apptID := models.AppointmentIDFromInt64(9)
	n := &models.Notification{
		ID:            models.NotificationIDFromInt64(2),
		UserID:        models.UserIDFromInt64(4),
		Title:         "Cita confirmada",
		Message:       "tomorrow at noon",
		Type:          models.NotificationAppointmentConfirmed,
		Read:          true,
		AppointmentID: &apptID,
		CreatedAt:     now,
	}

	row, err := rowFromNotification(n)
	require.NoError(t, err)
	require.NotNil(t, row.AppointmentID)
	assert.Equal(t, int64(9), *row.AppointmentID)

	back := row.toModel()
	assert.Equal(t, n, back)
}

func TestRatingRowRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	r := &models.Rating{
		ID:            models.RatingIDFromInt64(1),
		UserID:        models.UserIDFromInt64(2),
		DoctorID:      models.DoctorIDFromInt64(3),
		AppointmentID: models.AppointmentIDFromInt64(4),
		Score:         5,
		Comment:       "excellent",
		CreatedAt:     now,
	}

	row, err := rowFromRating(r)
	require.NoError(t, err)
	back := row.toModel()
	assert.Equal(t, r, back)
}
