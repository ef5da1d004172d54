package store

import (
	"context"
	"net/http"

	"github.com/medicita/medicita/pkg/apperrors"
	"github.com/medicita/medicita/pkg/models"
)

// ReadOnlyStore wraps a Store and rejects writes while a migration batch is
// being copied to the remote store. The read-only state is sampled per call
// through the isReadOnly function, so the migration service can flip it
// without touching the wrapper.
type ReadOnlyStore struct {
	Store
	isReadOnly func() bool
}

// NewReadOnlyStore wraps store with a dynamic write guard.
func NewReadOnlyStore(store Store, isReadOnly func() bool) Store {
	return &ReadOnlyStore{Store: store, isReadOnly: isReadOnly}
}

// Unwrap returns the underlying store.
func (r *ReadOnlyStore) Unwrap() Store { return r.Store }

func (r *ReadOnlyStore) checkReadOnly() error {
	if r.isReadOnly() {
		return apperrors.New(apperrors.CodeConflict, "store",
			"store is read-only while migration is in progress", http.StatusConflict)
	}
	return nil
}

func (r *ReadOnlyStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateUser(ctx, user)
}

func (r *ReadOnlyStore) UpdateUser(ctx context.Context, user *models.User) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateUser(ctx, user)
}

func (r *ReadOnlyStore) CreateDoctor(ctx context.Context, doctor *models.Doctor) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateDoctor(ctx, doctor)
}

func (r *ReadOnlyStore) UpdateDoctor(ctx context.Context, doctor *models.Doctor) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateDoctor(ctx, doctor)
}

func (r *ReadOnlyStore) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateAppointment(ctx, appt)
}

func (r *ReadOnlyStore) UpdateAppointment(ctx context.Context, appt *models.Appointment) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateAppointment(ctx, appt)
}

func (r *ReadOnlyStore) DeleteAppointment(ctx context.Context, id models.AppointmentID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteAppointment(ctx, id)
}

func (r *ReadOnlyStore) CreateRating(ctx context.Context, rating *models.Rating) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateRating(ctx, rating)
}

func (r *ReadOnlyStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateNotification(ctx, n)
}

func (r *ReadOnlyStore) MarkNotificationRead(ctx context.Context, id models.NotificationID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.MarkNotificationRead(ctx, id)
}

func (r *ReadOnlyStore) MarkAllNotificationsRead(ctx context.Context, userID models.UserID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.MarkAllNotificationsRead(ctx, userID)
}

func (r *ReadOnlyStore) DeleteReadNotifications(ctx context.Context, userID models.UserID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteReadNotifications(ctx, userID)
}
