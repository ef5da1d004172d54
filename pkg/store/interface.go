// Package store defines the persistence abstraction shared by the local
// relational backend and the remote document backend.
//
// The [Store] interface implements the repository pattern over the clinic
// domain. Two production implementations exist:
//
//   - local.Store: GORM over SQLite or PostgreSQL, the embedded store the
//     application starts on
//   - surreal.Store: SurrealDB over WebSocket with CBOR, the remote store
//     data is migrated to
//
// A third, memory.Store, backs tests. All Get operations return (nil, nil)
// when the record does not exist; an error always means the lookup itself
// failed. Callers distinguish "missing" from "broken" without sentinel
// errors.
package store

import (
	"context"

	"github.com/medicita/medicita/pkg/models"
)

// Store is the unified persistence interface for the clinic domain.
type Store interface {
	// User operations.
	//
	// CreateUser assigns an ID when the entity carries none. Email is
	// unique across the store; creating a duplicate returns an error.
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id models.UserID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]*models.User, error)
	CountUsers(ctx context.Context) (int64, error)

	// Doctor operations.
	//
	// UpdateDoctor is also how rating aggregates are persisted; the
	// service layer recomputes Rating and RatingCount and writes the
	// whole entity back.
	CreateDoctor(ctx context.Context, doctor *models.Doctor) error
	GetDoctor(ctx context.Context, id models.DoctorID) (*models.Doctor, error)
	UpdateDoctor(ctx context.Context, doctor *models.Doctor) error
	ListDoctors(ctx context.Context) ([]*models.Doctor, error)
	ListDoctorsBySpecialty(ctx context.Context, specialty string) ([]*models.Doctor, error)
	CountDoctors(ctx context.Context) (int64, error)

	// Appointment operations.
	//
	// Listing returns appointments ordered by StartsAt ascending.
	CreateAppointment(ctx context.Context, appt *models.Appointment) error
	GetAppointment(ctx context.Context, id models.AppointmentID) (*models.Appointment, error)
	UpdateAppointment(ctx context.Context, appt *models.Appointment) error
	DeleteAppointment(ctx context.Context, id models.AppointmentID) error
	ListAppointmentsByUser(ctx context.Context, userID models.UserID) ([]*models.Appointment, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID models.DoctorID) ([]*models.Appointment, error)
	CountAppointments(ctx context.Context) (int64, error)

	// Rating operations.
	//
	// At most one rating exists per appointment. GetRatingByAppointment
	// is the uniqueness lookup; CreateRating enforces the constraint and
	// fails on a second submission for the same appointment.
	CreateRating(ctx context.Context, rating *models.Rating) error
	GetRating(ctx context.Context, id models.RatingID) (*models.Rating, error)
	GetRatingByAppointment(ctx context.Context, apptID models.AppointmentID) (*models.Rating, error)
	ListRatingsByDoctor(ctx context.Context, doctorID models.DoctorID) ([]*models.Rating, error)
	CountRatings(ctx context.Context) (int64, error)

	// Notification operations.
	//
	// Listing returns notifications newest first. MarkAllNotificationsRead
	// and DeleteReadNotifications are batch operations scoped to one user.
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id models.NotificationID) (*models.Notification, error)
	ListNotificationsByUser(ctx context.Context, userID models.UserID) ([]*models.Notification, error)
	ListUnreadNotificationsByUser(ctx context.Context, userID models.UserID) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id models.NotificationID) error
	MarkAllNotificationsRead(ctx context.Context, userID models.UserID) error
	DeleteReadNotifications(ctx context.Context, userID models.UserID) error
	CountNotifications(ctx context.Context) (int64, error)

	// Close releases the backend connection. The store is unusable after.
	Close(ctx context.Context) error
}

// Authenticator verifies user credentials. Both production stores implement
// it; the wrapper types do not, so callers unwrap before asserting.
type Authenticator interface {
	AuthenticateUser(ctx context.Context, email, password string) (*models.User, error)
}
