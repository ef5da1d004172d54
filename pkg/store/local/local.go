// Package local implements the embedded relational store the application
// starts on, using GORM over SQLite by default or PostgreSQL when the DSN
// carries a postgres scheme.
//
// This is the source side of the one-time data migration: every row key here
// becomes the document id of the corresponding record in the remote store,
// so re-running the migration overwrites rather than duplicates.
package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/medicita/medicita/pkg/apperrors"
	"github.com/medicita/medicita/pkg/models"
	"github.com/medicita/medicita/pkg/store"
)

// Store implements store.Store over a relational database.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// New opens the database named by dsn. A postgres:// or postgresql:// DSN
// selects the PostgreSQL driver; anything else is treated as a SQLite path
// (including ":memory:").
func New(dsn string) (*Store, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate creates or extends the schema. Safe to run on every start; it only
// adds tables, columns, indexes and foreign key constraints.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&userRow{},
		&doctorRow{},
		&appointmentRow{},
		&ratingRow{},
		&notificationRow{},
	)
}

// Close releases the underlying SQL connection.
func (s *Store) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// User operations

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	existing, err := s.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperrors.AlreadyExists("user", "an account with this email already exists")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	row, err := rowFromUser(user)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return apperrors.Database(err, "failed to create user")
	}
	user.ID = models.UserIDFromInt64(row.ID)
	return nil
}

func (s *Store) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	n, err := id.Int64()
	if err != nil {
		return nil, nil
	}
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	row, err := rowFromUser(user)
	if err != nil {
		return err
	}
	if row.ID == 0 {
		return apperrors.Validation("user ID is required for update")
	}
	return s.db.WithContext(ctx).Save(row).Error
}

func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	var rows []userRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make([]*models.User, len(rows))
	for i := range rows {
		users[i] = rows[i].toModel()
	}
	return users, nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&userRow{}).Count(&n).Error
	return n, err
}

// AuthenticateUser checks the password against the stored bcrypt hash.
// Missing account and wrong password are indistinguishable to the caller.
func (s *Store) AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.InvalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.InvalidCredentials()
	}
	return user, nil
}

// Doctor operations

func (s *Store) CreateDoctor(ctx context.Context, doctor *models.Doctor) error {
	if doctor.CreatedAt.IsZero() {
		doctor.CreatedAt = time.Now()
	}
	row, err := rowFromDoctor(doctor)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return apperrors.Database(err, "failed to create doctor")
	}
	doctor.ID = models.DoctorIDFromInt64(row.ID)
	return nil
}

func (s *Store) GetDoctor(ctx context.Context, id models.DoctorID) (*models.Doctor, error) {
	n, err := id.Int64()
	if err != nil {
		return nil, nil
	}
	var row doctorRow
	if err := s.db.WithContext(ctx).First(&row, n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Store) UpdateDoctor(ctx context.Context, doctor *models.Doctor) error {
	row, err := rowFromDoctor(doctor)
	if err != nil {
		return err
	}
	if row.ID == 0 {
		return apperrors.Validation("doctor ID is required for update")
	}
	return s.db.WithContext(ctx).Save(row).Error
}

func (s *Store) ListDoctors(ctx context.Context) ([]*models.Doctor, error) {
	var rows []doctorRow
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	doctors := make([]*models.Doctor, len(rows))
	for i := range rows {
		doctors[i] = rows[i].toModel()
	}
	return doctors, nil
}

func (s *Store) ListDoctorsBySpecialty(ctx context.Context, specialty string) ([]*models.Doctor, error) {
	var rows []doctorRow
	if err := s.db.WithContext(ctx).Where("specialty = ?", specialty).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	doctors := make([]*models.Doctor, len(rows))
	for i := range rows {
		doctors[i] = rows[i].toModel()
	}
	return doctors, nil
}

func (s *Store) CountDoctors(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&doctorRow{}).Count(&n).Error
	return n, err
}

// Appointment operations

func (s *Store) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	now := time.Now()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	if appt.UpdatedAt.IsZero() {
		appt.UpdatedAt = now
	}
	if appt.Status == "" {
		appt.Status = models.StatusPending
	}
	row, err := rowFromAppointment(appt)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return apperrors.Database(err, "failed to create appointment")
	}
	appt.ID = models.AppointmentIDFromInt64(row.ID)
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id models.AppointmentID) (*models.Appointment, error) {
	n, err := id.Int64()
	if err != nil {
		return nil, nil
	}
	var row appointmentRow
	if err := s.db.WithContext(ctx).First(&row, n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Store) UpdateAppointment(ctx context.Context, appt *models.Appointment) error {
	appt.UpdatedAt = time.Now()
	row, err := rowFromAppointment(appt)
	if err != nil {
		return err
	}
	if row.ID == 0 {
		return apperrors.Validation("appointment ID is required for update")
	}
	return s.db.WithContext(ctx).Save(row).Error
}

func (s *Store) DeleteAppointment(ctx context.Context, id models.AppointmentID) error {
	n, err := id.Int64()
	if err != nil {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&appointmentRow{}, n).Error
}

func (s *Store) ListAppointmentsByUser(ctx context.Context, userID models.UserID) ([]*models.Appointment, error) {
	n, err := userID.Int64()
	if err != nil {
		return nil, nil
	}
	var rows []appointmentRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", n).Order("starts_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	appts := make([]*models.Appointment, len(rows))
	for i := range rows {
		appts[i] = rows[i].toModel()
	}
	return appts, nil
}

func (s *Store) ListAppointmentsByDoctor(ctx context.Context, doctorID models.DoctorID) ([]*models.Appointment, error) {
	n, err := doctorID.Int64()
	if err != nil {
		return nil, nil
	}
	var rows []appointmentRow
	if err := s.db.WithContext(ctx).Where("doctor_id = ?", n).Order("starts_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	appts := make([]*models.Appointment, len(rows))
	for i := range rows {
		appts[i] = rows[i].toModel()
	}
	return appts, nil
}

// ListAllAppointments returns every appointment in the store, used when
// reading the full data set for migration.
func (s *Store) ListAllAppointments(ctx context.Context) ([]*models.Appointment, error) {
	var rows []appointmentRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	appts := make([]*models.Appointment, len(rows))
	for i := range rows {
		appts[i] = rows[i].toModel()
	}
	return appts, nil
}

func (s *Store) CountAppointments(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&appointmentRow{}).Count(&n).Error
	return n, err
}

// Rating operations

func (s *Store) CreateRating(ctx context.Context, rating *models.Rating) error {
	if !models.ValidScore(rating.Score) {
		return apperrors.Validation("score must be between 1 and 5")
	}
	existing, err := s.GetRatingByAppointment(ctx, rating.AppointmentID)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperrors.New(apperrors.CodeAlreadyRated, "rating",
			"this appointment has already been rated", 409)
	}
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = time.Now()
	}
	row, err := rowFromRating(rating)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return apperrors.Database(err, "failed to create rating")
	}
	rating.ID = models.RatingIDFromInt64(row.ID)
	return nil
}

func (s *Store) GetRating(ctx context.Context, id models.RatingID) (*models.Rating, error) {
	n, err := id.Int64()
	if err != nil {
		return nil, nil
	}
	var row ratingRow
	if err := s.db.WithContext(ctx).First(&row, n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Store) GetRatingByAppointment(ctx context.Context, apptID models.AppointmentID) (*models.Rating, error) {
	n, err := apptID.Int64()
	if err != nil {
		return nil, nil
	}
	var row ratingRow
	if err := s.db.WithContext(ctx).Where("appointment_id = ?", n).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Store) ListRatingsByDoctor(ctx context.Context, doctorID models.DoctorID) ([]*models.Rating, error) {
	n, err := doctorID.Int64()
	if err != nil {
		return nil, nil
	}
	var rows []ratingRow
	if err := s.db.WithContext(ctx).Where("doctor_id = ?", n).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	ratings := make([]*models.Rating, len(rows))
	for i := range rows {
		ratings[i] = rows[i].toModel()
	}
	return ratings, nil
}

// ListAllRatings returns every rating in the store.
func (s *Store) ListAllRatings(ctx context.Context) ([]*models.Rating, error) {
	var rows []ratingRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	ratings := make([]*models.Rating, len(rows))
	for i := range rows {
		ratings[i] = rows[i].toModel()
	}
	return ratings, nil
}

func (s *Store) CountRatings(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&ratingRow{}).Count(&n).Error
	return n, err
}

// Notification operations

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.Type == "" {
		n.Type = models.NotificationGeneral
	}
	row, err := rowFromNotification(n)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return apperrors.Database(err, "failed to create notification")
	}
	n.ID = models.NotificationIDFromInt64(row.ID)
	return nil
}

func (s *Store) GetNotification(ctx context.Context, id models.NotificationID) (*models.Notification, error) {
	v, err := id.Int64()
	if err != nil {
		return nil, nil
	}
	var row notificationRow
	if err := s.db.WithContext(ctx).First(&row, v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Store) ListNotificationsByUser(ctx context.Context, userID models.UserID) ([]*models.Notification, error) {
	n, err := userID.Int64()
	if err != nil {
		return nil, nil
	}
	var rows []notificationRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", n).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Notification, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

func (s *Store) ListUnreadNotificationsByUser(ctx context.Context, userID models.UserID) ([]*models.Notification, error) {
	n, err := userID.Int64()
	if err != nil {
		return nil, nil
	}
	var rows []notificationRow
	if err := s.db.WithContext(ctx).Where("user_id = ? AND read = ?", n, false).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Notification, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id models.NotificationID) error {
	v, err := id.Int64()
	if err != nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&notificationRow{}).Where("id = ?", v).Update("read", true).Error
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID models.UserID) error {
	n, err := userID.Int64()
	if err != nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&notificationRow{}).
		Where("user_id = ? AND read = ?", n, false).Update("read", true).Error
}

func (s *Store) DeleteReadNotifications(ctx context.Context, userID models.UserID) error {
	n, err := userID.Int64()
	if err != nil {
		return nil
	}
	return s.db.WithContext(ctx).Where("user_id = ? AND read = ?", n, true).Delete(&notificationRow{}).Error
}

// ListAllNotifications returns every notification in the store.
func (s *Store) ListAllNotifications(ctx context.Context) ([]*models.Notification, error) {
	var rw []notificationRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rw).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Notification, len(rw))
	for i := range rw {
		out[i] = rw[i].toModel()
	}
	return out, nil
}

func (s *Store) CountNotifications(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&notificationRow{}).Count(&n).Error
	return n, err
}
