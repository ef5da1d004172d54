// Package surreal implements the remote document store over SurrealDB's
// WebSocket protocol with the surrealcbor codec.
//
// This is the destination side of the one-time data migration. Tables are
// created implicitly on first insert, so there is no schema step. Typed IDs
// marshal as RecordIDs in CBOR, which keeps cross-references (appointment to
// user and doctor, rating to appointment) as real record links.
package surreal

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	surrealdb "github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/medicita/medicita/pkg/apperrors"
	"github.com/medicita/medicita/pkg/models"
	"github.com/medicita/medicita/pkg/store"
)

// Store implements store.Store over SurrealDB.
type Store struct {
	db       *surrealdb.DB
	ns       string
	database string
}

var _ store.Store = (*Store)(nil)

// userDoc is the stored form of a user. The domain model hides PasswordHash
// from serialization entirely, so the remote representation names the field
// explicitly; without it, signing in after migration would be impossible.
type userDoc struct {
	ID           models.UserID `json:"id"`
	FullName     string        `json:"full_name"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"password_hash,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

func docFromUser(u *models.User) *userDoc {
	return &userDoc{
		ID:           u.ID,
		FullName:     u.FullName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func (d *userDoc) toModel() *models.User {
	return &models.User{
		ID:           d.ID,
		FullName:     d.FullName,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

// New connects to SurrealDB at wsURL and selects the namespace and database.
// The connection is configured with the surrealcbor codec; the default codec
// mishandles time.Time, which corrupts datetime fields on write.
func New(ctx context.Context, wsURL, namespace, database, username, password string) (*Store, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	conf := connection.NewConfig(u)
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	conn := gorillaws.New(conf)
	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		return nil, apperrors.Classify(fmt.Errorf("failed to connect to SurrealDB: %w", err))
	}

	if username != "" && password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": username,
			"pass": password,
		}); err != nil {
			return nil, apperrors.Classify(fmt.Errorf("failed to authenticate: %w", err))
		}
	}

	if err := db.Use(ctx, namespace, database); err != nil {
		return nil, apperrors.Classify(fmt.Errorf("failed to use namespace/database: %w", err))
	}

	return &Store{db: db, ns: namespace, database: database}, nil
}

// Close terminates the WebSocket connection.
func (s *Store) Close(ctx context.Context) error {
	return s.db.Close(ctx)
}

// handleNotFound collapses the driver's not-found error shapes to nil so
// callers can translate them into a (nil, nil) miss.
func handleNotFound(err error) error {
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "Expected a single or multiple results but got 0") ||
			strings.Contains(errStr, "cannot unmarshal array into Go value") {
			return nil
		}
	}
	return err
}

// first extracts the first row of the first statement result, or nil.
func first[T any](res *[]surrealdb.QueryResult[[]T]) *T {
	if res == nil || len(*res) == 0 || len((*res)[0].Result) == 0 {
		return nil
	}
	return &(*res)[0].Result[0]
}

// rows extracts all rows of the first statement result.
func rows[T any](res *[]surrealdb.QueryResult[[]T]) []T {
	if res == nil || len(*res) == 0 {
		return nil
	}
	return (*res)[0].Result
}

// countTable returns the number of records in a table. Missing and empty
// tables both count as zero.
func (s *Store) countTable(ctx context.Context, table string) (int64, error) {
	type countResult struct {
		Count int64 `json:"count"`
	}
	res, err := surrealdb.Query[[]countResult](ctx, s.db,
		"SELECT count() AS count FROM type::table($tb) GROUP ALL",
		map[string]any{"tb": table})
	if err != nil {
		return 0, apperrors.Classify(err)
	}
	if c := first(res); c != nil {
		return c.Count, nil
	}
	return 0, nil
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
	if user.ID.IsZero() {
		user.ID = models.NewUserID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if _, err := surrealdb.Create[userDoc](ctx, s.db, "users", docFromUser(user)); err != nil {
		return apperrors.Classify(fmt.Errorf("failed to create user: %w", err))
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	doc, err := surrealdb.Select[userDoc](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, apperrors.Classify(err)
	}
	return doc.toModel(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	res, err := surrealdb.Query[[]userDoc](ctx, s.db,
		"SELECT * FROM users WHERE email = $email LIMIT 1",
		map[string]any{"email": email})
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	doc := first(res)
	if doc == nil {
		return nil, nil
	}
	return doc.toModel(), nil
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		return apperrors.Validation("user ID is required for update")
	}
	if _, err := surrealdb.Update[userDoc](ctx, s.db, user.ID.RecordID(), docFromUser(user)); err != nil {
		return apperrors.Classify(fmt.Errorf("failed to update user: %w", err))
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	res, err := surrealdb.Query[[]userDoc](ctx, s.db,
		"SELECT * FROM users ORDER BY created_at ASC", nil)
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	docs := rows(res)
	users := make([]*models.User, len(docs))
	for i := range docs {
		users[i] = docs[i].toModel()
	}
	return users, nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return s.countTable(ctx, "users")
}

// Doctor operations

func (s *Store) CreateDoctor(ctx context.Context, doctor *models.Doctor) error {
	if doctor.ID.IsZero() {
		doctor.ID = models.NewDoctorID()
	}
	if doctor.CreatedAt.IsZero() {
		doctor.CreatedAt = time.Now()
	}
	if _, err := surrealdb.Create[models.Doctor](ctx, s.db, "doctors", doctor); err != nil {
		return apperrors.Classify(fmt.Errorf("failed to create doctor: %w", err))
	}
	return nil
}

func (s *Store) GetDoctor(ctx context.Context, id models.DoctorID) (*models.Doctor, error) {
	doctor, err := surrealdb.Select[models.Doctor](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, apperrors.Classify(err)
	}
	return doctor, nil
}

func (s *Store) UpdateDoctor(ctx context.Context, doctor *models.Doctor) error {
	if doctor.ID.IsZero() {
		return apperrors.Validation("doctor ID is required for update")
	}
	if _, err := surrealdb.Update[models.Doctor](ctx, s.db, doctor.ID.RecordID(), doctor); err != nil {
		return apperrors.Classify(fmt.Errorf("failed to update doctor: %w", err))
	}
	return nil
}

func (s *Store) ListDoctors(ctx context.Context) ([]*models.Doctor, error) {
	res, err := surrealdb.Query[[]*models.Doctor](ctx, s.db,
		"SELECT * FROM doctors ORDER BY name ASC", nil)
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	return rows(res), nil
}

func (s *Store) ListDoctorsBySpecialty(ctx context.Context, specialty string) ([]*models.Doctor, error) {
	res, err := surrealdb.Query[[]*models.Doctor](ctx, s.db,
		"SELECT * FROM doctors WHERE specialty = $specialty ORDER BY name ASC",
		map[string]any{"specialty": specialty})
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	return rows(res), nil
}

func (s *Store) CountDoctors(ctx context.Context) (int64, error) {
	return s.countTable(ctx, "doctors")
}

// Appointment operations

func (s *Store) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	if appt.ID.IsZero() {
		appt.ID = models.NewAppointmentID()
	}
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
	if _, err := surrealdb.Create[models.Appointment](ctx, s.db, "appointments", appt); err != nil {
		return apperrors.Classify(fmt.Errorf("failed to create appointment: %w", err))
	}
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id models.AppointmentID) (*models.Appointment, error) {
	appt, err := surrealdb.Select[models.Appointment](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, apperrors.Classify(err)
	}
	return appt, nil
}

func (s *Store) UpdateAppointment(ctx context.Context, appt *models.Appointment) error {
	if appt.ID.IsZero() {
		return apperrors.Validation("appointment ID is required for update")
	}
	appt.UpdatedAt = time.Now()
	if _, err := surrealdb.Update[models.Appointment](ctx, s.db, appt.ID.RecordID(), appt); err != nil {
		return apperrors.Classify(fmt.Errorf("failed to update appointment: %w", err))
	}
	return nil
}

func (s *Store) DeleteAppointment(ctx context.Context, id models.AppointmentID) error {
	if _, err := surrealdb.Delete[models.Appointment](ctx, s.db, id.RecordID()); err != nil {
		return apperrors.Classify(err)
	}
	return nil
}

func (s *Store) ListAppointmentsByUser(ctx context.Context, userID models.UserID) ([]*models.Appointment, error) {
	res, err := surrealdb.Query[[]*models.Appointment](ctx, s.db,
		"SELECT * FROM appointments WHERE user_id = $user ORDER BY starts_at ASC",
		map[string]any{"user": userID.RecordID()})
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	return rows(res), nil
}

func (s *Store) ListAppointmentsByDoctor(ctx context.Context, doctorID models.DoctorID) ([]*models.Appointment, error) {
	res, err := surrealdb.Query[[]*models.Appointment](ctx, s.db,
		"SELECT * FROM appointments WHERE doctor_id = $doctor ORDER BY starts_at ASC",
		map[string]any{"doctor": doctorID.RecordID()})
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	return rows(res), nil
}

func (s *Store) CountAppointments(ctx context.Context) (int64, error) {
	return s.countTable(ctx, "appointments")
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
	if rating.ID.IsZero() {
		rating.ID = models.NewRatingID()
	}
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = time.Now()
	}
	if _, err := surrealdb.Create[models.Rating](ctx, s.db, "ratings", rating); err != nil {
		return apperrors.Classify(fmt.Errorf("failed to create rating: %w", err))
	}
	return nil
}

func (s *Store) GetRating(ctx context.Context, id models.RatingID) (*models.Rating, error) {
	rating, err := surrealdb.Select[models.Rating](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, apperrors.Classify(err)
	}
	return rating, nil
}

func (s *Store) GetRatingByAppointment(ctx context.Context, apptID models.AppointmentID) (*models.Rating, error) {
	res, err := surrealdb.Query[[]*models.Rating](ctx, s.db,
		"SELECT * FROM ratings WHERE appointment_id = $appt LIMIT 1",
		map[string]any{"appt": apptID.RecordID()})
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	list := rows(res)
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) ListRatingsByDoctor(ctx context.Context, doctorID models.DoctorID) ([]*models.Rating, error) {
	res, err := surrealdb.Query[[]*models.Rating](ctx, s.db,
		"SELECT * FROM ratings WHERE doctor_id = $doctor ORDER BY created_at DESC",
		map[string]any{"doctor": doctorID.RecordID()})
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	return rows(res), nil
}

func (s *Store) CountRatings(ctx context.Context) (int64, error) {
	return s.countTable(ctx, "ratings")
}

// Notification operations

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = models.NewNotificationID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.Type == "" {
		n.Type = models.NotificationGeneral
	}
	if _, err := surrealdb.Create[models.Notification](ctx, s.db, "notifications", n); err != nil {
		return apperrors.Classify(fmt.Errorf("failed to create notification: %w", err))
	}
	return nil
}

func (s *Store) GetNotification(ctx context.Context, id models.NotificationID) (*models.Notification, error) {
	n, err := surrealdb.Select[models.Notification](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, apperrors.Classify(err)
	}
	return n, nil
}

func (s *Store) ListNotificationsByUser(ctx context.Context, userID models.UserID) ([]*models.Notification, error) {
	res, err := surrealdb.Query[[]*models.Notification](ctx, s.db,
		"SELECT * FROM notifications WHERE user_id = $user ORDER BY created_at DESC",
		map[string]any{"user": userID.RecordID()})
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	return rows(res), nil
}

func (s *Store) ListUnreadNotificationsByUser(ctx context.Context, userID models.UserID) ([]*models.Notification, error) {
	res, err := surrealdb.Query[[]*models.Notification](ctx, s.db,
		"SELECT * FROM notifications WHERE user_id = $user AND read = false ORDER BY created_at DESC",
		map[string]any{"user": userID.RecordID()})
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	return rows(res), nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id models.NotificationID) error {
	if _, err := surrealdb.Merge[models.Notification](ctx, s.db, id.RecordID(),
		map[string]any{"read": true}); err != nil {
		return apperrors.Classify(err)
	}
	return nil
}

// MarkAllNotificationsRead flips every unread notification of a user in a
// single statement, the batch equivalent of MarkNotificationRead.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID models.UserID) error {
	_, err := surrealdb.Query[any](ctx, s.db,
		"UPDATE notifications SET read = true WHERE user_id = $user AND read = false",
		map[string]any{"user": userID.RecordID()})
	if err != nil {
		return apperrors.Classify(err)
	}
	return nil
}

func (s *Store) DeleteReadNotifications(ctx context.Context, userID models.UserID) error {
	_, err := surrealdb.Query[any](ctx, s.db,
		"DELETE notifications WHERE user_id = $user AND read = true",
		map[string]any{"user": userID.RecordID()})
	if err != nil {
		return apperrors.Classify(err)
	}
	return nil
}

func (s *Store) CountNotifications(ctx context.Context) (int64, error) {
	return s.countTable(ctx, "notifications")
}

// AuthenticateUser checks credentials against the stored user document.
func (s *Store) AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, apperrors.InvalidCredentials()
	}
	if err := compareHash(user.PasswordHash, password); err != nil {
		return nil, apperrors.InvalidCredentials()
	}
	return user, nil
}
