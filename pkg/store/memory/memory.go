// Package memory provides an in-memory store.Store used by tests. Behavior
// mirrors the production stores: Get misses return (nil, nil), emails and
// per-appointment ratings are unique, and listings are ordered the same way.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/medicita/medicita/pkg/apperrors"
	"github.com/medicita/medicita/pkg/models"
	"github.com/medicita/medicita/pkg/store"
)

// Store is a mutex-guarded map-backed implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	users         map[string]*models.User
	doctors       map[string]*models.Doctor
	appointments  map[string]*models.Appointment
	ratings       map[string]*models.Rating
	notifications map[string]*models.Notification

	nextID int64
}

var (
	_ store.Store         = (*Store)(nil)
	_ store.Authenticator = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:         make(map[string]*models.User),
		doctors:       make(map[string]*models.Doctor),
		appointments:  make(map[string]*models.Appointment),
		ratings:       make(map[string]*models.Rating),
		notifications: make(map[string]*models.Notification),
	}
}

// nextKey mimics the local store's auto-incrementing keys so migration
// tests exercise the decimal id form.
func (s *Store) nextKey() string {
	s.nextID++
	return strconv.FormatInt(s.nextID, 10)
}

// idLess orders decimal ids numerically, so "2" sorts before "10". Ids that
// are not decimal sort after the numeric ones, by string.
func idLess(a, b string) bool {
	an, aerr := strconv.ParseInt(a, 10, 64)
	bn, berr := strconv.ParseInt(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		return an < bn
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}

func (s *Store) Close(ctx context.Context) error { return nil }

// User operations

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return apperrors.AlreadyExists("user", "an account with this email already exists")
		}
	}
	if user.ID.IsZero() {
		id, _ := models.ParseUserID(s.nextKey())
		user.ID = id
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	cp := *user
	s.users[user.ID.String()] = &cp
	return nil
}

func (s *Store) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id.String()]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID.String()]; !ok {
		return apperrors.NotFound("user", "user does not exist")
	}
	cp := *user
	s.users[user.ID.String()] = &cp
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

// AuthenticateUser matches the production stores' bcrypt check.
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
	s.mu.Lock()
	defer s.mu.Unlock()
	if doctor.ID.IsZero() {
		id, _ := models.ParseDoctorID(s.nextKey())
		doctor.ID = id
	}
	if doctor.CreatedAt.IsZero() {
		doctor.CreatedAt = time.Now()
	}
	cp := *doctor
	s.doctors[doctor.ID.String()] = &cp
	return nil
}

func (s *Store) GetDoctor(ctx context.Context, id models.DoctorID) (*models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doctors[id.String()]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (s *Store) UpdateDoctor(ctx context.Context, doctor *models.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doctors[doctor.ID.String()]; !ok {
		return apperrors.NotFound("doctor", "doctor does not exist")
	}
	cp := *doctor
	s.doctors[doctor.ID.String()] = &cp
	return nil
}

func (s *Store) ListDoctors(ctx context.Context) ([]*models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Doctor, 0, len(s.doctors))
	for _, d := range s.doctors {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListDoctorsBySpecialty(ctx context.Context, specialty string) ([]*models.Doctor, error) {
	all, _ := s.ListDoctors(ctx)
	out := all[:0]
	for _, d := range all {
		if d.Specialty == specialty {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) CountDoctors(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.doctors)), nil
}

// Appointment operations

func (s *Store) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if appt.ID.IsZero() {
		id, _ := models.ParseAppointmentID(s.nextKey())
		appt.ID = id
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
	cp := *appt
	s.appointments[appt.ID.String()] = &cp
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id models.AppointmentID) (*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id.String()]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *Store) UpdateAppointment(ctx context.Context, appt *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[appt.ID.String()]; !ok {
		return apperrors.NotFound("appointment", "appointment does not exist")
	}
	appt.UpdatedAt = time.Now()
	cp := *appt
	s.appointments[appt.ID.String()] = &cp
	return nil
}

func (s *Store) DeleteAppointment(ctx context.Context, id models.AppointmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.appointments, id.String())
	return nil
}

func (s *Store) ListAppointmentsByUser(ctx context.Context, userID models.UserID) ([]*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Appointment
	for _, a := range s.appointments {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (s *Store) ListAppointmentsByDoctor(ctx context.Context, doctorID models.DoctorID) ([]*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Appointment
	for _, a := range s.appointments {
		if a.DoctorID == doctorID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (s *Store) CountAppointments(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.appointments)), nil
}

// ListAllAppointments returns every appointment, ordered by id, matching the
// local store's migration read path.
func (s *Store) ListAllAppointments(ctx context.Context) ([]*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Appointment, 0, len(s.appointments))
	for _, a := range s.appointments {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID.String(), out[j].ID.String()) })
	return out, nil
}

// Rating operations

func (s *Store) CreateRating(ctx context.Context, rating *models.Rating) error {
	if !models.ValidScore(rating.Score) {
		return apperrors.Validation("score must be between 1 and 5")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.ratings {
		if r.AppointmentID == rating.AppointmentID {
			return apperrors.New(apperrors.CodeAlreadyRated, "rating",
				"this appointment has already been rated", 409)
		}
	}
	if rating.ID.IsZero() {
		id, _ := models.ParseRatingID(s.nextKey())
		rating.ID = id
	}
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = time.Now()
	}
	cp := *rating
	s.ratings[rating.ID.String()] = &cp
	return nil
}

func (s *Store) GetRating(ctx context.Context, id models.RatingID) (*models.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.ratings[id.String()]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *Store) GetRatingByAppointment(ctx context.Context, apptID models.AppointmentID) (*models.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.ratings {
		if r.AppointmentID == apptID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListRatingsByDoctor(ctx context.Context, doctorID models.DoctorID) ([]*models.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Rating
	for _, r := range s.ratings {
		if r.DoctorID == doctorID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CountRatings(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.ratings)), nil
}

// ListAllRatings returns every rating.
func (s *Store) ListAllRatings(ctx context.Context) ([]*models.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Rating, 0, len(s.ratings))
	for _, r := range s.ratings {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID.String(), out[j].ID.String()) })
	return out, nil
}

// Notification operations

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID.IsZero() {
		id, _ := models.ParseNotificationID(s.nextKey())
		n.ID = id
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.Type == "" {
		n.Type = models.NotificationGeneral
	}
	cp := *n
	s.notifications[n.ID.String()] = &cp
	return nil
}

func (s *Store) GetNotification(ctx context.Context, id models.NotificationID) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[id.String()]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (s *Store) ListNotificationsByUser(ctx context.Context, userID models.UserID) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListUnreadNotificationsByUser(ctx context.Context, userID models.UserID) ([]*models.Notification, error) {
	all, _ := s.ListNotificationsByUser(ctx, userID)
	out := all[:0]
	for _, n := range all {
		if !n.Read {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id models.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.notifications[id.String()]; ok {
		n.Read = true
	}
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID models.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

// ListAllNotifications returns every notification.
func (s *Store) ListAllNotifications(ctx context.Context) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID.String(), out[j].ID.String()) })
	return out, nil
}

func (s *Store) CountNotifications(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.notifications)), nil
}

func (s *Store) DeleteReadNotifications(ctx context.Context, userID models.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, n := range s.notifications {
		if n.UserID == userID && n.Read {
			delete(s.notifications, id)
		}
	}
	return nil
}
