package local

import (
	"fmt"
	"time"

	"github.com/medicita/medicita/pkg/models"
)

// Row types are the relational representation of the domain entities. Keys
// are auto-incrementing integers; the domain layer sees them as decimal
// strings through the typed IDs, which is also the document id a record
// keeps when migrated to the remote store.
//
// Conversion is explicit in both directions. A domain entity whose ID is not
// decimal text cannot live in this store and the mapping fails rather than
// silently renumbering the record.
//
// Foreign keys cascade deletes, so removing a user or doctor removes their
// dependent rows. A notification outlives its appointment with the reference
// nulled out. The association structs exist only to declare constraints; the
// store never preloads them and zero-value associations are skipped on
// create.

type userRow struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	FullName     string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

type doctorRow struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"not null"`
	Specialty    string `gorm:"index;not null"`
	Experience   string
	Availability string
	PhotoURL     string
	Rating       float64 `gorm:"default:0"`
	RatingCount  int     `gorm:"default:0"`
	CreatedAt    time.Time
}

func (doctorRow) TableName() string { return "doctors" }

type appointmentRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    int64     `gorm:"index;not null"`
	User      userRow   `gorm:"constraint:OnDelete:CASCADE"`
	DoctorID  int64     `gorm:"index;not null"`
	Doctor    doctorRow `gorm:"constraint:OnDelete:CASCADE"`
	StartsAt  time.Time
	Status    string `gorm:"not null"`
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (appointmentRow) TableName() string { return "appointments" }

type ratingRow struct {
	ID            int64          `gorm:"primaryKey;autoIncrement"`
	UserID        int64          `gorm:"index;not null"`
	User          userRow        `gorm:"constraint:OnDelete:CASCADE"`
	DoctorID      int64          `gorm:"index;not null"`
	Doctor        doctorRow      `gorm:"constraint:OnDelete:CASCADE"`
	AppointmentID int64          `gorm:"uniqueIndex;not null"`
	Appointment   appointmentRow `gorm:"constraint:OnDelete:CASCADE"`
	Score         int            `gorm:"not null"`
	Comment       string
	CreatedAt     time.Time
}

func (ratingRow) TableName() string { return "ratings" }

type notificationRow struct {
	ID            int64   `gorm:"primaryKey;autoIncrement"`
	UserID        int64   `gorm:"index;not null"`
	User          userRow `gorm:"constraint:OnDelete:CASCADE"`
	Title         string
	Message       string
	Type          string `gorm:"not null"`
	Read          bool   `gorm:"index;default:false"`
	AppointmentID *int64
	Appointment   *appointmentRow `gorm:"constraint:OnDelete:SET NULL"`
	CreatedAt     time.Time
}

func (notificationRow) TableName() string { return "notifications" }

func rowFromUser(u *models.User) (*userRow, error) {
	row := &userRow{
		FullName:     u.FullName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
	if !u.ID.IsZero() {
		n, err := u.ID.Int64()
		if err != nil {
			return nil, fmt.Errorf("user not representable locally: %w", err)
		}
		row.ID = n
	}
	return row, nil
}

func (r *userRow) toModel() *models.User {
	return &models.User{
		ID:           models.UserIDFromInt64(r.ID),
		FullName:     r.FullName,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

func rowFromDoctor(d *models.Doctor) (*doctorRow, error) {
	row := &doctorRow{
		Name:         d.Name,
		Specialty:    d.Specialty,
		Experience:   d.Experience,
		Availability: d.Availability,
		PhotoURL:     d.PhotoURL,
		Rating:       d.Rating,
		RatingCount:  d.RatingCount,
		CreatedAt:    d.CreatedAt,
	}
	if !d.ID.IsZero() {
		n, err := d.ID.Int64()
		if err != nil {
			return nil, fmt.Errorf("doctor not representable locally: %w", err)
		}
		row.ID = n
	}
	return row, nil
}

func (r *doctorRow) toModel() *models.Doctor {
	return &models.Doctor{
		ID:           models.DoctorIDFromInt64(r.ID),
		Name:         r.Name,
		Specialty:    r.Specialty,
		Experience:   r.Experience,
		Availability: r.Availability,
		PhotoURL:     r.PhotoURL,
		Rating:       r.Rating,
		RatingCount:  r.RatingCount,
		CreatedAt:    r.CreatedAt,
	}
}

func rowFromAppointment(a *models.Appointment) (*appointmentRow, error) {
	userID, err := a.UserID.Int64()
	if err != nil {
		return nil, fmt.Errorf("appointment not representable locally: %w", err)
	}
	doctorID, err := a.DoctorID.Int64()
	if err != nil {
		return nil, fmt.Errorf("appointment not representable locally: %w", err)
	}
	row := &appointmentRow{
		UserID:    userID,
		DoctorID:  doctorID,
		StartsAt:  a.StartsAt,
		Status:    string(a.Status),
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if !a.ID.IsZero() {
		n, err := a.ID.Int64()
		if err != nil {
			return nil, fmt.Errorf("appointment not representable locally: %w", err)
		}
		row.ID = n
	}
	return row, nil
}

func (r *appointmentRow) toModel() *models.Appointment {
	return &models.Appointment{
		ID:        models.AppointmentIDFromInt64(r.ID),
		UserID:    models.UserIDFromInt64(r.UserID),
		DoctorID:  models.DoctorIDFromInt64(r.DoctorID),
		StartsAt:  r.StartsAt,
		Status:    models.ParseAppointmentStatus(r.Status),
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func rowFromRating(rt *models.Rating) (*ratingRow, error) {
	userID, err := rt.UserID.Int64()
	if err != nil {
		return nil, fmt.Errorf("rating not representable locally: %w", err)
	}
	doctorID, err := rt.DoctorID.Int64()
	if err != nil {
		return nil, fmt.Errorf("rating not representable locally: %w", err)
	}
	apptID, err := rt.AppointmentID.Int64()
	if err != nil {
		return nil, fmt.Errorf("rating not representable locally: %w", err)
	}
	row := &ratingRow{
		UserID:        userID,
		DoctorID:      doctorID,
		AppointmentID: apptID,
		Score:         rt.Score,
		Comment:       rt.Comment,
		CreatedAt:     rt.CreatedAt,
	}
	if !rt.ID.IsZero() {
		n, err := rt.ID.Int64()
		if err != nil {
			return nil, fmt.Errorf("rating not representable locally: %w", err)
		}
		row.ID = n
	}
	return row, nil
}

func (r *ratingRow) toModel() *models.Rating {
	return &models.Rating{
		ID:            models.RatingIDFromInt64(r.ID),
		UserID:        models.UserIDFromInt64(r.UserID),
		DoctorID:      models.DoctorIDFromInt64(r.DoctorID),
		AppointmentID: models.AppointmentIDFromInt64(r.AppointmentID),
		Score:         r.Score,
		Comment:       r.Comment,
		CreatedAt:     r.CreatedAt,
	}
}

func rowFromNotification(n *models.Notification) (*notificationRow, error) {
	userID, err := n.UserID.Int64()
	if err != nil {
		return nil, fmt.Errorf("notification not representable locally: %w", err)
	}
	row := &notificationRow{
		UserID:    userID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
	if n.AppointmentID != nil {
		apptID, err := n.AppointmentID.Int64()
		if err != nil {
			return nil, fmt.Errorf("notification not representable locally: %w", err)
		}
		row.AppointmentID = &apptID
	}
	if !n.ID.IsZero() {
		v, err := n.ID.Int64()
		if err != nil {
			return nil, fmt.Errorf("notification not representable locally: %w", err)
		}
		row.ID = v
	}
	return row, nil
}

func (r *notificationRow) toModel() *models.Notification {
	n := &models.Notification{
		ID:        models.NotificationIDFromInt64(r.ID),
		UserID:    models.UserIDFromInt64(r.UserID),
		Title:     r.Title,
		Message:   r.Message,
		Type:      models.NotificationType(r.Type),
		Read:      r.Read,
		CreatedAt: r.CreatedAt,
	}
	if r.AppointmentID != nil {
		id := models.AppointmentIDFromInt64(*r.AppointmentID)
		n.AppointmentID = &id
	}
	return n
}
