// Package models defines the domain entities shared by every store backend
// and by the HTTP layer. The local relational store and the remote document
// store each keep their own storage representations and convert at the
// boundary, so nothing here carries backend-specific tags.
package models

import (
	"strings"
	"time"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

// ParseAppointmentStatus normalizes a status string. Unknown values map to
// StatusPending so that records written by older clients stay readable.
func ParseAppointmentStatus(s string) AppointmentStatus {
	switch AppointmentStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusConfirmed:
		return StatusConfirmed
	case StatusCompleted:
		return StatusCompleted
	case StatusCancelled:
		return StatusCancelled
	case StatusRescheduled:
		return StatusRescheduled
	default:
		return StatusPending
	}
}

// Valid reports whether the status is one of the defined lifecycle states.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

// Active reports whether the appointment still occupies its slot. Completed
// and cancelled appointments free the slot and become ratable or inert.
func (s AppointmentStatus) Active() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRescheduled:
		return true
	}
	return false
}

// NotificationType categorizes a notification for display and filtering.
type NotificationType string

const (
	NotificationAppointmentConfirmed   NotificationType = "appointment_confirmed"
	NotificationAppointmentCancelled   NotificationType = "appointment_cancelled"
	NotificationAppointmentRescheduled NotificationType = "appointment_rescheduled"
	NotificationReminder               NotificationType = "reminder"
	NotificationGeneral                NotificationType = "general"
)

// User is a patient account. PasswordHash is only populated by the local
// store; the remote store delegates credentials to its auth service and
// never persists the hash.
type User struct {
	ID           UserID    `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Doctor is a bookable practitioner. Rating and RatingCount are denormalized
// aggregates maintained by the stores when a rating is submitted.
type Doctor struct {
	ID           DoctorID  `json:"id"`
	Name         string    `json:"name"`
	Specialty    string    `json:"specialty"`
	Experience   string    `json:"experience"`
	Availability string    `json:"availability"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	Rating       float64   `json:"rating"`
	RatingCount  int       `json:"rating_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Appointment links a user to a doctor at a point in time.
type Appointment struct {
	ID        AppointmentID     `json:"id"`
	UserID    UserID            `json:"user_id"`
	DoctorID  DoctorID          `json:"doctor_id"`
	StartsAt  time.Time         `json:"starts_at"`
	Status    AppointmentStatus `json:"status"`
	Notes     string            `json:"notes,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Rating is a user's score for a completed appointment. At most one rating
// exists per appointment; Score is constrained to 1 through 5.
type Rating struct {
	ID            RatingID      `json:"id"`
	UserID        UserID        `json:"user_id"`
	DoctorID      DoctorID      `json:"doctor_id"`
	AppointmentID AppointmentID `json:"appointment_id"`
	Score         int           `json:"score"`
	Comment       string        `json:"comment,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ValidScore reports whether s is an acceptable rating score.
func ValidScore(s int) bool { return s >= 1 && s <= 5 }

// Notification is a message delivered to a user, usually tied to an
// appointment lifecycle event. AppointmentID is nil for general messages.
type Notification struct {
	ID            NotificationID   `json:"id"`
	UserID        UserID           `json:"user_id"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	Type          NotificationType `json:"type"`
	Read          bool             `json:"read"`
	AppointmentID *AppointmentID   `json:"appointment_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}
