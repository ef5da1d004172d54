package medicita

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/medicita/medicita/pkg/apperrors"
	"github.com/medicita/medicita/pkg/models"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondAppError renders typed application errors with their HTTP status
// and code; anything else becomes an opaque 500.
func (a *App) respondAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		respondJSON(w, status, map[string]any{"error": appErr})
		return
	}
	a.log.Error().Err(err).Msg("unhandled error")
	respondError(w, http.StatusInternalServerError, "internal error")
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status": "ok",
		"store":  "local",
	}
	if a.servingRemote() {
		status["store"] = "surrealdb"
	}
	if a.migrator != nil {
		status["migration"] = a.migrator.Status().String()
	}
	respondJSON(w, http.StatusOK, status)
}

// Doctor handlers

func (a *App) handleListDoctors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	specialty := r.URL.Query().Get("specialty")

	var (
		doctors []*models.Doctor
		err     error
	)
	if specialty != "" {
		doctors, err = a.store.ListDoctorsBySpecialty(ctx, specialty)
	} else {
		doctors, err = a.store.ListDoctors(ctx)
	}
	if err != nil {
		a.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, doctors)
}

func (a *App) handleGetDoctor(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseDoctorID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid doctor ID")
		return
	}
	doctor, err := a.store.GetDoctor(r.Context(), id)
	if err != nil {
		a.respondAppError(w, err)
		return
	}
	if doctor == nil {
		respondError(w, http.StatusNotFound, "doctor not found")
		return
	}
	respondJSON(w, http.StatusOK, doctor)
}

func (a *App) handleListDoctorRatings(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseDoctorID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid doctor ID")
		return
	}
	ratings, err := a.store.ListRatingsByDoctor(r.Context(), id)
	if err != nil {
		a.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ratings)
}

// Appointment handlers

type createAppointmentRequest struct {
	DoctorID string    `json:"doctor_id"`
	StartsAt time.Time `json:"starts_at"`
	Notes    string    `json:"notes"`
}

func (a *App) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	doctorID, err := models.ParseDoctorID(req.DoctorID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid doctor ID")
		return
	}
	if req.StartsAt.Before(time.Now()) {
		respondError(w, http.StatusBadRequest, "appointment time must be in the future")
		return
	}

	ctx := r.Context()
	doctor, err := a.store.GetDoctor(ctx, doctorID)
	if err != nil {
		a.respondAppError(w, err)
		return
	}
	if doctor == nil {
		respondError(w, http.StatusNotFound, "doctor not found")
		return
	}

	taken, err := a.doctorSlotTaken(ctx, doctorID, req.StartsAt, models.AppointmentID{})
	if err != nil {
		a.respondAppError(w, err)
		return
	}
	if taken {
		respondError(w, http.StatusConflict, "the doctor already has an appointment at this time")
		return
	}

	appt := &models.Appointment{
		UserID:   currentUserID(r),
		DoctorID: doctorID,
		StartsAt: req.StartsAt,
		Status:   models.StatusConfirmed,
		Notes:    req.Notes,
	}
	if err := a.store.CreateAppointment(ctx, appt); err != nil {
		a.respondAppError(w, err)
		return
	}

	a.notify(ctx, appt.UserID, models.NotificationAppointmentConfirmed,
		"Appointment confirmed",
		fmt.Sprintf("Your appointment with %s on %s is confirmed.", doctor.Name, appt.StartsAt.Format("Jan 2 15:04")),
		&appt.ID)

	respondJSON(w, http.StatusCreated, appt)
}

func (a *App) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := a.store.ListAppointmentsByUser(r.Context(), currentUserID(r))
	if err != nil {
		a.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, appts)
}

// doctorSlotTaken reports whether the doctor already has an active
// appointment at the given start time. exclude skips the appointment being
// rescheduled.
func (a *App) doctorSlotTaken(ctx context.Context, doctorID models.DoctorID, startsAt time.Time, exclude models.AppointmentID) (bool, error) {
	existing, err := a.store.ListAppointmentsByDoctor(ctx, doctorID)
	if err != nil {
		return false, err
	}
	for _, other := range existing {
		if other.ID == exclude {
			continue
		}
		if other.Status.Active() && other.StartsAt.Equal(startsAt) {
			return true, nil
		}
	}
	return false, nil
}

// ownAppointment loads an appointment and checks the caller owns it.
func (a *App) ownAppointment(w http.ResponseWriter, r *http.Request) *models.Appointment {
	id, err := models.ParseAppointmentID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid appointment ID")
		return nil
	}
	appt, err := a.store.GetAppointment(r.Context(), id)
	if err != nil {
		a.respondAppError(w, err)
		return nil
	}
	if appt == nil {
		respondError(w, http.StatusNotFound, "appointment not found")
		return nil
	}
	if appt.UserID != currentUserID(r) {
		respondError(w, http.StatusForbidden, "appointment belongs to another user")
		return nil
	}
	return appt
}

func (a *App) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	if appt := a.ownAppointment(w, r); appt != nil {
		respondJSON(w, http.StatusOK, appt)
	}
}

func (a *App) handleCancelAppointment(w http.ResponseWriter, r *http.Request) {
	appt := a.ownAppointment(w, r)
	if appt == nil {
		return
	}
	if !appt.Status.Active() {
		respondError(w, http.StatusConflict, "appointment can no longer be cancelled")
		return
	}

	ctx := r.Context()
	appt.Status = models.StatusCancelled
	if err := a.store.UpdateAppointment(ctx, appt); err != nil {
		a.respondAppError(w, err)
		return
	}

	a.notify(ctx, appt.UserID, models.NotificationAppointmentCancelled,
		"Appointment cancelled",
		fmt.Sprintf("Your appointment on %s was cancelled.", appt.StartsAt.Format("Jan 2 15:04")),
		&appt.ID)

	respondJSON(w, http.StatusOK, appt)
}

type rescheduleRequest struct {
	StartsAt time.Time `json:"starts_at"`
}

func (a *App) handleRescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	appt := a.ownAppointment(w, r)
	if appt == nil {
		return
	}
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.StartsAt.Before(time.Now()) {
		respondError(w, http.StatusBadRequest, "appointment time must be in the future")
		return
	}
	if !appt.Status.Active() {
		respondError(w, http.StatusConflict, "appointment can no longer be rescheduled")
		return
	}

	ctx := r.Context()
	taken, err := a.doctorSlotTaken(ctx, appt.DoctorID, req.StartsAt, appt.ID)
	if err != nil {
		a.respondAppError(w, err)
		return
	}
	if taken {
		respondError(w, http.StatusConflict, "the doctor already has an appointment at this time")
		return
	}

	appt.StartsAt = req.StartsAt
	appt.Status = models.StatusRescheduled
	if err := a.store.UpdateAppointment(ctx, appt); err != nil {
		a.respondAppError(w, err)
		return
	}

	a.notify(ctx, appt.UserID, models.NotificationAppointmentRescheduled,
		"Appointment rescheduled",
		fmt.Sprintf("Your appointment was moved to %s.", appt.StartsAt.Format("Jan 2 15:04")),
		&appt.ID)

	respondJSON(w, http.StatusOK, appt)
}

func (a *App) handleCanRate(w http.ResponseWriter, r *http.Request) {
	appt := a.ownAppointment(w, r)
	if appt == nil {
		return
	}
	if appt.Status != models.StatusCompleted {
		respondJSON(w, http.StatusOK, map[string]any{
			"can_rate": false,
			"reason":   "appointment is not completed",
		})
		return
	}
	existing, err := a.store.GetRatingByAppointment(r.Context(), appt.ID)
	if err != nil {
		a.respondAppError(w, err)
		return
	}
	if existing != nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"can_rate": false,
			"reason":   "appointment already rated",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"can_rate": true})
}

// Rating handlers

type createRatingRequest struct {
	AppointmentID string `json:"appointment_id"`
	Score         int    `json:"score"`
	Comment       string `json:"comment"`
}

// handleCreateRating stores the rating, then folds it into the doctor's
// denormalized aggregate in a second write.
func (a *App) handleCreateRating(w http.ResponseWriter, r *http.Request) {
	var req createRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	apptID, err := models.ParseAppointmentID(req.AppointmentID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid appointment ID")
		return
	}

	ctx := r.Context()
	appt, err := a.store.GetAppointment(ctx, apptID)
	if err != nil {
		a.respondAppError(w, err)
		return
	}
	if appt == nil {
		respondError(w, http.StatusNotFound, "appointment not found")
		return
	}
	if appt.UserID != currentUserID(r) {
		respondError(w, http.StatusForbidden, "appointment belongs to another user")
		return
	}
	if appt.Status != models.StatusCompleted {
		respondError(w, http.StatusConflict, "only completed appointments can be rated")
		return
	}

	rating := &models.Rating{
		UserID:        appt.UserID,
		DoctorID:      appt.DoctorID,
		AppointmentID: appt.ID,
		Score:         req.Score,
		Comment:       req.Comment,
	}
	if err := a.store.CreateRating(ctx, rating); err != nil {
		a.respondAppError(w, err)
		return
	}

	if err := a.applyRatingToDoctor(ctx, rating); err != nil {
		// The rating itself is stored; the aggregate catches up on the
		// next successful rating.
		a.log.Error().Err(err).Str("doctor", rating.DoctorID.String()).
			Msg("failed to update doctor rating aggregate")
	}

	respondJSON(w, http.StatusCreated, rating)
}

// applyRatingToDoctor recomputes the doctor's average from the stored
// aggregate and the new score.
func (a *App) applyRatingToDoctor(ctx context.Context, rating *models.Rating) error {
	doctor, err := a.store.GetDoctor(ctx, rating.DoctorID)
	if err != nil {
		return err
	}
	if doctor == nil {
		return apperrors.NotFound("doctor", "doctor does not exist")
	}
	total := doctor.Rating*float64(doctor.RatingCount) + float64(rating.Score)
	doctor.RatingCount++
	doctor.Rating = total / float64(doctor.RatingCount)
	return a.store.UpdateDoctor(ctx, doctor)
}

// Notification handlers

func (a *App) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	notifs, err := a.store.ListNotificationsByUser(r.Context(), currentUserID(r))
	if err != nil {
		a.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, notifs)
}

func (a *App) handleListUnreadNotifications(w http.ResponseWriter, r *http.Request) {
	notifs, err := a.store.ListUnreadNotificationsByUser(r.Context(), currentUserID(r))
	if err != nil {
		a.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, notifs)
}

func (a *App) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseNotificationID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid notification ID")
		return
	}
	ctx := r.Context()
	notif, err := a.store.GetNotification(ctx, id)
	if err != nil {
		a.respondAppError(w, err)
		return
	}
	if notif == nil {
		respondError(w, http.StatusNotFound, "notification not found")
		return
	}
	if notif.UserID != currentUserID(r) {
		respondError(w, http.StatusForbidden, "notification belongs to another user")
		return
	}
	if err := a.store.MarkNotificationRead(ctx, id); err != nil {
		a.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (a *App) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if err := a.store.MarkAllNotificationsRead(r.Context(), currentUserID(r)); err != nil {
		a.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "all read"})
}

func (a *App) handleDeleteReadNotifications(w http.ResponseWriter, r *http.Request) {
	if err := a.store.DeleteReadNotifications(r.Context(), currentUserID(r)); err != nil {
		a.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// notify writes an appointment lifecycle notification. Failures are logged,
// not surfaced: the primary operation already succeeded.
func (a *App) notify(ctx context.Context, userID models.UserID, typ models.NotificationType, title, message string, apptID *models.AppointmentID) {
	n := &models.Notification{
		UserID:        userID,
		Title:         title,
		Message:       message,
		Type:          typ,
		AppointmentID: apptID,
	}
	if err := a.store.CreateNotification(ctx, n); err != nil {
		a.log.Error().Err(err).Str("type", string(typ)).Msg("failed to create notification")
	}
}
