package medicita

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Run starts the HTTP server and blocks until the context is cancelled or
// the server fails. On cancellation, in-flight requests get five seconds to
// complete.
//
// # API Endpoints
//
// Health:
//
//	GET  /health                          - Service health status
//
// Authentication:
//
//	POST /api/auth/register               - Register a new account
//	POST /api/auth/login                  - Sign in, returns a bearer token
//	POST /api/auth/logout                 - Sign out
//	GET  /api/auth/me                     - Current account (auth)
//
// Doctors (public):
//
//	GET  /api/doctors                     - List doctors, ?specialty= filters
//	GET  /api/doctors/watch               - Live doctor changes (SSE, remote store only)
//	GET  /api/doctors/{id}                - Doctor detail
//	GET  /api/doctors/{id}/ratings        - Ratings for a doctor
//
// Appointments (auth):
//
//	POST /api/appointments                - Book an appointment
//	GET  /api/appointments                - List own appointments
//	GET  /api/appointments/watch          - Live changes to own appointments (SSE, auth)
//	GET  /api/appointments/{id}           - Appointment detail
//	POST /api/appointments/{id}/cancel    - Cancel
//	POST /api/appointments/{id}/reschedule - Move to a new time
//	GET  /api/appointments/{id}/can-rate  - Whether a rating may be submitted
//
// Ratings (auth):
//
//	POST /api/ratings                     - Rate a completed appointment
//
// Notifications (auth):
//
//	GET    /api/notifications             - List own notifications
//	GET    /api/notifications/unread      - Unread only
//	POST   /api/notifications/{id}/read   - Mark one read
//	POST   /api/notifications/read-all    - Mark all read
//	DELETE /api/notifications/read        - Delete read notifications
//
// Migration (auth):
//
//	POST /api/migration/start             - Run the local to remote migration
//	POST /api/migration/skip              - Mark migration completed without running
//	GET  /api/migration/status            - Current status and last result
func (a *App) Run(ctx context.Context, cmd *RunCommand) error {
	if err := a.local.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to prepare local schema: %w", err)
	}

	router := a.router()

	addr := fmt.Sprintf(":%s", a.config.ServerPort)
	a.log.Info().Str("addr", addr).Msg("starting server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

// router assembles the full HTTP route table.
func (a *App) router() *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()

	router.HandleFunc("/health", a.handleHealth).Methods("GET")
	api.HandleFunc("/health", a.handleHealth).Methods("GET")

	api.HandleFunc("/auth/register", a.handleRegister).Methods("POST")
	api.HandleFunc("/auth/login", a.handleLogin).Methods("POST")
	api.HandleFunc("/auth/logout", a.requireAuth(a.handleLogout)).Methods("POST")
	api.HandleFunc("/auth/me", a.requireAuth(a.handleCurrentUser)).Methods("GET")

	api.HandleFunc("/doctors", a.handleListDoctors).Methods("GET")
	// The watch route must register before the {id} pattern.
	api.HandleFunc("/doctors/watch", a.handleWatchDoctors).Methods("GET")
	api.HandleFunc("/doctors/{id}", a.handleGetDoctor).Methods("GET")
	api.HandleFunc("/doctors/{id}/ratings", a.handleListDoctorRatings).Methods("GET")

	api.HandleFunc("/appointments", a.requireAuth(a.handleCreateAppointment)).Methods("POST")
	api.HandleFunc("/appointments", a.requireAuth(a.handleListAppointments)).Methods("GET")
	api.HandleFunc("/appointments/watch", a.requireAuth(a.handleWatchAppointments)).Methods("GET")
	api.HandleFunc("/appointments/{id}", a.requireAuth(a.handleGetAppointment)).Methods("GET")
	api.HandleFunc("/appointments/{id}/cancel", a.requireAuth(a.handleCancelAppointment)).Methods("POST")
	api.HandleFunc("/appointments/{id}/reschedule", a.requireAuth(a.handleRescheduleAppointment)).Methods("POST")
	api.HandleFunc("/appointments/{id}/can-rate", a.requireAuth(a.handleCanRate)).Methods("GET")

	api.HandleFunc("/ratings", a.requireAuth(a.handleCreateRating)).Methods("POST")

	api.HandleFunc("/notifications", a.requireAuth(a.handleListNotifications)).Methods("GET")
	api.HandleFunc("/notifications/unread", a.requireAuth(a.handleListUnreadNotifications)).Methods("GET")
	api.HandleFunc("/notifications/read-all", a.requireAuth(a.handleMarkAllNotificationsRead)).Methods("POST")
	api.HandleFunc("/notifications/read", a.requireAuth(a.handleDeleteReadNotifications)).Methods("DELETE")
	api.HandleFunc("/notifications/{id}/read", a.requireAuth(a.handleMarkNotificationRead)).Methods("POST")

	api.HandleFunc("/migration/start", a.requireAuth(a.handleMigrationStart)).Methods("POST")
	api.HandleFunc("/migration/skip", a.requireAuth(a.handleMigrationSkip)).Methods("POST")
	api.HandleFunc("/migration/status", a.requireAuth(a.handleMigrationStatus)).Methods("GET")

	return router
}
