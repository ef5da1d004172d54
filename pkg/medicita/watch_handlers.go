package medicita

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/medicita/medicita/pkg/models"
	"github.com/medicita/medicita/pkg/store/surreal"
)

// liveWatcher streams change events from the document store's live queries.
// Satisfied by the SurrealDB store.
type liveWatcher interface {
	WatchDoctors(ctx context.Context) (<-chan surreal.Event, error)
	WatchUserAppointments(ctx context.Context, userID models.UserID) (<-chan surreal.Event, error)
}

// handleWatchDoctors streams doctor changes as server-sent events until the
// client disconnects.
func (a *App) handleWatchDoctors(w http.ResponseWriter, r *http.Request) {
	if a.live == nil || !a.servingRemote() {
		respondError(w, http.StatusServiceUnavailable, "live updates require the remote store")
		return
	}
	events, err := a.live.WatchDoctors(r.Context())
	if err != nil {
		a.respondAppError(w, err)
		return
	}
	a.streamEvents(w, r, events)
}

// handleWatchAppointments streams the caller's appointment changes as
// server-sent events.
func (a *App) handleWatchAppointments(w http.ResponseWriter, r *http.Request) {
	if a.live == nil || !a.servingRemote() {
		respondError(w, http.StatusServiceUnavailable, "live updates require the remote store")
		return
	}
	events, err := a.live.WatchUserAppointments(r.Context(), currentUserID(r))
	if err != nil {
		a.respondAppError(w, err)
		return
	}
	a.streamEvents(w, r, events)
}

// streamEvents writes each event as an SSE frame and flushes immediately.
// Returns when the channel closes or the client goes away.
func (a *App) streamEvents(w http.ResponseWriter, r *http.Request, events <-chan surreal.Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev.Data)
			if err != nil {
				a.log.Error().Err(err).Msg("failed to encode live event")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Action, data)
			flusher.Flush()
		}
	}
}
