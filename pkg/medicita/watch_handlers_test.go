package medicita

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicita/medicita/pkg/models"
	"github.com/medicita/medicita/pkg/store/surreal"
)

// fakeLive replays a fixed list of events and closes the stream.
type fakeLive struct {
	events []surreal.Event
}

func (f *fakeLive) WatchDoctors(context.Context) (<-chan surreal.Event, error) {
	return f.stream(), nil
}

func (f *fakeLive) WatchUserAppointments(context.Context, models.UserID) (<-chan surreal.Event, error) {
	return f.stream(), nil
}

func (f *fakeLive) stream() <-chan surreal.Event {
	ch := make(chan surreal.Event, len(f.events))
	for _, ev := range f.events {
		ch <- ev
	}
	close(ch)
	return ch
}

func TestWatchDoctorsStreamsEvents(t *testing.T) {
	app, _ := newTestApp(t)
	app.live = &fakeLive{events: []surreal.Event{
		{Action: "create", Data: map[string]any{"name": "Dr. Ruiz"}},
		{Action: "update", Data: map[string]any{"name": "Dr. Ruiz", "rating": 4.5}},
	}}
	app.remoteActive = true
	router := app.router()

	rec := doRequest(t, router, "GET", "/api/doctors/watch", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: create\n")
	assert.Contains(t, body, "event: update\n")
	assert.Contains(t, body, `"name":"Dr. Ruiz"`)
	assert.Equal(t, 2, strings.Count(body, "data: "))
}

func TestWatchAppointmentsStreamsOwnEvents(t *testing.T) {
	app, _ := newTestApp(t)
	app.live = &fakeLive{events: []surreal.Event{
		{Action: "update", Data: map[string]any{"status": "confirmed"}},
	}}
	app.remoteActive = true
	router := app.router()

	token, _ := registerUser(t, router, "Ana", "ana@example.com")
	rec := doRequest(t, router, "GET", "/api/appointments/watch", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"status":"confirmed"`)
}

func TestWatchAppointmentsRequiresAuth(t *testing.T) {
	app, _ := newTestApp(t)
	app.live = &fakeLive{}
	app.remoteActive = true
	router := app.router()

	rec := doRequest(t, router, "GET", "/api/appointments/watch", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWatchUnavailableWithoutRemoteStore(t *testing.T) {
	app, _ := newTestApp(t)
	router := app.router()

	rec := doRequest(t, router, "GET", "/api/doctors/watch", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	token, _ := registerUser(t, router, "Ana", "ana@example.com")
	rec = doRequest(t, router, "GET", "/api/appointments/watch", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
