package migration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicita/medicita/pkg/apperrors"
	"github.com/medicita/medicita/pkg/models"
	"github.com/medicita/medicita/pkg/store/memory"
)

type fakeSession struct {
	loggedIn  bool
	completed bool
}

func (s *fakeSession) IsLoggedIn() bool           { return s.loggedIn }
func (s *fakeSession) IsMigrationCompleted() bool { return s.completed }
func (s *fakeSession) SetMigrationCompleted(done bool) error {
	s.completed = done
	return nil
}

// fakeTarget stores documents in maps keyed table then id. It can inject a
// failure for one entity or silently drop writes to simulate data loss.
type fakeTarget struct {
	tables   map[string]map[string]any
	failPut  string
	dropPut  string
	failCopy string
	putCalls int
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{tables: make(map[string]map[string]any)}
}

func (t *fakeTarget) put(table, id string, doc any) error {
	t.putCalls++
	if t.failPut == table {
		return fmt.Errorf("PERMISSION_DENIED writing to %s", table)
	}
	if t.dropPut == table {
		return nil
	}
	if t.tables[table] == nil {
		t.tables[table] = make(map[string]any)
	}
	t.tables[table][id] = doc
	return nil
}

func (t *fakeTarget) PutUser(ctx context.Context, u *models.User) error {
	return t.put("users", u.ID.String(), u)
}
func (t *fakeTarget) PutDoctor(ctx context.Context, d *models.Doctor) error {
	return t.put("doctors", d.ID.String(), d)
}
func (t *fakeTarget) PutAppointment(ctx context.Context, a *models.Appointment) error {
	return t.put("appointments", a.ID.String(), a)
}
func (t *fakeTarget) PutRating(ctx context.Context, r *models.Rating) error {
	return t.put("ratings", r.ID.String(), r)
}
func (t *fakeTarget) PutNotification(ctx context.Context, n *models.Notification) error {
	return t.put("notifications", n.ID.String(), n)
}

func (t *fakeTarget) CopyLegacyCollection(ctx context.Context, legacy, target string) (int64, error) {
	if t.failCopy == legacy {
		return 0, fmt.Errorf("UNAVAILABLE reading %s", legacy)
	}
	var copied int64
	for id, doc := range t.tables[legacy] {
		if t.tables[target] == nil {
			t.tables[target] = make(map[string]any)
		}
		t.tables[target][id] = doc
		copied++
	}
	return copied, nil
}

func (t *fakeTarget) CountTable(ctx context.Context, table string) (int64, error) {
	return int64(len(t.tables[table])), nil
}

// seedSource fills a memory store with a small consistent data set: two
// users, one doctor, one appointment, one rating, one notification.
func seedSource(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	src := memory.New()

	ana := &models.User{FullName: "Ana", Email: "ana@example.com", CreatedAt: time.Now()}
	require.NoError(t, src.CreateUser(ctx, ana))
	ben := &models.User{FullName: "Ben", Email: "ben@example.com", CreatedAt: time.Now().Add(time.Second)}
	require.NoError(t, src.CreateUser(ctx, ben))

	doc := &models.Doctor{Name: "Dr. Vargas", Specialty: "Cardiology"}
	require.NoError(t, src.CreateDoctor(ctx, doc))

	appt := &models.Appointment{
		UserID:   ana.ID,
		DoctorID: doc.ID,
		StartsAt: time.Now().Add(24 * time.Hour),
		Status:   models.StatusCompleted,
	}
	require.NoError(t, src.CreateAppointment(ctx, appt))

	require.NoError(t, src.CreateRating(ctx, &models.Rating{
		UserID: ana.ID, DoctorID: doc.ID, AppointmentID: appt.ID, Score: 5,
	}))

	require.NoError(t, src.CreateNotification(ctx, &models.Notification{
		UserID: ana.ID, Title: "Welcome", Type: models.NotificationGeneral,
	}))
	return src
}

func newService(src Source, tgt Target, sess SessionState, opts ...Option) *Service {
	return NewService(src, tgt, sess, zerolog.Nop(), opts...)
}

func TestRunMigratesEverything(t *testing.T) {
	ctx := context.Background()
	src := seedSource(t)
	tgt := newFakeTarget()
	sess := &fakeSession{loggedIn: true}
	svc := newService(src, tgt, sess)

	result, err := svc.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, StatusSucceeded, result.Status)
	assert.False(t, result.Skipped)
	assert.True(t, result.Verified)
	assert.True(t, sess.completed)
	assert.Equal(t, StatusSucceeded, svc.Status())

	require.Len(t, result.Entities, 5)
	byEntity := map[string]EntityResult{}
	for _, er := range result.Entities {
		assert.True(t, er.OK, er.Entity)
		byEntity[er.Entity] = er
	}
	assert.Equal(t, int64(2), byEntity["users"].Migrated)
	assert.Equal(t, int64(1), byEntity["doctors"].Migrated)
	assert.Equal(t, int64(1), byEntity["appointments"].Migrated)
	assert.Equal(t, int64(1), byEntity["ratings"].Migrated)
	assert.Equal(t, int64(1), byEntity["notifications"].Migrated)

	assert.Len(t, tgt.tables["users"], 2)
	assert.Len(t, tgt.tables["appointments"], 1)
}

func TestRunSkipsWhenAlreadyCompleted(t *testing.T) {
	src := seedSource(t)
	tgt := newFakeTarget()
	sess := &fakeSession{loggedIn: true, completed: true}
	svc := newService(src, tgt, sess)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, StatusSucceeded, result.Status)
	assert.Zero(t, tgt.putCalls)
}

func TestRunRequiresSignedInSession(t *testing.T) {
	src := seedSource(t)
	tgt := newFakeTarget()
	sess := &fakeSession{loggedIn: false}
	svc := newService(src, tgt, sess)

	_, err := svc.Run(context.Background())
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeUnauthorized, appErr.Code)

	// Nothing was written and the flag is untouched.
	assert.Zero(t, tgt.putCalls)
	assert.False(t, sess.completed)
	assert.Equal(t, StatusNotStarted, svc.Status())
}

func TestRunSingleFlight(t *testing.T) {
	src := seedSource(t)
	sess := &fakeSession{loggedIn: true}
	svc := newService(src, newFakeTarget(), sess)
	svc.status.set(StatusInProgress)

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeMigrationRunning, appErr.Code)
}

func TestRunEntityFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	src := seedSource(t)
	tgt := newFakeTarget()
	tgt.failPut = "doctors"
	sess := &fakeSession{loggedIn: true}
	svc := newService(src, tgt, sess)

	result, err := svc.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.False(t, sess.completed)
	assert.Equal(t, StatusFailed, svc.Status())

	// Clearing the fault lets a retry finish. Users written in the first
	// attempt are simply overwritten.
	tgt.failPut = ""
	result, err = svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, result.Status)
	assert.True(t, sess.completed)
	assert.Len(t, tgt.tables["users"], 2)
}

func TestRunIdempotentRerun(t *testing.T) {
	ctx := context.Background()
	src := seedSource(t)
	tgt := newFakeTarget()
	sess := &fakeSession{loggedIn: true}
	svc := newService(src, tgt, sess)

	_, err := svc.Run(ctx)
	require.NoError(t, err)

	// Force a second full run past the completion flag.
	sess.completed = false
	svc.status.set(StatusNotStarted)
	_, err = svc.Run(ctx)
	require.NoError(t, err)

	assert.Len(t, tgt.tables["users"], 2)
	assert.Len(t, tgt.tables["doctors"], 1)
	assert.Len(t, tgt.tables["ratings"], 1)
}

func TestRunFoldsLegacyCollections(t *testing.T) {
	ctx := context.Background()
	src := seedSource(t)
	tgt := newFakeTarget()
	tgt.tables["citas"] = map[string]any{
		"900": map[string]any{"status": "completed"},
		"901": map[string]any{"status": "cancelled"},
	}
	tgt.tables["notificaciones"] = map[string]any{
		"950": map[string]any{"title": "hola"},
	}
	sess := &fakeSession{loggedIn: true}
	svc := newService(src, tgt, sess)

	result, err := svc.Run(ctx)
	require.NoError(t, err)

	copies := map[string]int64{}
	for _, lc := range result.LegacyCopies {
		copies[lc.From] = lc.Copied
	}
	assert.Equal(t, int64(2), copies["citas"])
	assert.Equal(t, int64(0), copies["calificaciones"])
	assert.Equal(t, int64(1), copies["notificaciones"])

	// Folded documents join the migrated ones; the legacy data stays.
	assert.Len(t, tgt.tables["appointments"], 3)
	assert.Len(t, tgt.tables["citas"], 2)
	assert.Len(t, tgt.tables["notifications"], 2)

	// Folded documents inflate the remote counts past the local ones, which
	// the count check reports and the lenient default tolerates.
	assert.False(t, result.Verified)
	assert.Equal(t, StatusSucceeded, result.Status)
}

func TestRunLegacyFoldFailureDoesNotAbort(t *testing.T) {
	ctx := context.Background()
	src := seedSource(t)
	tgt := newFakeTarget()
	tgt.failCopy = "citas"
	sess := &fakeSession{loggedIn: true}
	svc := newService(src, tgt, sess)

	result, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, result.Status)
	assert.True(t, sess.completed)

	byLegacy := map[string]LegacyCopyResult{}
	for _, lc := range result.LegacyCopies {
		byLegacy[lc.From] = lc
	}
	assert.NotEmpty(t, byLegacy["citas"].Error)
	assert.Empty(t, byLegacy["calificaciones"].Error)
	assert.Empty(t, byLegacy["notificaciones"].Error)
}

func TestRunEmptySourceVerifiesTrivially(t *testing.T) {
	src := memory.New()
	tgt := newFakeTarget()
	sess := &fakeSession{loggedIn: true}
	svc := newService(src, tgt, sess)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Verified)
	require.Len(t, result.Checks, 5)
	for _, c := range result.Checks {
		assert.True(t, c.Match, c.Collection)
		assert.Zero(t, c.Local)
	}
}

func TestRunLenientVerificationSucceedsOnMismatch(t *testing.T) {
	src := seedSource(t)
	tgt := newFakeTarget()
	tgt.dropPut = "ratings"
	sess := &fakeSession{loggedIn: true}
	svc := newService(src, tgt, sess)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, result.Status)
	assert.False(t, result.Verified)
	assert.True(t, sess.completed)
}

func TestRunStrictVerificationFailsOnMismatch(t *testing.T) {
	src := seedSource(t)
	tgt := newFakeTarget()
	tgt.dropPut = "ratings"
	sess := &fakeSession{loggedIn: true}
	svc := newService(src, tgt, sess, WithPolicy(PolicyStrict))

	result, err := svc.Run(context.Background())
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeVerificationFail, appErr.Code)
	assert.Equal(t, StatusFailed, result.Status)
	assert.False(t, sess.completed)
}

func TestRunStrictVerificationCatchesInflatedRemote(t *testing.T) {
	src := seedSource(t)
	tgt := newFakeTarget()
	// The migrated rating is lost while unrelated documents already sit in
	// the remote table, so the remote count exceeds the local one. Only an
	// equality check notices that the migrated record never arrived.
	tgt.dropPut = "ratings"
	tgt.tables["ratings"] = map[string]any{
		"stray-1": map[string]any{"score": 5},
		"stray-2": map[string]any{"score": 4},
	}
	sess := &fakeSession{loggedIn: true}
	svc := newService(src, tgt, sess, WithPolicy(PolicyStrict))

	result, err := svc.Run(context.Background())
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeVerificationFail, appErr.Code)
	assert.Equal(t, StatusFailed, result.Status)
	assert.False(t, sess.completed)

	for _, check := range result.Checks {
		if check.Collection == "ratings" {
			assert.False(t, check.Match)
			assert.Equal(t, int64(1), check.Local)
			assert.Equal(t, int64(2), check.Remote)
		}
	}
}

func TestRunReportsProgress(t *testing.T) {
	src := seedSource(t)
	var stages []string
	svc := newService(src, newFakeTarget(), &fakeSession{loggedIn: true},
		WithProgress(func(stage string, done, total int64) {
			stages = append(stages, stage)
			assert.LessOrEqual(t, done, total)
		}))

	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, stages, "users")
	assert.Contains(t, stages, "ratings")
}
