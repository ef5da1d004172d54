package migration

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medicita/medicita/pkg/apperrors"
	"github.com/medicita/medicita/pkg/store/surreal"
)

// Service runs the one-time local to remote migration.
type Service struct {
	source   Source
	target   Target
	session  SessionState
	log      zerolog.Logger
	policy   VerificationPolicy
	progress ProgressFunc

	status statusFlag

	mu   sync.Mutex
	last *Result
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy selects the verification policy; the default is PolicyLenient.
func WithPolicy(p VerificationPolicy) Option {
	return func(s *Service) { s.policy = p }
}

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Service) { s.progress = fn }
}

// NewService wires a migration between source and target. The session gates
// the run and records completion.
func NewService(source Source, target Target, sess SessionState, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		source:  source,
		target:  target,
		session: sess,
		log:     log.With().Str("component", "migration").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is the full report of one migration run.
type Result struct {
	Status       Status             `json:"status"`
	Skipped      bool               `json:"skipped"`
	Entities     []EntityResult     `json:"entities,omitempty"`
	LegacyCopies []LegacyCopyResult `json:"legacy_copies,omitempty"`
	Checks       []CollectionCheck  `json:"checks,omitempty"`
	Verified     bool               `json:"verified"`
	StartedAt    time.Time          `json:"started_at"`
	FinishedAt   time.Time          `json:"finished_at"`
}

// Status returns the current lifecycle state.
func (s *Service) Status() Status { return s.status.get() }

// InProgress reports whether a run is currently executing. The local store
// is wrapped read-only on this signal while a run copies data.
func (s *Service) InProgress() bool { return s.status.get() == StatusInProgress }

// LastResult returns the report of the most recent run, or nil.
func (s *Service) LastResult() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Service) report(stage string, done, total int64) {
	if s.progress != nil {
		s.progress(stage, done, total)
	}
}

// Run executes the migration end to end. The sequence:
//
//  1. Short-circuit when the persisted completion flag is already set.
//  2. Refuse to touch the remote store without a signed-in session.
//  3. Admit exactly one run at a time via the status flag.
//  4. Copy users, doctors, appointments, ratings, notifications, in that
//     order so referenced records land before their referrers.
//  5. Fold legacy collections into their current names.
//  6. Compare record counts per collection.
//  7. Persist the completion flag on success.
//
// A failed run leaves the flag unset and the status retryable.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	if s.session.IsMigrationCompleted() {
		s.log.Info().Msg("migration already completed, skipping")
		return &Result{Status: StatusSucceeded, Skipped: true, Verified: true}, nil
	}

	if !s.session.IsLoggedIn() {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "migration",
			"migration requires a signed-in session", http.StatusUnauthorized)
	}

	if !s.status.tryStart() {
		return nil, apperrors.New(apperrors.CodeMigrationRunning, "migration",
			"a migration run is already in progress or has completed", http.StatusConflict)
	}

	result := &Result{Status: StatusInProgress, StartedAt: time.Now()}
	fail := func(err error) (*Result, error) {
		s.status.set(StatusFailed)
		result.Status = StatusFailed
		result.FinishedAt = time.Now()
		s.storeResult(result)
		s.log.Error().Err(err).Msg("migration failed")
		return result, err
	}

	s.log.Info().Msg("starting migration")

	result.Entities = []EntityResult{
		s.migrateUsers(ctx),
		s.migrateDoctors(ctx),
		s.migrateAppointments(ctx),
		s.migrateRatings(ctx),
		s.migrateNotifications(ctx),
	}
	for _, er := range result.Entities {
		s.log.Info().
			Str("entity", er.Entity).
			Int64("migrated", er.Migrated).
			Bool("ok", er.OK).
			Msg("entity migration finished")
		if !er.OK {
			return fail(apperrors.New(apperrors.CodeRemoteError, "migration",
				"failed to migrate "+er.Entity+": "+er.Error, http.StatusBadGateway))
		}
	}

	for legacy, target := range surreal.LegacyRenames {
		copied, err := s.target.CopyLegacyCollection(ctx, legacy, target)
		lc := LegacyCopyResult{From: legacy, To: target, Copied: copied}
		if err != nil {
			// Entity data is already across; a failed fold is reported but
			// never aborts the run.
			lc.Error = err.Error()
			s.log.Warn().Err(err).Str("from", legacy).Str("to", target).
				Msg("legacy collection fold failed, continuing")
		} else {
			s.log.Info().Str("from", legacy).Str("to", target).Int64("copied", copied).
				Msg("legacy collection folded")
		}
		result.LegacyCopies = append(result.LegacyCopies, lc)
	}

	checks, verified, err := s.Verify(ctx)
	if err != nil {
		return fail(err)
	}
	result.Checks = checks
	result.Verified = verified
	if !verified && s.policy == PolicyStrict {
		return fail(apperrors.New(apperrors.CodeVerificationFail, "migration",
			"record counts do not match after migration", http.StatusConflict))
	}

	if err := s.session.SetMigrationCompleted(true); err != nil {
		return fail(err)
	}

	s.status.set(StatusSucceeded)
	result.Status = StatusSucceeded
	result.FinishedAt = time.Now()
	s.storeResult(result)
	s.log.Info().Bool("verified", verified).Msg("migration completed")
	return result, nil
}

func (s *Service) storeResult(r *Result) {
	s.mu.Lock()
	s.last = r
	s.mu.Unlock()
}
