// Package medicita wires the clinic booking application: configuration,
// store selection, the migration service, and the HTTP API.
package medicita

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/medicita/medicita/pkg/migration"
	"github.com/medicita/medicita/pkg/session"
	"github.com/medicita/medicita/pkg/store"
	"github.com/medicita/medicita/pkg/store/local"
	"github.com/medicita/medicita/pkg/store/surreal"
)

// Config holds application configuration, populated from flags and
// environment variables by Parse.
type Config struct {
	// LocalDSN selects the embedded store: a SQLite path by default, or a
	// postgres:// DSN.
	LocalDSN string

	// Remote store configuration. An empty SurrealDBURL disables the
	// remote store and the migration commands.
	SurrealDBURL  string
	SurrealDBNS   string
	SurrealDBDB   string
	SurrealDBUser string
	SurrealDBPass string

	// SessionPath is the session state file.
	SessionPath string

	// JWTSecret signs API tokens.
	JWTSecret string

	// StrictVerify fails the migration on count mismatches instead of
	// logging them.
	StrictVerify bool

	// ReadOnly rejects all writes from startup.
	ReadOnly bool

	ServerPort string
	LogLevel   string
}

// App holds the application state.
type App struct {
	store    store.Store
	local    *local.Store
	remote   *surreal.Store
	live     liveWatcher
	session  *session.Manager
	migrator *migration.Service
	config   *Config
	log      zerolog.Logger

	// remoteActive records which store was selected at startup. A
	// migration completing in-process does not reroute traffic; the
	// remote store takes over on the next start.
	remoteActive bool

	readOnly atomic.Bool

	progressMu  sync.Mutex
	progressLog []string
}

// maxProgressLines bounds the retained migration progress history.
const maxProgressLines = 200

// recordProgress appends one migration progress line for the status endpoint.
func (a *App) recordProgress(stage string, done, total int64) {
	a.progressMu.Lock()
	defer a.progressMu.Unlock()
	a.progressLog = append(a.progressLog, fmt.Sprintf("%s: %d/%d", stage, done, total))
	if len(a.progressLog) > maxProgressLines {
		a.progressLog = a.progressLog[len(a.progressLog)-maxProgressLines:]
	}
}

// progressLines returns a copy of the retained migration progress history.
func (a *App) progressLines() []string {
	a.progressMu.Lock()
	defer a.progressMu.Unlock()
	out := make([]string, len(a.progressLog))
	copy(out, a.progressLog)
	return out
}

// New builds the application. The embedded store always opens; the remote
// store only when configured. Once the migration has completed, the remote
// store serves all traffic and the embedded store stays as the migration
// source of record.
func New(ctx context.Context, config *Config) (*App, error) {
	logger := newLogger(config.LogLevel)

	sess, err := session.New(config.SessionPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	localStore, err := local.New(config.LocalDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	logger.Info().Str("dsn", config.LocalDSN).Msg("connected to local store")

	app := &App{
		local:   localStore,
		session: sess,
		config:  config,
		log:     logger,
	}
	app.readOnly.Store(config.ReadOnly)

	if config.SurrealDBURL != "" {
		remote, err := surreal.New(ctx, config.SurrealDBURL, config.SurrealDBNS,
			config.SurrealDBDB, config.SurrealDBUser, config.SurrealDBPass)
		if err != nil {
			localStore.Close(ctx)
			return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
		}
		app.remote = remote
		app.live = remote
		logger.Info().Str("url", config.SurrealDBURL).Msg("connected to SurrealDB")

		policy := migration.PolicyLenient
		if config.StrictVerify {
			policy = migration.PolicyStrict
		}
		app.migrator = migration.NewService(localStore, remote, sess, logger,
			migration.WithPolicy(policy),
			migration.WithProgress(func(stage string, done, total int64) {
				app.recordProgress(stage, done, total)
				logger.Debug().Str("stage", stage).Int64("done", done).Int64("total", total).
					Msg("migration progress")
			}))
	}

	var active store.Store = localStore
	if app.remote != nil && sess.IsMigrationCompleted() {
		active = app.remote
		app.remoteActive = true
		logger.Info().Msg("migration completed, serving from SurrealDB")
	}
	app.store = store.NewReadOnlyStore(active, app.IsReadOnly)

	return app, nil
}

// Close releases both store connections.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if a.local != nil {
		if err := a.local.Close(ctx); err != nil {
			firstErr = err
		}
	}
	if a.remote != nil {
		if err := a.remote.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Store returns the active store, wrapped with the read-only guard.
func (a *App) Store() store.Store { return a.store }

// Session returns the session manager.
func (a *App) Session() *session.Manager { return a.session }

// Migrator returns the migration service, or nil when no remote store is
// configured.
func (a *App) Migrator() *migration.Service { return a.migrator }

// SetReadOnly toggles the write guard at runtime, used around maintenance
// windows.
func (a *App) SetReadOnly(readOnly bool) {
	a.readOnly.Store(readOnly)
	a.log.Info().Bool("read_only", readOnly).Msg("read-only mode changed")
}

// IsReadOnly reports whether writes are currently rejected. Writes are also
// blocked while a migration run is copying data.
func (a *App) IsReadOnly() bool {
	if a.readOnly.Load() {
		return true
	}
	return a.migrator != nil && a.migrator.InProgress()
}

// authenticator returns the credential checker of the active store.
func (a *App) authenticator() store.Authenticator {
	active := a.store
	if ro, ok := active.(*store.ReadOnlyStore); ok {
		active = ro.Unwrap()
	}
	if auth, ok := active.(store.Authenticator); ok {
		return auth
	}
	return a.local
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// getEnv returns the environment variable value, or the fallback when unset
// or empty.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
