package medicita

import (
	"context"
	"net/http"

	"github.com/medicita/medicita/pkg/migration"
)

// MigrateSchema prepares the embedded store's schema. The remote store is
// schemaless and needs no equivalent step.
func (a *App) MigrateSchema(ctx context.Context) error {
	if err := a.local.Migrate(ctx); err != nil {
		return err
	}
	a.log.Info().Msg("local schema up to date")
	return nil
}

// Transfer runs the one-time data migration from the command line. Unlike
// the HTTP endpoint there is no signed-in API caller, so the transfer
// requires a previously established session.
func (a *App) Transfer(ctx context.Context, cmd *TransferCommand) error {
	result, err := a.migrator.Run(ctx)
	if err != nil {
		return err
	}
	if result.Skipped {
		a.log.Info().Msg("transfer skipped: migration already completed")
		return nil
	}
	for _, check := range result.Checks {
		a.log.Info().
			Str("collection", check.Collection).
			Int64("local", check.Local).
			Int64("remote", check.Remote).
			Bool("match", check.Match).
			Msg("verification")
	}
	return nil
}

// Migration HTTP handlers

func (a *App) handleMigrationStart(w http.ResponseWriter, r *http.Request) {
	if a.migrator == nil {
		respondError(w, http.StatusServiceUnavailable, "no remote store configured")
		return
	}
	result, err := a.migrator.Run(r.Context())
	if err != nil {
		a.respondAppError(w, err)
		return
	}
	body := map[string]any{"result": result}
	if result.Status == migration.StatusSucceeded && !result.Skipped && !a.servingRemote() {
		body["note"] = "migration completed; restart to serve from the remote store"
	}
	respondJSON(w, http.StatusOK, body)
}

// handleMigrationSkip marks the migration completed without copying data,
// for fresh installs with nothing local worth moving.
func (a *App) handleMigrationSkip(w http.ResponseWriter, r *http.Request) {
	if a.migrator == nil {
		respondError(w, http.StatusServiceUnavailable, "no remote store configured")
		return
	}
	if a.migrator.InProgress() {
		respondError(w, http.StatusConflict, "a migration run is in progress")
		return
	}
	count, err := a.store.CountUsers(r.Context())
	if err != nil {
		a.respondAppError(w, err)
		return
	}
	if count > 0 {
		respondError(w, http.StatusConflict, "local store holds data, run the migration instead of skipping it")
		return
	}
	if err := a.session.SetMigrationCompleted(true); err != nil {
		a.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "migration marked completed"})
}

func (a *App) handleMigrationStatus(w http.ResponseWriter, r *http.Request) {
	if a.migrator == nil {
		respondError(w, http.StatusServiceUnavailable, "no remote store configured")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    a.migrator.Status().String(),
		"completed": a.session.IsMigrationCompleted(),
		"progress":  a.progressLines(),
		"last":      a.migrator.LastResult(),
	})
}
