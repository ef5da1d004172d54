package medicita

import (
	"context"
	"fmt"
)

// Main is the application entry point. It parses arguments, builds the App
// and executes the selected command. Tests call it directly instead of
// building the binary; the context drives graceful shutdown.
//
// Environment variables (overridable by flags):
//
//	MEDICITA_LOCAL_DSN     - local store DSN (default: medicita.db)
//	SURREALDB_URL          - SurrealDB WebSocket URL (default: disabled)
//	SURREALDB_NS           - SurrealDB namespace (default: medicita)
//	SURREALDB_DB           - SurrealDB database (default: medicita)
//	SURREALDB_USER         - SurrealDB username (default: root)
//	SURREALDB_PASS         - SurrealDB password (default: root)
//	MEDICITA_SESSION_FILE  - session state file (default: .medicita/session.json)
//	MEDICITA_JWT_SECRET    - API token signing secret (required for run)
//	MEDICITA_PORT          - server port (default: 8080)
//	MEDICITA_LOG_LEVEL     - log level (default: info)
func Main(ctx context.Context, args []string) error {
	cmd, config, err := Parse(args)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	app, err := New(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer app.Close(context.WithoutCancel(ctx))

	switch c := cmd.(type) {
	case *MigrateCommand:
		if err := app.MigrateSchema(ctx); err != nil {
			return fmt.Errorf("schema migration failed: %w", err)
		}
	case *RunCommand:
		if err := app.Run(ctx, c); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case *TransferCommand:
		if err := app.Transfer(ctx, c); err != nil {
			return fmt.Errorf("transfer failed: %w", err)
		}
	case *SeedCommand:
		if err := app.Seed(ctx); err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}

	return nil
}
