package medicita

import (
	"flag"
	"fmt"

	"github.com/joho/godotenv"
)

// Parse parses command line arguments into the command to execute and the
// shared application configuration. Defaults come from the environment,
// including a .env file when one is present, so flags only need to name
// what differs from the deployment config.
func Parse(args []string) (Command, *Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	flagSet := flag.NewFlagSet("medicita", flag.ContinueOnError)

	var (
		localDSN    = flagSet.String("local-dsn", getEnv("MEDICITA_LOCAL_DSN", "medicita.db"), "Local store DSN: SQLite path or postgres:// URL")
		surrealURL  = flagSet.String("surreal-url", getEnv("SURREALDB_URL", ""), "SurrealDB WebSocket URL, e.g. ws://localhost:8000/rpc (empty disables the remote store)")
		surrealNS   = flagSet.String("surreal-ns", getEnv("SURREALDB_NS", "medicita"), "SurrealDB namespace")
		surrealDB   = flagSet.String("surreal-db", getEnv("SURREALDB_DB", "medicita"), "SurrealDB database")
		surrealUser = flagSet.String("surreal-user", getEnv("SURREALDB_USER", "root"), "SurrealDB username")
		surrealPass = flagSet.String("surreal-pass", getEnv("SURREALDB_PASS", "root"), "SurrealDB password")
		sessionPath = flagSet.String("session-file", getEnv("MEDICITA_SESSION_FILE", ".medicita/session.json"), "Session state file")
		jwtSecret   = flagSet.String("jwt-secret", getEnv("MEDICITA_JWT_SECRET", ""), "Secret for signing API tokens")
		port        = flagSet.String("port", getEnv("MEDICITA_PORT", "8080"), "Server port")
		logLevel    = flagSet.String("log-level", getEnv("MEDICITA_LOG_LEVEL", "info"), "Log level: trace, debug, info, warn, error")
		readOnly    = flagSet.Bool("read-only", false, "Reject all write operations")
		strict      = flagSet.Bool("strict-verify", false, "Fail transfer on record count mismatches")
	)

	if err := flagSet.Parse(args); err != nil {
		return nil, nil, err
	}

	remainingArgs := flagSet.Args()
	if len(remainingArgs) == 0 {
		return nil, nil, fmt.Errorf(`subcommand required

Usage: medicita [flags] <command>

Commands:
  run       Start the API server
  migrate   Apply the local store schema
  transfer  Copy all local data to SurrealDB (one-time migration)
  seed      Load demo data into the local store

Examples:
  medicita migrate                                # Prepare the local store
  medicita run                                    # Serve from the local store
  medicita -surreal-url ws://localhost:8000/rpc run
  medicita -surreal-url ws://localhost:8000/rpc transfer
  medicita -surreal-url ws://localhost:8000/rpc -strict-verify transfer
  medicita -port 8090 run`)
	}

	config := &Config{
		LocalDSN:      *localDSN,
		SurrealDBURL:  *surrealURL,
		SurrealDBNS:   *surrealNS,
		SurrealDBDB:   *surrealDB,
		SurrealDBUser: *surrealUser,
		SurrealDBPass: *surrealPass,
		SessionPath:   *sessionPath,
		JWTSecret:     *jwtSecret,
		StrictVerify:  *strict,
		ReadOnly:      *readOnly,
		ServerPort:    *port,
		LogLevel:      *logLevel,
	}

	var cmd Command
	switch remainingArgs[0] {
	case "run":
		if config.JWTSecret == "" {
			return nil, nil, fmt.Errorf("a JWT secret is required to run the server: set -jwt-secret or MEDICITA_JWT_SECRET")
		}
		cmd = &RunCommand{}
	case "migrate":
		cmd = &MigrateCommand{}
	case "transfer":
		if config.SurrealDBURL == "" {
			return nil, nil, fmt.Errorf("transfer requires a remote store: set -surreal-url or SURREALDB_URL")
		}
		cmd = &TransferCommand{Strict: *strict}
	case "seed":
		cmd = &SeedCommand{}
	default:
		return nil, nil, fmt.Errorf("unknown command: %s\n\nValid commands: run, migrate, transfer, seed", remainingArgs[0])
	}

	return cmd, config, nil
}
