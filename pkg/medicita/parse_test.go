package medicita

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv pins all configuration variables so ambient environment does not
// leak into the parsed config.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MEDICITA_LOCAL_DSN", "SURREALDB_URL", "SURREALDB_NS", "SURREALDB_DB",
		"SURREALDB_USER", "SURREALDB_PASS", "MEDICITA_SESSION_FILE",
		"MEDICITA_JWT_SECRET", "MEDICITA_PORT", "MEDICITA_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestParseDefaults(t *testing.T) {
	clearEnv(t)

	cmd, config, err := Parse([]string{"migrate"})
	require.NoError(t, err)
	assert.Equal(t, "migrate", cmd.Name())
	assert.Equal(t, "medicita.db", config.LocalDSN)
	assert.Equal(t, "8080", config.ServerPort)
	assert.Equal(t, ".medicita/session.json", config.SessionPath)
	assert.Empty(t, config.SurrealDBURL)
	assert.False(t, config.StrictVerify)
	assert.False(t, config.ReadOnly)
}

func TestParseRunRequiresJWTSecret(t *testing.T) {
	clearEnv(t)

	_, _, err := Parse([]string{"run"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret")

	cmd, config, err := Parse([]string{"-jwt-secret", "s3cret", "run"})
	require.NoError(t, err)
	assert.Equal(t, "run", cmd.Name())
	assert.Equal(t, "s3cret", config.JWTSecret)
}

func TestParseJWTSecretFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEDICITA_JWT_SECRET", "from-env")

	_, config, err := Parse([]string{"run"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", config.JWTSecret)
}

func TestParseTransferRequiresRemote(t *testing.T) {
	clearEnv(t)

	_, _, err := Parse([]string{"transfer"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote store")

	cmd, config, err := Parse([]string{
		"-surreal-url", "ws://localhost:8000/rpc", "-strict-verify", "transfer",
	})
	require.NoError(t, err)
	transfer, ok := cmd.(*TransferCommand)
	require.True(t, ok)
	assert.True(t, transfer.Strict)
	assert.True(t, config.StrictVerify)
	assert.Equal(t, "ws://localhost:8000/rpc", config.SurrealDBURL)
}

func TestParseFlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEDICITA_PORT", "9000")
	t.Setenv("MEDICITA_LOCAL_DSN", "env.db")

	_, config, err := Parse([]string{"-port", "9090", "seed"})
	require.NoError(t, err)
	assert.Equal(t, "9090", config.ServerPort)
	assert.Equal(t, "env.db", config.LocalDSN)
}

func TestParseRejectsUnknownCommand(t *testing.T) {
	clearEnv(t)

	_, _, err := Parse([]string{"dance"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestParseRequiresSubcommand(t *testing.T) {
	clearEnv(t)

	_, _, err := Parse([]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subcommand required")
}
