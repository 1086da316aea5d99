package config

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *flag.FlagSet {
	return flag.NewFlagSet("tourgen", flag.ContinueOnError)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newFlagSet(), nil)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 2, cfg.Retries)
	assert.Equal(t, []string{"445", "722"}, cfg.Commuter)
	assert.Empty(t, cfg.States)
}

func TestLoadEnvThenFlags(t *testing.T) {
	t.Setenv("TOURGEN_WORKERS", "8")
	t.Setenv("TOURGEN_STATES", "06, 53")
	t.Setenv("TOURGEN_SEED", "42")

	cfg, err := Load(newFlagSet(), []string{"-workers", "2", "-commuter-industries", "722"})
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, []string{"06", "53"}, cfg.States)
	assert.Equal(t, []string{"722"}, cfg.Commuter)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("TOURGEN_DB_DRIVER", "pgx")

	_, err := Load(newFlagSet(), []string{"-workers", "0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers must be >= 1")
	assert.Contains(t, err.Error(), "database url is required")
}

func TestGetFallback(t *testing.T) {
	t.Setenv("TOURGEN_TEST_KEY", "")
	assert.Equal(t, "x", Get("TOURGEN_TEST_KEY", "x"))
	t.Setenv("TOURGEN_TEST_KEY", "y")
	assert.Equal(t, "y", Get("TOURGEN_TEST_KEY", "x"))
}
