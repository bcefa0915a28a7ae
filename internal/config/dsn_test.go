package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDSNFromEnv(t *testing.T) {
	t.Setenv("TEST_STACKHARMONY_DSN", "postgres://u:p@db/catalog")
	dsn, err := StoreConfig{Driver: "postgres", DSNSource: "env", DSNEnv: "TEST_STACKHARMONY_DSN"}.ResolveDSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db/catalog", dsn)
}

func TestResolveDSNFromConfig(t *testing.T) {
	dsn, err := StoreConfig{Driver: "sqlite", DSNSource: "config", DSN: "catalog.db"}.ResolveDSN()
	require.NoError(t, err)
	assert.Equal(t, "catalog.db", dsn)
}

func TestResolveDSNMissingEnvVar(t *testing.T) {
	_, err := StoreConfig{DSNSource: "env", DSNEnv: "NONEXISTENT_DSN_VAR"}.ResolveDSN()
	assert.Error(t, err)

	_, err = StoreConfig{DSNSource: "env"}.ResolveDSN()
	assert.Error(t, err)
}

func TestResolveDSNEmptyConfig(t *testing.T) {
	_, err := StoreConfig{Driver: "sqlite", DSNSource: "config"}.ResolveDSN()
	assert.Error(t, err)

	dsn, err := StoreConfig{Driver: "memory"}.ResolveDSN()
	require.NoError(t, err, "the memory backend needs no dsn")
	assert.Empty(t, dsn)
}

func TestResolveDSNUnknownSource(t *testing.T) {
	_, err := StoreConfig{DSNSource: "vault"}.ResolveDSN()
	assert.Error(t, err)
}
