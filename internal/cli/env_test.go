package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	const key = "WHEREABOUTS_TEST_ENV_CACHE"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=memory\n"), 0o644))

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "memory", os.Getenv(key))
	assert.Equal(t, "memory", envOr(key, CacheSQLite))
}

func TestLoadEnv_KeepsExistingValues(t *testing.T) {
	const key = "WHEREABOUTS_TEST_ENV_DB"
	t.Setenv(key, "from-shell.db")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file.db\n"), 0o644))

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "from-shell.db", os.Getenv(key))
}

func TestLoadEnv_MissingFile(t *testing.T) {
	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestEnvOr(t *testing.T) {
	t.Setenv("WHEREABOUTS_TEST_EMPTY", "")
	assert.Equal(t, "fallback", envOr("WHEREABOUTS_TEST_EMPTY", "fallback"))
}
