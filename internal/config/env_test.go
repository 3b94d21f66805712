package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	assert.Error(t, LoadEnv(filepath.Join(t.TempDir(), "tidak-ada.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KANTIN_LOADENV_TEST=buka\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("KANTIN_LOADENV_TEST") })

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "buka", GetEnv("KANTIN_LOADENV_TEST", ""))
}
