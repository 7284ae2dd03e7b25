package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, 16, cfg.Store.BatchSize)
	require.Equal(t, IndexKindBRIN, cfg.Store.VMinIndexKind)
	require.Equal(t, 65536, cfg.Store.MaxErrorMessageBytes)
	require.True(t, cfg.Store.StrictEmbeddingErrors)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"store":{"batch_size":32,"driver":"postgres"}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 32, cfg.Store.BatchSize)
	require.Equal(t, "postgres", cfg.Store.Driver)
	// fields absent from the file keep their defaults
	require.Equal(t, IndexKindBRIN, cfg.Store.VMinIndexKind)
}
