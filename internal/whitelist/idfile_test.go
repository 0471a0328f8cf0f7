package whitelist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateID_CreatesAndReuses(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "Whitelist")

	id, err := LoadOrCreateID(folder)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err, "generated id should be a UUID")

	again, err := LoadOrCreateID(folder)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestLoadOrCreateID_ExistingFile(t *testing.T) {
	folder := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(folder, IDFileName), []byte(" front-door\n"), 0600))

	id, err := LoadOrCreateID(folder)
	require.NoError(t, err)
	assert.Equal(t, "front-door", id)
}

func TestLoadOrCreateID_EmptyFile(t *testing.T) {
	folder := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(folder, IDFileName), nil, 0600))

	id, err := LoadOrCreateID(folder)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	data, err := os.ReadFile(filepath.Join(folder, IDFileName))
	require.NoError(t, err)
	assert.Equal(t, id, string(data))
}

func TestNormalizeName(t *testing.T) {
	decomposed := "Jan Nova\u0301k"
	composed := "Jan Nov\u00e1k"

	assert.Equal(t, composed, NormalizeName(decomposed))
	assert.Equal(t, composed, NormalizeName("  "+composed+" "))
}
