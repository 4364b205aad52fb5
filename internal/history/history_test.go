package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndGetAll(t *testing.T) {
	h, err := New(filepath.Join(t.TempDir(), "hist"), 10)
	require.NoError(t, err)

	h.Add("echo one")
	h.Add("echo two")
	assert.Equal(t, []string{"echo one", "echo two"}, h.GetAll())
	assert.Equal(t, 2, h.Len())
}

func TestCapTrimsOldest(t *testing.T) {
	h, err := New(filepath.Join(t.TempDir(), "hist"), 3)
	require.NoError(t, err)

	for _, cmd := range []string{"a", "b", "c", "d", "e"} {
		h.Add(cmd)
	}
	assert.Equal(t, []string{"c", "d", "e"}, h.GetAll())
}

func TestPersistenceRoundTrip(t *testing.T) {
	file := filepath.Join(t.TempDir(), "hist")

	h, err := New(file, 10)
	require.NoError(t, err)
	h.Add("ls -l")
	h.Add("cd /tmp")

	reloaded, err := New(file, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"ls -l", "cd /tmp"}, reloaded.GetAll())
}

func TestReloadRespectsSmallerCap(t *testing.T) {
	file := filepath.Join(t.TempDir(), "hist")

	h, err := New(file, 10)
	require.NoError(t, err)
	for _, cmd := range []string{"a", "b", "c", "d"} {
		h.Add(cmd)
	}

	reloaded, err := New(file, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, reloaded.GetAll())
}
