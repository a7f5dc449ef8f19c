package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutLatest(t *testing.T) {
	s := openMemory(t)

	_, err := s.Latest("reef")
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := s.Put("reef", []byte(`{"v":1}`))
	require.NoError(t, err)
	second, err := s.Put("reef", []byte(`{"v":2}`))
	require.NoError(t, err)
	assert.Greater(t, second.Version, first.Version)
	// neighbouring project must not leak into prefix scans
	_, err = s.Put("reef-b", []byte(`{"v":3}`))
	require.NoError(t, err)

	latest, err := s.Latest("reef")
	require.NoError(t, err)
	assert.Equal(t, second.Version, latest.Version)
	assert.Equal(t, []byte(`{"v":2}`), latest.Data)

	old, err := s.Get("reef", first.Version)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":1}`), old.Data)
	_, err = s.Get("reef", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	versions, err := s.Versions("reef")
	require.NoError(t, err)
	assert.Equal(t, []int64{first.Version, second.Version}, versions)

	projects, err := s.Projects()
	require.NoError(t, err)
	assert.Equal(t, []string{"reef", "reef-b"}, projects)
}

func TestPutInvalidName(t *testing.T) {
	s := openMemory(t)
	_, err := s.Put("", nil)
	assert.Error(t, err)
	_, err = s.Put("a/b", nil)
	assert.Error(t, err)
}

func TestPrune(t *testing.T) {
	s := openMemory(t)
	for i := 0; i < 5; i++ {
		_, err := s.Put("reef", []byte{byte(i)})
		require.NoError(t, err)
	}
	removed, err := s.Prune("reef", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	versions, err := s.Versions("reef")
	require.NoError(t, err)
	assert.Len(t, versions, 2)
	latest, err := s.Latest("reef")
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, latest.Data)

	removed, err = s.Prune("reef", 10)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestPersistentReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	s, err := Open(DefaultConfig(path))
	require.NoError(t, err)
	_, err = s.Put("reef", []byte("kept"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(DefaultConfig(path))
	require.NoError(t, err)
	defer s.Close()
	latest, err := s.Latest("reef")
	require.NoError(t, err)
	assert.Equal(t, []byte("kept"), latest.Data)

	_, err = Open(Config{})
	assert.Error(t, err)
}
