package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("recaps/tutor-1/2026-03.csv", []byte("Tanggal,Jam\n"))
	require.NoError(t, err)
	require.Equal(t, "recaps/tutor-1/2026-03.csv", rel)

	file, err := store.Open(rel)
	require.NoError(t, err)
	defer file.Close()

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "Tanggal,Jam\n", string(content))
}

func TestLocalStorageDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("recaps/old.csv", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(rel))
	_, err = store.Open(rel)
	require.Error(t, err)

	// Deleting a missing file is not an error.
	require.NoError(t, store.Delete(rel))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	baseDir := t.TempDir()
	store, err := NewLocalStorage(baseDir)
	require.NoError(t, err)

	stale, err := store.Save("recaps/tutor-1/stale.csv", []byte("x"))
	require.NoError(t, err)
	fresh, err := store.Save("recaps/tutor-1/fresh.csv", []byte("x"))
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(baseDir, stale), old, old))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join("recaps", "tutor-1", "stale.csv")}, deleted)

	_, err = store.Open(stale)
	require.Error(t, err)
	file, err := store.Open(fresh)
	require.NoError(t, err)
	file.Close()
}
