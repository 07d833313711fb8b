package badger

import (
	"context"
	"os"
	"testing"

	"github.com/poiesic/relevit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := t.TempDir()
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_PathIsFile(t *testing.T) {
	tmpFile := t.TempDir() + "/file.txt"
	require.NoError(t, os.WriteFile(tmpFile, []byte("not a directory"), 0644))

	_, err := OpenBackend(tmpFile, false)
	assert.Error(t, err)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)

	assert.False(t, backend.IsClosed())

	err = backend.Close()
	require.NoError(t, err)

	assert.True(t, backend.IsClosed())
}

func TestBackend_Persistence(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)

	docs := NewDocumentRepository(backend)
	added, err := docs.AddDocument(ctx, &core.Document{
		Text:   "persisted across reopen",
		Format: "text",
	})
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	// Reopen and read the same record back
	backend, err = OpenBackend(tmpDir, false)
	require.NoError(t, err)
	defer backend.Close()

	docs = NewDocumentRepository(backend)
	retrieved, err := docs.GetDocument(ctx, added.Id)
	require.NoError(t, err)
	assert.Equal(t, "persisted across reopen", retrieved.Text)
}

func TestWithTransaction(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	t.Run("successful transaction", func(t *testing.T) {
		err := backend.WithTransaction(ctx, func(ctx context.Context) error {
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("failed transaction", func(t *testing.T) {
		testErr := assert.AnError
		err := backend.WithTransaction(ctx, func(ctx context.Context) error {
			return testErr
		})
		assert.Equal(t, testErr, err)
	})
}
