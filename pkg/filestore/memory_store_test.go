package filestore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planventa/planventa/pkg/filestore"
)

func TestMemoryStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := filestore.NewMemoryStore()

	require.NoError(t, store.Put(ctx, "imports/job-1.csv", []byte("title\nAlpha"), "text/csv"))

	got, err := store.Get(ctx, "imports/job-1.csv")
	require.NoError(t, err)
	assert.Equal(t, []byte("title\nAlpha"), got)

	require.NoError(t, store.Delete(ctx, "imports/job-1.csv"))

	_, err = store.Get(ctx, "imports/job-1.csv")
	assert.ErrorIs(t, err, filestore.ErrNotFound)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := filestore.NewMemoryStore()

	original := []byte("abc")
	require.NoError(t, store.Put(ctx, "k", original, ""))

	// Mutating the slice handed to Put must not affect stored content.
	original[0] = 'z'

	first, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), first)

	// Mutating a returned slice must not affect subsequent reads.
	first[0] = 'y'
	second, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), second)
}

func TestMemoryStore_DeleteMissingKeyIsNoop(t *testing.T) {
	store := filestore.NewMemoryStore()
	assert.NoError(t, store.Delete(context.Background(), "missing"))
}
