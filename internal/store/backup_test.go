package store_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupRestoreRoundTrip(t *testing.T) {
	src := setupStore(t)
	ctx := context.Background()

	require.NoError(t, src.SaveTiming(ctx, "book-1", sampleCollection()))
	require.NoError(t, src.SaveTiming(ctx, "book-2", sampleCollection()))

	var buf bytes.Buffer
	_, err := src.Backup(&buf)
	require.NoError(t, err)
	require.NotZero(t, buf.Len())

	dst := setupStore(t)
	require.NoError(t, dst.Restore(&buf))

	ids, err := dst.ListContentIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"book-1", "book-2"}, ids)

	got, err := dst.GetTiming(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, int64(800), got.TotalDurationMs)
}

func TestRestorePreservesExistingKeys(t *testing.T) {
	src := setupStore(t)
	ctx := context.Background()
	require.NoError(t, src.SaveTiming(ctx, "book-1", sampleCollection()))

	var buf bytes.Buffer
	_, err := src.Backup(&buf)
	require.NoError(t, err)

	dst := setupStore(t)
	require.NoError(t, dst.SaveTiming(ctx, "book-3", sampleCollection()))
	require.NoError(t, dst.Restore(&buf))

	ids, err := dst.ListContentIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"book-1", "book-3"}, ids)
}
