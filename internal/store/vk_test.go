package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVK_Miss(t *testing.T) {
	s := createTestStore(t)

	id, found, err := s.GetVK(context.Background(), "doctor")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, id)
}

func TestPutVK_ThenGet(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutVK(ctx, "doctor", "0xdoc"))
	require.NoError(t, s.PutVK(ctx, "patient", "0xpat"))

	id, found, err := s.GetVK(ctx, "doctor")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "0xdoc", id)

	rec, err := s.ReadVK(ctx, "patient")
	require.NoError(t, err)
	assert.Equal(t, "0xpat", rec.VKID)
	assert.Equal(t, testNow, rec.CreatedAt)
}

func TestPutVK_LastWriteWins(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutVK(ctx, "doctor", "first"))
	later := testNow.Add(time.Hour)
	s.now = func() time.Time { return later }
	require.NoError(t, s.PutVK(ctx, "doctor", "second"))

	rec, err := s.ReadVK(ctx, "doctor")
	require.NoError(t, err)
	assert.Equal(t, "second", rec.VKID)
	assert.Equal(t, later, rec.CreatedAt)
}

func TestPutVK_RequiresFields(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	assert.Error(t, s.PutVK(ctx, "", "x"))
	assert.Error(t, s.PutVK(ctx, "doctor", ""))
}

func TestReadVK_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadVK(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListVKs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.ListVKs(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, s.PutVK(ctx, "patient", "p"))
	require.NoError(t, s.PutVK(ctx, "doctor", "d"))

	recs, err := s.ListVKs(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "doctor", recs[0].Role)
	assert.Equal(t, "patient", recs[1].Role)
}
