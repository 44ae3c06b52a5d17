package store

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/molunlade/contact-api/internal/models"
)

func newTestGormStore(t *testing.T) *GormStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Submission{}))

	return NewGormStore(db, zerolog.Nop())
}

func TestGormStoreGetOrCreateIsIdempotent(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()

	first, created, err := s.GetOrCreate(ctx, testSubmission("req-1"))
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, models.StatusPending, first.Status)

	second, created, err := s.GetOrCreate(ctx, testSubmission("req-1"))
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.RequestID, second.RequestID)
	require.Equal(t, first.ID, second.ID)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestGormStoreUpdateStatusForwardOnly(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()

	_, _, err := s.GetOrCreate(ctx, testSubmission("fwd"))
	require.NoError(t, err)

	require.NoError(t, s.UpdateStatus(ctx, "fwd", StatusPatch{Status: models.StatusSent, SendGridID: "sg-9"}))
	require.NoError(t, s.UpdateStatus(ctx, "fwd", StatusPatch{Status: models.StatusFailed}))

	record, created, err := s.GetOrCreate(ctx, testSubmission("fwd"))
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, models.StatusSent, record.Status)
	require.Equal(t, "sg-9", record.SendGridID)
}

func TestGormStoreUpdateStatusUnknownIsNoOp(t *testing.T) {
	s := newTestGormStore(t)

	require.NoError(t, s.UpdateStatus(context.Background(), "missing", StatusPatch{Status: models.StatusSent}))
}
