package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/deskroute/internal/model"
	appErr "github.com/xxxsen/deskroute/internal/pkg/errors"
)

type fakeIngestStore struct {
	existing map[int64]bool
	maxID    int64
	created  []int64
	failures int
}

func (f *fakeIngestStore) Create(ctx context.Context, msg *model.Message) error {
	if f.existing[msg.MsgID] {
		f.failures++
		return appErr.ErrConflict
	}
	if f.existing == nil {
		f.existing = make(map[int64]bool)
	}
	f.existing[msg.MsgID] = true
	f.created = append(f.created, msg.MsgID)
	return nil
}

func (f *fakeIngestStore) MaxID(ctx context.Context) (int64, error) {
	return f.maxID, nil
}

func TestIngest_AssignsMicrosecondID(t *testing.T) {
	store := &fakeIngestStore{}
	svc := NewIngestService(store)
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	id, err := svc.Ingest(context.Background(), "hello", time.Time{})
	require.NoError(t, err)
	require.Equal(t, now.UnixMicro(), id)
	require.Equal(t, []int64{id}, store.created)
}

func TestIngest_RejectsEmptyContent(t *testing.T) {
	svc := NewIngestService(&fakeIngestStore{})

	_, err := svc.Ingest(context.Background(), "   ", time.Time{})
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestIngest_CollisionRetriesWithMaxPlusOne(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	store := &fakeIngestStore{
		existing: map[int64]bool{now.UnixMicro(): true},
		maxID:    now.UnixMicro(),
	}
	svc := NewIngestService(store)
	svc.now = func() time.Time { return now }

	id, err := svc.Ingest(context.Background(), "hello", time.Time{})
	require.NoError(t, err)
	require.Equal(t, now.UnixMicro()+1, id)
	require.Equal(t, 1, store.failures)
}

func TestIngest_GivesUpAfterBoundedRetries(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	store := &fakeIngestStore{
		existing: map[int64]bool{
			now.UnixMicro():     true,
			now.UnixMicro() + 1: true,
			now.UnixMicro() + 2: true,
		},
		maxID: now.UnixMicro() + 1,
	}
	svc := NewIngestService(store)
	svc.now = func() time.Time { return now }

	_, err := svc.Ingest(context.Background(), "hello", time.Time{})
	require.ErrorIs(t, err, appErr.ErrConflict)
}
