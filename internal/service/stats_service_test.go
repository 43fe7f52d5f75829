package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/deskroute/internal/model"
	appErr "github.com/xxxsen/deskroute/internal/pkg/errors"
)

type fakeAssignmentQuery struct {
	recent []model.AssignedMessage
	counts map[string]int64
}

func (f *fakeAssignmentQuery) ListMessages(ctx context.Context, deptID string, limit int) ([]model.AssignedMessage, error) {
	return f.recent, nil
}

func (f *fakeAssignmentQuery) Recent(ctx context.Context, limit int) ([]model.AssignedMessage, error) {
	if limit > len(f.recent) {
		limit = len(f.recent)
	}
	return f.recent[:limit], nil
}

func (f *fakeAssignmentQuery) TopDepartments(ctx context.Context, limit int) ([]model.DeptCount, error) {
	return nil, nil
}

func (f *fakeAssignmentQuery) Queue(ctx context.Context, deptID string, limit int) ([]model.AssignedMessage, error) {
	return f.recent, nil
}

func (f *fakeAssignmentQuery) CountByDepartment(ctx context.Context, deptID string) (int64, error) {
	return f.counts[deptID], nil
}

type fakeDeptGetter struct {
	known map[string]bool
}

func (f *fakeDeptGetter) Get(ctx context.Context, deptID string) (*model.Department, error) {
	if !f.known[deptID] {
		return nil, appErr.ErrNotFound
	}
	return &model.Department{DeptID: deptID}, nil
}

func assigned(msgID int64, deptID string) model.AssignedMessage {
	return model.AssignedMessage{MsgID: msgID, DeptID: deptID, Content: "c", Timestamp: time.Now()}
}

func TestRecent_DedupesMultiDepartmentMessages(t *testing.T) {
	store := &fakeAssignmentQuery{recent: []model.AssignedMessage{
		assigned(3, "HR"),
		assigned(3, "IT"),
		assigned(2, "HR"),
		assigned(1, "IT"),
	}}
	svc := NewStatsService(store, &fakeDeptGetter{})

	out, err := svc.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, int64(3), out[0].MsgID)
	require.Equal(t, int64(2), out[1].MsgID)
}

func TestQueue_UnknownDepartment(t *testing.T) {
	svc := NewStatsService(&fakeAssignmentQuery{}, &fakeDeptGetter{})

	_, err := svc.Queue(context.Background(), "NOPE", 10)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestStats_ReturnsTotal(t *testing.T) {
	store := &fakeAssignmentQuery{counts: map[string]int64{"HR": 7}}
	svc := NewStatsService(store, &fakeDeptGetter{known: map[string]bool{"HR": true}})

	stats, err := svc.Stats(context.Background(), "HR")
	require.NoError(t, err)
	require.Equal(t, "HR", stats.DeptID)
	require.Equal(t, int64(7), stats.TotalAssigned)
}
