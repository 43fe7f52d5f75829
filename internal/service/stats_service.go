package service

import (
	"context"

	"github.com/xxxsen/deskroute/internal/model"
)

type assignmentQueryStore interface {
	ListMessages(ctx context.Context, deptID string, limit int) ([]model.AssignedMessage, error)
	Recent(ctx context.Context, limit int) ([]model.AssignedMessage, error)
	TopDepartments(ctx context.Context, limit int) ([]model.DeptCount, error)
	Queue(ctx context.Context, deptID string, limit int) ([]model.AssignedMessage, error)
	CountByDepartment(ctx context.Context, deptID string) (int64, error)
}

type departmentGetter interface {
	Get(ctx context.Context, deptID string) (*model.Department, error)
}

// StatsService serves the dashboard reads.
type StatsService struct {
	assignments assignmentQueryStore
	departments departmentGetter
}

func NewStatsService(assignments assignmentQueryStore, departments departmentGetter) *StatsService {
	return &StatsService{assignments: assignments, departments: departments}
}

func (s *StatsService) ListAssigned(ctx context.Context, deptID string, limit int) ([]model.AssignedMessage, error) {
	if deptID != "" {
		if _, err := s.departments.Get(ctx, deptID); err != nil {
			return nil, err
		}
	}
	return s.assignments.ListMessages(ctx, deptID, limit)
}

// Recent returns the latest messages, one entry per message even when
// a message went to several departments. The store over-fetches so the
// dedupe still fills the limit.
func (s *StatsService) Recent(ctx context.Context, limit int) ([]model.AssignedMessage, error) {
	rows, err := s.assignments.Recent(ctx, limit*2)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool, len(rows))
	out := make([]model.AssignedMessage, 0, limit)
	for _, row := range rows {
		if seen[row.MsgID] {
			continue
		}
		seen[row.MsgID] = true
		out = append(out, row)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *StatsService) TopDepartments(ctx context.Context, limit int) ([]model.DeptCount, error) {
	return s.assignments.TopDepartments(ctx, limit)
}

func (s *StatsService) Queue(ctx context.Context, deptID string, limit int) ([]model.AssignedMessage, error) {
	if _, err := s.departments.Get(ctx, deptID); err != nil {
		return nil, err
	}
	return s.assignments.Queue(ctx, deptID, limit)
}

func (s *StatsService) Stats(ctx context.Context, deptID string) (*model.DeptStats, error) {
	if _, err := s.departments.Get(ctx, deptID); err != nil {
		return nil, err
	}
	total, err := s.assignments.CountByDepartment(ctx, deptID)
	if err != nil {
		return nil, err
	}
	return &model.DeptStats{DeptID: deptID, TotalAssigned: total}, nil
}
