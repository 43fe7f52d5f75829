package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/deskroute/internal/model"
	appErr "github.com/xxxsen/deskroute/internal/pkg/errors"
)

type fakeMessages struct {
	contents map[int64]string
}

func (f *fakeMessages) GetContent(ctx context.Context, msgID int64) (string, error) {
	content, ok := f.contents[msgID]
	if !ok {
		return "", appErr.ErrNotFound
	}
	return content, nil
}

type fakeDepartments struct {
	depts []model.Department
}

func (f *fakeDepartments) List(ctx context.Context) ([]model.Department, error) {
	return f.depts, nil
}

type fakeAssignments struct {
	rows    map[string]bool
	created []string
}

func (f *fakeAssignments) Create(ctx context.Context, msgID int64, deptID string) error {
	if f.rows == nil {
		f.rows = make(map[string]bool)
	}
	key := fmt.Sprintf("%d/%s", msgID, deptID)
	if f.rows[key] {
		return appErr.ErrConflict
	}
	f.rows[key] = true
	f.created = append(f.created, key)
	return nil
}

type fakeRouterAI struct {
	vectors        map[string][]float32
	selected       []string
	selectErr      error
	selectCalls    int
	lastCandidates []model.Candidate
}

func (f *fakeRouterAI) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeRouterAI) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := f.Embed(ctx, text, taskType)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func (f *fakeRouterAI) SelectDepartments(ctx context.Context, content string, candidates []model.Candidate) ([]string, error) {
	f.selectCalls++
	f.lastCandidates = candidates
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	return f.selected, nil
}

func dept(id, name, desc string) model.Department {
	return model.Department{DeptID: id, DeptName: name, DeptDesc: desc}
}

func TestRank_SortedDescendingAndCapped(t *testing.T) {
	depts := &fakeDepartments{depts: []model.Department{
		dept("A", "Alpha", "alpha work"),
		dept("B", "Beta", "beta work"),
		dept("C", "Gamma", "gamma work"),
	}}
	aiMgr := &fakeRouterAI{vectors: map[string][]float32{
		"query":            {1, 0, 0},
		"Alpha alpha work": {0.5, 0.5, 0},
		"Beta beta work":   {1, 0, 0},
		"Gamma gamma work": {0.9, 0.1, 0},
	}}
	svc := NewRouterService(&fakeMessages{}, depts, &fakeAssignments{}, aiMgr, 0.1, 2)

	candidates, err := svc.Rank(context.Background(), "query")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.Equal(t, "B", candidates[0].DeptID)
	require.Equal(t, "C", candidates[1].DeptID)
	require.Greater(t, candidates[0].Similarity, candidates[1].Similarity)
}

func TestRank_ThresholdFilters(t *testing.T) {
	depts := &fakeDepartments{depts: []model.Department{
		dept("A", "Alpha", "alpha work"),
		dept("B", "Beta", "beta work"),
	}}
	aiMgr := &fakeRouterAI{vectors: map[string][]float32{
		"query":            {1, 0, 0},
		"Alpha alpha work": {1, 0, 0},
		"Beta beta work":   {0, 1, 0},
	}}
	svc := NewRouterService(&fakeMessages{}, depts, &fakeAssignments{}, aiMgr, 0.5, 5)

	candidates, err := svc.Rank(context.Background(), "query")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "A", candidates[0].DeptID)
}

func TestRank_ThresholdMonotonic(t *testing.T) {
	depts := &fakeDepartments{depts: []model.Department{
		dept("A", "Alpha", "alpha work"),
		dept("B", "Beta", "beta work"),
		dept("C", "Gamma", "gamma work"),
	}}
	aiMgr := &fakeRouterAI{vectors: map[string][]float32{
		"query":            {1, 0, 0},
		"Alpha alpha work": {0.95, 0.05, 0},
		"Beta beta work":   {0.5, 0.5, 0},
		"Gamma gamma work": {0.3, 0.7, 0},
	}}
	// cosines: Alpha ~0.999, Beta ~0.707, Gamma ~0.394
	loose := NewRouterService(&fakeMessages{}, depts, &fakeAssignments{}, aiMgr, 0.2, 5)
	strict := NewRouterService(&fakeMessages{}, depts, &fakeAssignments{}, aiMgr, 0.6, 5)

	looseRes, err := loose.Rank(context.Background(), "query")
	require.NoError(t, err)
	strictRes, err := strict.Rank(context.Background(), "query")
	require.NoError(t, err)
	require.Greater(t, len(looseRes), len(strictRes))

	// raising the threshold only removes candidates, never adds any
	looseIDs := make(map[string]bool, len(looseRes))
	for _, cand := range looseRes {
		looseIDs[cand.DeptID] = true
	}
	for _, cand := range strictRes {
		require.True(t, looseIDs[cand.DeptID], "candidate %s missing under the looser threshold", cand.DeptID)
	}
}

func TestRankAll_KeepsWeakMatches(t *testing.T) {
	depts := &fakeDepartments{depts: []model.Department{
		dept("A", "Alpha", "alpha work"),
		dept("B", "Beta", "beta work"),
	}}
	aiMgr := &fakeRouterAI{vectors: map[string][]float32{
		"query":            {1, 0, 0},
		"Alpha alpha work": {1, 0, 0},
		"Beta beta work":   {0, 1, 0},
	}}
	svc := NewRouterService(&fakeMessages{}, depts, &fakeAssignments{}, aiMgr, 0.5, 5)

	candidates, err := svc.RankAll(context.Background(), "query")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
}

func TestRankAll_EmptyCatalogErrors(t *testing.T) {
	svc := NewRouterService(&fakeMessages{}, &fakeDepartments{}, &fakeAssignments{}, &fakeRouterAI{}, 0.3, 5)

	_, err := svc.RankAll(context.Background(), "query")
	require.ErrorIs(t, err, appErr.ErrNoDepartments)
}

func TestAssign_MessageNotFound(t *testing.T) {
	assignments := &fakeAssignments{}
	svc := NewRouterService(&fakeMessages{}, &fakeDepartments{depts: []model.Department{dept("A", "Alpha", "x")}},
		assignments, &fakeRouterAI{}, 0.3, 5)

	res, err := svc.Assign(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, model.StatusNotFound, res.Status)
	require.Empty(t, assignments.created)
}

func TestAssign_EmptyCatalogIsNoCandidates(t *testing.T) {
	messages := &fakeMessages{contents: map[int64]string{1: "help"}}
	aiMgr := &fakeRouterAI{}
	assignments := &fakeAssignments{}
	svc := NewRouterService(messages, &fakeDepartments{}, assignments, aiMgr, 0.3, 5)

	res, err := svc.Assign(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, model.StatusNoCandidates, res.Status)
	require.Zero(t, aiMgr.selectCalls)
	require.Empty(t, assignments.created)
}

func TestAssign_NoCandidateAboveThreshold(t *testing.T) {
	messages := &fakeMessages{contents: map[int64]string{1: "query"}}
	depts := &fakeDepartments{depts: []model.Department{dept("A", "Alpha", "alpha work")}}
	aiMgr := &fakeRouterAI{vectors: map[string][]float32{
		"query":            {1, 0, 0},
		"Alpha alpha work": {0, 1, 0},
	}}
	assignments := &fakeAssignments{}
	svc := NewRouterService(messages, depts, assignments, aiMgr, 0.3, 5)

	res, err := svc.Assign(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, model.StatusNoCandidates, res.Status)
	require.Zero(t, aiMgr.selectCalls)
	require.Empty(t, assignments.created)
}

func TestAssign_SingleCandidateStillDisambiguated(t *testing.T) {
	messages := &fakeMessages{contents: map[int64]string{1: "query"}}
	depts := &fakeDepartments{depts: []model.Department{
		dept("A", "Alpha", "alpha work"),
		dept("B", "Beta", "beta work"),
	}}
	aiMgr := &fakeRouterAI{
		vectors: map[string][]float32{
			"query":            {1, 0, 0},
			"Alpha alpha work": {1, 0, 0},
			"Beta beta work":   {0, 1, 0},
		},
		selected: []string{"A"},
	}
	assignments := &fakeAssignments{}
	svc := NewRouterService(messages, depts, assignments, aiMgr, 0.5, 5)

	res, err := svc.Assign(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, model.StatusAssigned, res.Status)
	require.Equal(t, []string{"A"}, res.DeptIDs)
	require.Equal(t, 1, aiMgr.selectCalls)
	require.Len(t, aiMgr.lastCandidates, 1)
}

func TestAssign_SingleCandidateSelectionErrorPropagates(t *testing.T) {
	messages := &fakeMessages{contents: map[int64]string{1: "query"}}
	depts := &fakeDepartments{depts: []model.Department{dept("A", "Alpha", "alpha work")}}
	aiMgr := &fakeRouterAI{
		vectors: map[string][]float32{
			"query":            {1, 0, 0},
			"Alpha alpha work": {1, 0, 0},
		},
		selectErr: appErr.ErrInternal,
	}
	assignments := &fakeAssignments{}
	svc := NewRouterService(messages, depts, assignments, aiMgr, 0.3, 5)

	_, err := svc.Assign(context.Background(), 1)
	require.ErrorIs(t, err, appErr.ErrInternal)
	require.Empty(t, assignments.created)
}

func TestAssign_MultipleCandidatesUseSelection(t *testing.T) {
	messages := &fakeMessages{contents: map[int64]string{1: "query"}}
	depts := &fakeDepartments{depts: []model.Department{
		dept("A", "Alpha", "alpha work"),
		dept("B", "Beta", "beta work"),
	}}
	aiMgr := &fakeRouterAI{
		vectors: map[string][]float32{
			"query":            {1, 0, 0},
			"Alpha alpha work": {0.9, 0.1, 0},
			"Beta beta work":   {0.8, 0.2, 0},
		},
		selected: []string{"B"},
	}
	assignments := &fakeAssignments{}
	svc := NewRouterService(messages, depts, assignments, aiMgr, 0.3, 5)

	res, err := svc.Assign(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, model.StatusAssigned, res.Status)
	require.Equal(t, []string{"B"}, res.DeptIDs)
	require.Equal(t, 1, aiMgr.selectCalls)
	require.Equal(t, []string{"1/B"}, assignments.created)
}

func TestAssign_DuplicateRowIsSuccess(t *testing.T) {
	messages := &fakeMessages{contents: map[int64]string{1: "query"}}
	depts := &fakeDepartments{depts: []model.Department{dept("A", "Alpha", "alpha work")}}
	aiMgr := &fakeRouterAI{
		vectors: map[string][]float32{
			"query":            {1, 0, 0},
			"Alpha alpha work": {1, 0, 0},
		},
		selected: []string{"A"},
	}
	assignments := &fakeAssignments{rows: map[string]bool{"1/A": true}}
	svc := NewRouterService(messages, depts, assignments, aiMgr, 0.3, 5)

	res, err := svc.Assign(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, model.StatusAssigned, res.Status)
	require.Empty(t, assignments.created)
}

func TestAssign_SalaryInquiryRoutedToHR(t *testing.T) {
	messages := &fakeMessages{contents: map[int64]string{1: "급여 문의입니다"}}
	depts := &fakeDepartments{depts: []model.Department{
		dept("IT", "IT지원팀", "사내 시스템 및 장비 문의"),
		dept("HR", "인사팀", "급여, 휴가, 복지 문의"),
	}}
	aiMgr := &fakeRouterAI{
		vectors: map[string][]float32{
			"급여 문의입니다":               {1, 0, 0},
			"인사팀 급여, 휴가, 복지 문의":      {0.9, 0.4, 0},
			"IT지원팀 사내 시스템 및 장비 문의":   {0.4, 0.9, 0},
		},
		selected: []string{"HR"},
	}
	assignments := &fakeAssignments{}
	svc := NewRouterService(messages, depts, assignments, aiMgr, 0.3, 5)

	res, err := svc.Assign(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, model.StatusAssigned, res.Status)
	require.Equal(t, []string{"HR"}, res.DeptIDs)
	// both cleared the threshold, HR ranked first
	require.Len(t, aiMgr.lastCandidates, 2)
	require.Equal(t, "HR", aiMgr.lastCandidates[0].DeptID)
	require.Equal(t, "IT", aiMgr.lastCandidates[1].DeptID)
	require.Equal(t, []string{"1/HR"}, assignments.created)
}
