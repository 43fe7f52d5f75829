package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/deskroute/internal/ai"
	"github.com/xxxsen/deskroute/internal/model"
	appErr "github.com/xxxsen/deskroute/internal/pkg/errors"
)

type messageStore interface {
	GetContent(ctx context.Context, msgID int64) (string, error)
}

type departmentStore interface {
	List(ctx context.Context) ([]model.Department, error)
}

type assignmentStore interface {
	Create(ctx context.Context, msgID int64, deptID string) error
}

type routerAI interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error)
	SelectDepartments(ctx context.Context, content string, candidates []model.Candidate) ([]string, error)
}

// RouterService implements the embedding pipeline: rank the catalog
// against the message, keep candidates above the threshold, let the
// chat model disambiguate when more than one survives, then write the
// assignment rows.
type RouterService struct {
	messages    messageStore
	departments departmentStore
	assignments assignmentStore
	ai          routerAI
	threshold   float64
	topK        int
}

func NewRouterService(messages messageStore, departments departmentStore,
	assignments assignmentStore, aiMgr routerAI, threshold float64, topK int) *RouterService {
	if topK <= 0 {
		topK = 5
	}
	return &RouterService{
		messages:    messages,
		departments: departments,
		assignments: assignments,
		ai:          aiMgr,
		threshold:   threshold,
		topK:        topK,
	}
}

// Rank returns at most topK departments whose similarity to content is
// at or above the threshold, ordered by similarity descending. Equal
// similarities keep catalog order.
func (s *RouterService) Rank(ctx context.Context, content string) ([]model.Candidate, error) {
	return s.rank(ctx, content, true)
}

// RankAll ranks without the threshold cut. Agent mode uses it: the
// model already decided the inquiry needs routing, so even a weak
// match beats no assignment.
func (s *RouterService) RankAll(ctx context.Context, content string) ([]model.Candidate, error) {
	return s.rank(ctx, content, false)
}

func (s *RouterService) rank(ctx context.Context, content string, applyThreshold bool) ([]model.Candidate, error) {
	depts, err := s.departments.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	if len(depts) == 0 {
		// Pipeline mode treats an empty catalog like nothing clearing
		// the threshold. Agent mode errors: the model already committed
		// to routing, so there is no graceful empty outcome.
		if applyThreshold {
			return []model.Candidate{}, nil
		}
		return nil, appErr.ErrNoDepartments
	}
	query, err := s.ai.Embed(ctx, content, ai.TaskQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	texts := make([]string, 0, len(depts))
	for _, dept := range depts {
		texts = append(texts, dept.EmbedText())
	}
	vectors, err := s.ai.EmbedBatch(ctx, texts, ai.TaskDocument)
	if err != nil {
		return nil, fmt.Errorf("embed departments: %w", err)
	}
	if len(vectors) != len(depts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(depts))
	}
	candidates := make([]model.Candidate, 0, len(depts))
	for i, dept := range depts {
		sim := cosineSimilarity(query, vectors[i])
		if applyThreshold && sim < s.threshold {
			continue
		}
		candidates = append(candidates, model.Candidate{Department: dept, Similarity: sim})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > s.topK {
		candidates = candidates[:s.topK]
	}
	return candidates, nil
}

// Assign runs the full pipeline for a stored message.
func (s *RouterService) Assign(ctx context.Context, msgID int64) (*model.AssignResult, error) {
	content, err := s.messages.GetContent(ctx, msgID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return &model.AssignResult{Status: model.StatusNotFound}, nil
		}
		return nil, err
	}
	candidates, err := s.Rank(ctx, content)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		logutil.GetLogger(ctx).Info("no department above threshold",
			zap.Int64("msg_id", msgID), zap.Float64("threshold", s.threshold))
		return &model.AssignResult{Status: model.StatusNoCandidates}, nil
	}
	deptIDs, err := s.selectFrom(ctx, content, candidates)
	if err != nil {
		return nil, err
	}
	if err := s.writeAssignments(ctx, msgID, deptIDs); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("message assigned",
		zap.Int64("msg_id", msgID), zap.Strings("dept_ids", deptIDs))
	return &model.AssignResult{Status: model.StatusAssigned, DeptIDs: deptIDs}, nil
}

// selectFrom picks the final department ids from a non-empty candidate
// list. The disambiguator runs even for a single candidate: the model
// confirms the match and its answer goes through the same intersection
// check.
func (s *RouterService) selectFrom(ctx context.Context, content string, candidates []model.Candidate) ([]string, error) {
	deptIDs, err := s.ai.SelectDepartments(ctx, content, candidates)
	if err != nil {
		return nil, fmt.Errorf("select departments: %w", err)
	}
	return deptIDs, nil
}

// writeAssignments inserts one row per department. A duplicate pair is
// success: the message is already where it should be.
func (s *RouterService) writeAssignments(ctx context.Context, msgID int64, deptIDs []string) error {
	for _, deptID := range deptIDs {
		err := s.assignments.Create(ctx, msgID, deptID)
		if err == nil {
			continue
		}
		if errors.Is(err, appErr.ErrConflict) {
			logutil.GetLogger(ctx).Debug("assignment already exists",
				zap.Int64("msg_id", msgID), zap.String("dept_id", deptID))
			continue
		}
		return fmt.Errorf("write assignment msg=%d dept=%s: %w", msgID, deptID, err)
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
