package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/deskroute/internal/ai"
	"github.com/xxxsen/deskroute/internal/model"
	appErr "github.com/xxxsen/deskroute/internal/pkg/errors"
)

type ranker interface {
	RankAll(ctx context.Context, content string) ([]model.Candidate, error)
}

type agentAI interface {
	RouteChat(ctx context.Context, content string) (*ai.ChatTurn, error)
	SelectDepartments(ctx context.Context, content string, candidates []model.Candidate) ([]string, error)
}

// AgentService is the tool-calling variant of the pipeline. The chat
// model decides whether the message needs routing at all; when it
// invokes the assignment tool, ranking runs without a threshold and
// disambiguation picks the final departments.
type AgentService struct {
	messages    messageStore
	assignments assignmentStore
	ranker      ranker
	ai          agentAI
}

func NewAgentService(messages messageStore, assignments assignmentStore, rk ranker, aiMgr agentAI) *AgentService {
	return &AgentService{
		messages:    messages,
		assignments: assignments,
		ranker:      rk,
		ai:          aiMgr,
	}
}

type assignToolArgs struct {
	Query string `json:"query"`
}

func (s *AgentService) Assign(ctx context.Context, msgID int64) (*model.AssignResult, error) {
	content, err := s.messages.GetContent(ctx, msgID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return &model.AssignResult{Status: model.StatusNotFound}, nil
		}
		return nil, err
	}
	turn, err := s.ai.RouteChat(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("route chat: %w", err)
	}
	query, invoked := extractAssignQuery(turn)
	if !invoked {
		logutil.GetLogger(ctx).Info("agent answered without routing", zap.Int64("msg_id", msgID))
		return &model.AssignResult{Status: model.StatusGeneralChat, Reply: turn.Text}, nil
	}
	if query == "" {
		query = content
	}
	candidates, err := s.ranker.RankAll(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &model.AssignResult{Status: model.StatusNoCandidates}, nil
	}
	deptIDs, err := s.ai.SelectDepartments(ctx, query, candidates)
	if err != nil {
		return nil, fmt.Errorf("select departments: %w", err)
	}
	for _, deptID := range deptIDs {
		if err := s.assignments.Create(ctx, msgID, deptID); err != nil && !appErr.IsConflict(err) {
			return nil, fmt.Errorf("write assignment msg=%d dept=%s: %w", msgID, deptID, err)
		}
	}
	logutil.GetLogger(ctx).Info("message assigned by agent",
		zap.Int64("msg_id", msgID), zap.Strings("dept_ids", deptIDs))
	return &model.AssignResult{Status: model.StatusAssigned, DeptIDs: deptIDs, Reply: turn.Text}, nil
}

// extractAssignQuery returns the query argument of the first
// assign_department call, and whether the tool was invoked at all.
func extractAssignQuery(turn *ai.ChatTurn) (string, bool) {
	if turn == nil {
		return "", false
	}
	for _, call := range turn.ToolCalls {
		if call.Name != ai.AssignToolName {
			continue
		}
		var args assignToolArgs
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return "", true
		}
		return strings.TrimSpace(args.Query), true
	}
	return "", false
}
