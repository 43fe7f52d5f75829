package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/deskroute/internal/model"
)

type stubChat struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubChat) Generate(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func (s *stubChat) GenerateJSON(ctx context.Context, system string, prompt string, temperature float32) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func (s *stubChat) GenerateWithTools(ctx context.Context, system string, prompt string, tools []ToolSpec, temperature float32) (*ChatTurn, error) {
	s.prompts = append(s.prompts, prompt)
	return &ChatTurn{Text: s.reply}, s.err
}

func candidates() []model.Candidate {
	return []model.Candidate{
		{Department: model.Department{DeptID: "HR", DeptName: "인사팀", DeptDesc: "급여 및 인사"}, Similarity: 0.82},
		{Department: model.Department{DeptID: "IT", DeptName: "전산팀", DeptDesc: "시스템 오류"}, Similarity: 0.41},
	}
}

func TestParseSelection_PlainJSON(t *testing.T) {
	ids, err := parseSelection(`{"dept_ids": ["HR", "IT"]}`)
	require.NoError(t, err)
	require.Equal(t, []string{"HR", "IT"}, ids)
}

func TestParseSelection_CodeFenceAndNumbers(t *testing.T) {
	ids, err := parseSelection("```json\n{\"dept_ids\": [3, \"HR\"]}\n```")
	require.NoError(t, err)
	require.Equal(t, []string{"3", "HR"}, ids)
}

func TestParseSelection_Invalid(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"dept_ids": []}`, `{"other": ["HR"]}`} {
		_, err := parseSelection(raw)
		require.ErrorIs(t, err, ErrInvalidSelection, "input %q", raw)
	}
}

func TestSelectDepartments_IntersectsWithCandidates(t *testing.T) {
	chat := &stubChat{reply: `{"dept_ids": ["HR", "SALES", "HR"]}`}
	m := NewManager(chat, nil, ManagerConfig{})
	ids, err := m.SelectDepartments(context.Background(), "급여 문의입니다", candidates())
	require.NoError(t, err)
	require.Equal(t, []string{"HR"}, ids)
}

func TestSelectDepartments_AllOutOfSet(t *testing.T) {
	chat := &stubChat{reply: `{"dept_ids": ["SALES"]}`}
	m := NewManager(chat, nil, ManagerConfig{})
	_, err := m.SelectDepartments(context.Background(), "급여 문의입니다", candidates())
	require.ErrorIs(t, err, ErrInvalidSelection)
}

func TestSelectDepartments_PromptListsOnlyCandidates(t *testing.T) {
	chat := &stubChat{reply: `{"dept_ids": ["HR"]}`}
	m := NewManager(chat, nil, ManagerConfig{})
	_, err := m.SelectDepartments(context.Background(), "급여 문의입니다", candidates())
	require.NoError(t, err)
	require.Len(t, chat.prompts, 1)
	require.True(t, strings.Contains(chat.prompts[0], "ID: HR"))
	require.True(t, strings.Contains(chat.prompts[0], "ID: IT"))
	require.True(t, strings.Contains(chat.prompts[0], "급여 문의입니다"))
}

func TestSelectDepartments_ChatErrorPropagates(t *testing.T) {
	wantErr := errors.New("upstream down")
	chat := &stubChat{err: wantErr}
	m := NewManager(chat, nil, ManagerConfig{})
	_, err := m.SelectDepartments(context.Background(), "급여 문의입니다", candidates())
	require.ErrorIs(t, err, wantErr)
}
