package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xxxsen/deskroute/internal/model"
)

// ErrInvalidSelection is returned when the selection call produced
// malformed JSON, no dept_ids key, an empty list, or only identifiers
// outside the candidate set. It is not retried.
var ErrInvalidSelection = errors.New("invalid department selection")

const selectionTemperature = 0.3

const selectionSystemPrompt = "You are an expert at routing customer inquiries to the right department."

// AssignToolName is the single tool offered to the chat model in agent
// mode.
const AssignToolName = "assign_department"

var assignToolParameters = json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {
			"type": "string",
			"description": "The customer inquiry to route to a department"
		}
	},
	"required": ["query"]
}`)

type ManagerConfig struct {
	// Timeout, in seconds, applied per model call.
	Timeout int
}

type Manager struct {
	chat     IChat
	embedder IEmbedder
	cfg      ManagerConfig
}

func NewManager(chat IChat, embedder IEmbedder, cfg ManagerConfig) *Manager {
	return &Manager{chat: chat, embedder: embedder, cfg: cfg}
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
	}
	return ctx, func() {}
}

func (m *Manager) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.embedder.Embed(ctx, text, taskType)
}

func (m *Manager) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.embedder.EmbedBatch(ctx, texts, taskType)
}

func (m *Manager) EmbeddingModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}

// SelectDepartments asks the chat model to pick one or more of the
// supplied candidates for the inquiry. The model sees only the
// candidate list; its answer is intersected with that list, so an
// identifier it invents cannot reach the assignment writer.
func (m *Manager) SelectDepartments(ctx context.Context, content string, candidates []model.Candidate) ([]string, error) {
	if m.chat == nil {
		return nil, fmt.Errorf("chat not configured")
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: empty candidate list", ErrInvalidSelection)
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	raw, err := m.chat.GenerateJSON(ctx, selectionSystemPrompt, buildSelectionPrompt(content, candidates), selectionTemperature)
	if err != nil {
		return nil, err
	}
	ids, err := parseSelection(raw)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(candidates))
	for _, cand := range candidates {
		allowed[cand.DeptID] = true
	}
	selected := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !allowed[id] || seen[id] {
			continue
		}
		seen[id] = true
		selected = append(selected, id)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: no returned id matches a candidate: %s", ErrInvalidSelection, raw)
	}
	return selected, nil
}

func buildSelectionPrompt(content string, candidates []model.Candidate) string {
	var sb strings.Builder
	for _, cand := range candidates {
		fmt.Fprintf(&sb, "- ID: %s, Name: %s, Description: %s\n", cand.DeptID, cand.DeptName, cand.DeptDesc)
	}
	return fmt.Sprintf(`You are an AI assistant that routes customer inquiries to the right department.

Customer inquiry:
%s

Candidate departments:
%s
Select one or more departments best suited to handle this inquiry.
If several departments are involved, you may select all of them.
Choose only from the IDs listed above.

Respond ONLY with JSON in exactly this shape:
{"dept_ids": ["selected_id_1", "selected_id_2", ...]}

Do not include any explanation outside the JSON.`, content, sb.String())
}

// AssignToolSpec describes the routing tool offered in agent mode.
func AssignToolSpec() ToolSpec {
	return ToolSpec{
		Name:        AssignToolName,
		Description: "Route a customer inquiry to one or more company departments. Use it when the customer asks for concrete work to be handled (payroll questions, defects, system errors). Do not use it for greetings, thanks or small talk.",
		Parameters:  assignToolParameters,
	}
}

const agentSystemPrompt = `You are a friendly customer service assistant.

You have one tool, assign_department, which routes an inquiry to the
company department that should handle it. Invoke it only when the
customer describes real work or a problem a department must process.
For greetings, thanks and general questions, answer directly without
the tool.`

// RouteChat runs the single agent turn: the model either invokes the
// assignment tool or answers the customer directly.
func (m *Manager) RouteChat(ctx context.Context, content string) (*ChatTurn, error) {
	if m.chat == nil {
		return nil, fmt.Errorf("chat not configured")
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.chat.GenerateWithTools(ctx, agentSystemPrompt, content, []ToolSpec{AssignToolSpec()}, selectionTemperature)
}

type selectionPayload struct {
	DeptIDs []interface{} `json:"dept_ids"`
}

func parseSelection(output string) ([]string, error) {
	clean := strings.TrimSpace(output)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}

	var payload selectionPayload
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	if len(payload.DeptIDs) == 0 {
		return nil, fmt.Errorf("%w: empty dept_ids", ErrInvalidSelection)
	}
	ids := make([]string, 0, len(payload.DeptIDs))
	for _, raw := range payload.DeptIDs {
		switch v := raw.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				ids = append(ids, trimmed)
			}
		case float64:
			ids = append(ids, strconv.FormatInt(int64(v), 10))
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no usable dept_ids", ErrInvalidSelection)
	}
	return ids, nil
}
