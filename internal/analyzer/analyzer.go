// Package analyzer classifies incoming user requests into tasks.
package analyzer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/provider"
)

// DefaultModelID is the model used for task analysis when none is configured.
const DefaultModelID = "anthropic/claude-3-5-haiku"

// Analyzer turns a raw user message into a classified core.Task.
type Analyzer struct {
	lookup  provider.Lookup
	modelID string
	logger  *slog.Logger
}

// New creates an analyzer backed by the given provider lookup. An empty
// modelID falls back to DefaultModelID.
func New(lookup provider.Lookup, modelID string, logger *slog.Logger) *Analyzer {
	if modelID == "" {
		modelID = DefaultModelID
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{lookup: lookup, modelID: modelID, logger: logger}
}

// Analyze classifies a user message. It never fails: if the analysis model is
// unavailable or returns garbage, the task falls back to a general/moderate
// classification so the pipeline can continue.
func (a *Analyzer) Analyze(ctx context.Context, userMessage, conversationID string, context_ []core.ContextMessage) core.Task {
	task := core.Task{
		ID:             core.NewID(),
		ConversationID: conversationID,
		UserMessage:    userMessage,
		Category:       core.CategoryGeneral,
		Complexity:     core.ComplexityModerate,
		Status:         core.TaskAnalyzing,
		CreatedAt:      time.Now(),
	}

	p, ok := a.lookup(a.modelID)
	if !ok {
		a.logger.Warn("analyzer model unavailable, using fallback classification", "model", a.modelID)
		return task
	}

	resp, err := p.Complete(ctx, &provider.CompletionRequest{
		ModelID:     a.modelID,
		Messages:    []core.ContextMessage{{Role: "user", Content: buildAnalysisPrompt(userMessage, context_)}},
		MaxTokens:   1024,
		Temperature: 0.0,
	})
	if err != nil {
		a.logger.Warn("task analysis failed, using fallback classification", "error", err)
		return task
	}

	parsed, err := parseAnalysis(resp.Content)
	if err != nil {
		a.logger.Warn("task analysis unparseable, using fallback classification", "error", err)
		return task
	}

	task.Category = parsed.Category
	task.Complexity = parsed.Complexity
	for _, st := range parsed.Subtasks {
		caps := make([]core.Capability, len(st.RequiredCapabilities))
		for j, c := range st.RequiredCapabilities {
			caps[j] = core.Capability(c)
		}
		priority := st.Priority
		if priority < 1 || priority > 10 {
			priority = 5
		}
		category := core.TaskCategory(st.Category)
		if !core.ValidCategory(category) {
			category = task.Category
		}
		task.Subtasks = append(task.Subtasks, core.Subtask{
			ID:                   core.NewID(),
			ParentTaskID:         task.ID,
			Category:             category,
			Description:          st.Description,
			RequiredCapabilities: caps,
			Priority:             priority,
			Status:               core.SubtaskPending,
		})
	}
	return task
}

type analysisResponse struct {
	Category   core.TaskCategory   `json:"category"`
	Complexity core.TaskComplexity `json:"complexity"`
	Subtasks   []analysisSubtask   `json:"subtasks"`
}

type analysisSubtask struct {
	Category             string   `json:"category"`
	Description          string   `json:"description"`
	RequiredCapabilities []string `json:"required_capabilities"`
	Priority             int      `json:"priority"`
}

func parseAnalysis(content string) (*analysisResponse, error) {
	var parsed analysisResponse
	if err := json.Unmarshal([]byte(core.ExtractJSON(content)), &parsed); err != nil {
		return nil, err
	}
	if !core.ValidCategory(parsed.Category) {
		parsed.Category = core.CategoryGeneral
	}
	if !core.ValidComplexity(parsed.Complexity) {
		parsed.Complexity = core.ComplexityModerate
	}
	return &parsed, nil
}
