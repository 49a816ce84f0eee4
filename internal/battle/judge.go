package battle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/provider"
)

// DefaultJudgeModelID is used when no judge model is configured.
const DefaultJudgeModelID = "anthropic/claude-sonnet-4"

// Judge pricing per token, used to attribute judging cost across competitors.
const (
	judgeInputTokenCost  = 0.000003
	judgeOutputTokenCost = 0.000015
)

const (
	singleResponseScore = 75.0
	consensusSnippetLen = 200
)

// JudgeResult is the full verdict on one competition round.
type JudgeResult struct {
	Evaluations []core.EvaluationResult `json:"evaluations"`
	Consensus   string                  `json:"consensus"`
	Divergences string                  `json:"divergences"`
}

// Judge scores competing responses against each other.
type Judge struct {
	lookup  provider.Lookup
	modelID string
	logger  *slog.Logger
}

// NewJudge creates a judge backed by the given model. An empty modelID falls
// back to DefaultJudgeModelID.
func NewJudge(lookup provider.Lookup, modelID string, logger *slog.Logger) *Judge {
	if modelID == "" {
		modelID = DefaultJudgeModelID
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Judge{lookup: lookup, modelID: modelID, logger: logger}
}

// Evaluate judges the given responses for a task. With zero responses it
// returns an empty result; with one response it scores without calling the
// judge model. Judge failures degrade to heuristic scores rather than errors.
func (j *Judge) Evaluate(ctx context.Context, taskID, userMessage string, responses []*provider.CompletionResponse) *JudgeResult {
	switch len(responses) {
	case 0:
		return &JudgeResult{}
	case 1:
		return j.evaluateSingle(taskID, responses[0])
	}

	p, ok := j.lookup(j.modelID)
	if !ok {
		j.logger.Warn("judge model unavailable, using heuristic scores", "model", j.modelID)
		return j.fallbackResult(taskID, responses)
	}

	resp, err := p.Complete(ctx, &provider.CompletionRequest{
		ModelID:     j.modelID,
		Messages:    []core.ContextMessage{{Role: "user", Content: buildJudgePrompt(userMessage, responses)}},
		MaxTokens:   4096,
		Temperature: 0.0,
	})
	if err != nil {
		j.logger.Warn("judge call failed, using heuristic scores", "error", err)
		return j.fallbackResult(taskID, responses)
	}

	judgeCost := float64(resp.InputTokens)*judgeInputTokenCost + float64(resp.OutputTokens)*judgeOutputTokenCost
	result, err := j.parseVerdict(taskID, resp.Content, responses, judgeCost)
	if err != nil {
		j.logger.Warn("judge verdict unparseable, using flat scores", "error", err)
		return j.flatResult(taskID, responses, judgeCost)
	}
	return result
}

// evaluateSingle scores a lone response without a judge call. There is
// nothing to compare against, so every criterion gets a neutral score.
func (j *Judge) evaluateSingle(taskID string, resp *provider.CompletionResponse) *JudgeResult {
	criteria := make([]core.EvaluationCriterion, len(criteriaNames))
	for i, name := range criteriaNames {
		criteria[i] = core.EvaluationCriterion{
			Name:      name,
			Score:     singleResponseScore,
			Reasoning: "Single response, no comparison available",
		}
	}
	return &JudgeResult{
		Evaluations: []core.EvaluationResult{{
			ID:               core.NewID(),
			TaskID:           taskID,
			ModelID:          resp.ModelID,
			JudgeModelID:     j.modelID,
			OverallScore:     singleResponseScore,
			Criteria:         criteria,
			Rank:             1,
			TotalCompetitors: 1,
			ResponseTimeMs:   resp.ResponseTimeMs,
			CreatedAt:        time.Now(),
		}},
		Consensus: snippet(resp.Content, consensusSnippetLen),
	}
}

type judgeVerdict struct {
	Evaluations []judgeEvaluation `json:"evaluations"`
	Consensus   string            `json:"consensus"`
	Divergences string            `json:"divergences"`
}

type judgeEvaluation struct {
	ModelID      string                     `json:"model_id"`
	OverallScore float64                    `json:"overall_score"`
	Criteria     []core.EvaluationCriterion `json:"criteria"`
	Strengths    string                     `json:"strengths"`
	Weaknesses   string                     `json:"weaknesses"`
}

func (j *Judge) parseVerdict(taskID, content string, responses []*provider.CompletionResponse, judgeCost float64) (*JudgeResult, error) {
	var verdict judgeVerdict
	if err := json.Unmarshal([]byte(core.ExtractJSON(content)), &verdict); err != nil {
		return nil, fmt.Errorf("parse judge verdict: %w", err)
	}
	if len(verdict.Evaluations) != len(responses) {
		return nil, fmt.Errorf("judge returned %d evaluations for %d responses", len(verdict.Evaluations), len(responses))
	}

	timesByModel := make(map[string]int64, len(responses))
	for _, resp := range responses {
		timesByModel[resp.ModelID] = resp.ResponseTimeMs
	}

	// Every evaluation must name a distinct competitor. Judges sometimes
	// invent or repeat model ids; such a verdict is unusable.
	seen := make(map[string]bool, len(verdict.Evaluations))
	for _, ev := range verdict.Evaluations {
		if _, ok := timesByModel[ev.ModelID]; !ok {
			return nil, fmt.Errorf("judge evaluation names unknown model %q", ev.ModelID)
		}
		if seen[ev.ModelID] {
			return nil, fmt.Errorf("judge evaluation repeats model %q", ev.ModelID)
		}
		seen[ev.ModelID] = true
	}

	perModelCost := judgeCost / float64(len(responses))
	evals := make([]core.EvaluationResult, len(verdict.Evaluations))
	for i, ev := range verdict.Evaluations {
		evals[i] = core.EvaluationResult{
			ID:               core.NewID(),
			TaskID:           taskID,
			ModelID:          ev.ModelID,
			JudgeModelID:     j.modelID,
			OverallScore:     ev.OverallScore,
			Criteria:         ev.Criteria,
			TotalCompetitors: len(responses),
			ResponseTimeMs:   timesByModel[ev.ModelID],
			TokenCost:        perModelCost,
			StrengthSummary:  ev.Strengths,
			WeaknessSummary:  ev.Weaknesses,
			CreatedAt:        time.Now(),
		}
	}

	sort.SliceStable(evals, func(a, b int) bool { return evals[a].OverallScore > evals[b].OverallScore })
	for i := range evals {
		evals[i].Rank = i + 1
	}

	return &JudgeResult{
		Evaluations: evals,
		Consensus:   verdict.Consensus,
		Divergences: verdict.Divergences,
	}, nil
}

// fallbackResult ranks by response speed when the judge itself is down.
func (j *Judge) fallbackResult(taskID string, responses []*provider.CompletionResponse) *JudgeResult {
	ordered := make([]*provider.CompletionResponse, len(responses))
	copy(ordered, responses)
	sort.SliceStable(ordered, func(a, b int) bool { return ordered[a].ResponseTimeMs < ordered[b].ResponseTimeMs })

	evals := make([]core.EvaluationResult, len(ordered))
	for i, resp := range ordered {
		evals[i] = core.EvaluationResult{
			ID:               core.NewID(),
			TaskID:           taskID,
			ModelID:          resp.ModelID,
			JudgeModelID:     "fallback",
			OverallScore:     float64(80 - i*10),
			Rank:             i + 1,
			TotalCompetitors: len(ordered),
			ResponseTimeMs:   resp.ResponseTimeMs,
			CreatedAt:        time.Now(),
		}
	}
	return &JudgeResult{Evaluations: evals}
}

// flatResult gives every response the same score when the judge replied but
// its verdict could not be parsed.
func (j *Judge) flatResult(taskID string, responses []*provider.CompletionResponse, judgeCost float64) *JudgeResult {
	perModelCost := judgeCost / float64(len(responses))
	evals := make([]core.EvaluationResult, len(responses))
	for i, resp := range responses {
		evals[i] = core.EvaluationResult{
			ID:               core.NewID(),
			TaskID:           taskID,
			ModelID:          resp.ModelID,
			JudgeModelID:     j.modelID,
			OverallScore:     70,
			Rank:             i + 1,
			TotalCompetitors: len(responses),
			ResponseTimeMs:   resp.ResponseTimeMs,
			TokenCost:        perModelCost,
			CreatedAt:        time.Now(),
		}
	}
	return &JudgeResult{Evaluations: evals}
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
