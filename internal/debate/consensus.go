package debate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/provider"
)

const (
	maxReasoningLen  = 2000
	maxConsensusList = 20
)

// Detector asks a judge model whether the current debate round has converged.
type Detector struct {
	lookup  provider.Lookup
	modelID string
}

// NewDetector creates a consensus detector backed by the given judge model.
func NewDetector(lookup provider.Lookup, modelID string) *Detector {
	return &Detector{lookup: lookup, modelID: modelID}
}

// Detect analyzes the current round against the debate so far. A missing
// judge provider is an error; an unparseable judge reply degrades to a
// no-consensus result instead.
func (d *Detector) Detect(ctx context.Context, history, currentRound []core.ChatMessage) (*core.ConsensusResult, error) {
	p, ok := d.lookup(d.modelID)
	if !ok {
		return nil, fmt.Errorf("no provider found for judge model: %s", d.modelID)
	}

	resp, err := p.Complete(ctx, &provider.CompletionRequest{
		ModelID:     d.modelID,
		Messages:    []core.ContextMessage{{Role: "user", Content: buildConsensusPrompt(history, currentRound)}},
		MaxTokens:   1500,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("consensus detection: %w", err)
	}

	return parseConsensusResponse(resp.Content), nil
}

func buildConsensusPrompt(history, currentRound []core.ChatMessage) string {
	var historyText []string
	for _, m := range history {
		label := string(m.Role)
		if m.ModelID != "" {
			label += " - " + m.ModelID
		}
		historyText = append(historyText, fmt.Sprintf("[%s]: %s", label, m.Content))
	}

	var currentText []string
	for _, m := range currentRound {
		label := m.ModelID
		if m.Meta.Debate != nil {
			label = string(m.Meta.Debate.Role)
		}
		currentText = append(currentText, fmt.Sprintf("[%s]: %s", label, m.Content))
	}

	return fmt.Sprintf(`You are a consensus detector for an executive advisory team debate.

**Debate History:**
%s

**Current Round Responses:**
%s

**Your Task:**
Analyze the current round responses and determine if the advisors have reached consensus.

**Consensus Criteria:**
1. Agreement on core recommendations (not necessarily identical wording)
2. No fundamental strategic conflicts
3. Complementary rather than contradictory perspectives
4. Actionable unified direction

**Output Format (JSON):**
{
  "hasConsensus": boolean,
  "consensusScore": number (0-1, where 1 = complete agreement),
  "reasoning": "Brief explanation of why consensus was/wasn't reached",
  "areasOfAgreement": ["area1", "area2"],
  "areasOfDisagreement": ["conflict1", "conflict2"]
}

Respond ONLY with valid JSON.`,
		strings.Join(historyText, "\n\n"),
		strings.Join(currentText, "\n\n"))
}

// parseConsensusResponse coerces whatever JSON the judge produced into a
// well-formed result. Scores are clamped to [0,1], lists are capped, and
// wrong-typed fields fall back to their zero values.
func parseConsensusResponse(content string) *core.ConsensusResult {
	var raw map[string]any
	if err := json.Unmarshal([]byte(core.ExtractJSON(content)), &raw); err != nil {
		return &core.ConsensusResult{
			Reasoning: "Failed to parse consensus detection response",
		}
	}

	result := &core.ConsensusResult{}
	if v, ok := raw["hasConsensus"].(bool); ok {
		result.HasConsensus = v
	}
	if v, ok := raw["consensusScore"].(float64); ok {
		result.ConsensusScore = clamp01(v)
	}
	if v, ok := raw["reasoning"].(string); ok {
		if len(v) > maxReasoningLen {
			v = v[:maxReasoningLen]
		}
		result.Reasoning = v
	}
	result.AreasOfAgreement = stringList(raw["areasOfAgreement"])
	result.AreasOfDisagreement = stringList(raw["areasOfDisagreement"])
	return result
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
			if len(out) == maxConsensusList {
				break
			}
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
