package debate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/provider"
)

func detectorLookup(mock *provider.MockProvider) provider.Lookup {
	return func(modelID string) (provider.Provider, bool) {
		if mock == nil {
			return nil, false
		}
		return mock, true
	}
}

func TestDetect(t *testing.T) {
	ctx := context.Background()

	t.Run("Consensus", func(t *testing.T) {
		mock := provider.NewMockProvider("mock", 0)
		mock.Respond = func(req *provider.CompletionRequest) (string, error) {
			return `{
				"hasConsensus": true,
				"consensusScore": 0.9,
				"reasoning": "All advisors aligned",
				"areasOfAgreement": ["ship it", "start small"],
				"areasOfDisagreement": []
			}`, nil
		}

		d := NewDetector(detectorLookup(mock), "judge/model")
		result, err := d.Detect(ctx, nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !result.HasConsensus {
			t.Error("expected consensus")
		}
		if result.ConsensusScore != 0.9 {
			t.Errorf("wrong score: %v", result.ConsensusScore)
		}
		if len(result.AreasOfAgreement) != 2 {
			t.Errorf("wrong agreement areas: %v", result.AreasOfAgreement)
		}
	})

	t.Run("MissingProvider", func(t *testing.T) {
		d := NewDetector(detectorLookup(nil), "judge/model")
		_, err := d.Detect(ctx, nil, nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "no provider found for judge model") {
			t.Errorf("wrong error: %v", err)
		}
	})

	t.Run("PromptLabels", func(t *testing.T) {
		mock := provider.NewMockProvider("mock", 0)
		var prompt string
		mock.Respond = func(req *provider.CompletionRequest) (string, error) {
			prompt = req.Messages[len(req.Messages)-1].Content
			return `{"hasConsensus": false, "consensusScore": 0.2}`, nil
		}

		history := []core.ChatMessage{
			{Role: core.RoleModel, ModelID: "m1", Content: "earlier point"},
		}
		current := []core.ChatMessage{
			{Role: core.RoleModel, ModelID: "m2", Content: "current point",
				Meta: core.MessageMeta{Debate: &core.DebateMeta{Role: core.RoleTech, Round: 2}}},
		}

		d := NewDetector(detectorLookup(mock), "judge/model")
		if _, err := d.Detect(ctx, history, current); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(prompt, "[model - m1]: earlier point") {
			t.Errorf("history label missing: %s", prompt)
		}
		if !strings.Contains(prompt, "[tech]: current point") {
			t.Errorf("role label missing: %s", prompt)
		}
	})
}

func TestParseConsensusResponse(t *testing.T) {
	t.Run("ClampHigh", func(t *testing.T) {
		result := parseConsensusResponse(`{"hasConsensus": true, "consensusScore": 1.5}`)
		if result.ConsensusScore != 1.0 {
			t.Errorf("not clamped: %v", result.ConsensusScore)
		}
	})

	t.Run("ClampLow", func(t *testing.T) {
		result := parseConsensusResponse(`{"consensusScore": -0.2}`)
		if result.ConsensusScore != 0.0 {
			t.Errorf("not clamped: %v", result.ConsensusScore)
		}
	})

	t.Run("WrongTypes", func(t *testing.T) {
		result := parseConsensusResponse(`{"hasConsensus": "yes", "consensusScore": "high", "reasoning": 42}`)
		if result.HasConsensus {
			t.Error("non-bool coerced to true")
		}
		if result.ConsensusScore != 0 {
			t.Errorf("non-number coerced: %v", result.ConsensusScore)
		}
		if result.Reasoning != "" {
			t.Errorf("non-string coerced: %q", result.Reasoning)
		}
	})

	t.Run("ReasoningTruncated", func(t *testing.T) {
		long := strings.Repeat("x", 3000)
		result := parseConsensusResponse(fmt.Sprintf(`{"reasoning": %q}`, long))
		if len(result.Reasoning) != 2000 {
			t.Errorf("not truncated: %d chars", len(result.Reasoning))
		}
	})

	t.Run("ListCapped", func(t *testing.T) {
		items := make([]string, 30)
		for i := range items {
			items[i] = fmt.Sprintf(`"area %d"`, i)
		}
		result := parseConsensusResponse(fmt.Sprintf(`{"areasOfAgreement": [%s]}`, strings.Join(items, ",")))
		if len(result.AreasOfAgreement) != 20 {
			t.Errorf("not capped: %d items", len(result.AreasOfAgreement))
		}
	})

	t.Run("ListFiltersNonStrings", func(t *testing.T) {
		result := parseConsensusResponse(`{"areasOfAgreement": ["valid", 7, true, "also valid"]}`)
		if len(result.AreasOfAgreement) != 2 {
			t.Errorf("wrong filtering: %v", result.AreasOfAgreement)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		result := parseConsensusResponse("not json at all")
		if result.HasConsensus || result.ConsensusScore != 0 {
			t.Errorf("wrong zero result: %+v", result)
		}
		if result.Reasoning != "Failed to parse consensus detection response" {
			t.Errorf("wrong reasoning: %q", result.Reasoning)
		}
	})
}
