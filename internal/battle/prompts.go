package battle

import (
	"fmt"
	"strings"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/provider"
)

// criteriaNames are the six dimensions every judged response is scored on.
var criteriaNames = []string{"accuracy", "depth", "actionability", "clarity", "creativity", "relevance"}

func buildCompetitionPrompt(task core.Task) string {
	return fmt.Sprintf(`You are an expert AI participating in a competitive evaluation. Provide the highest quality response possible.

Task Category: %s
Complexity: %s

Guidelines:
- Be thorough but concise
- Provide specific, actionable insights
- Use structured formatting for complex analyses
- Back claims with reasoning
- Do NOT mention that you are competing or being evaluated
- Focus entirely on helping the user with their request`, task.Category, task.Complexity)
}

func buildJudgePrompt(userMessage string, responses []*provider.CompletionResponse) string {
	var sb strings.Builder
	sb.WriteString("You are an impartial judge comparing model responses to the same request.\n\n")
	fmt.Fprintf(&sb, "Original request:\n%s\n\n", userMessage)

	for i, resp := range responses {
		fmt.Fprintf(&sb, "### Response %d (model: %s)\n%s\n\n", i+1, resp.ModelID, resp.Content)
	}

	sb.WriteString(`Score each response on these criteria, 0-100 each:
- accuracy: factual correctness and soundness
- depth: thoroughness of analysis
- actionability: how directly the reader can act on it
- clarity: structure and readability
- creativity: novel framing or insight
- relevance: how well it addresses the actual request

Respond with JSON only, in this exact format:
{
  "evaluations": [
    {
      "model_id": "the model id",
      "overall_score": 85,
      "criteria": [
        {"name": "accuracy", "score": 90, "reasoning": "brief reasoning"}
      ],
      "strengths": "what this response did well",
      "weaknesses": "where it fell short"
    }
  ],
  "consensus": "points the responses agree on",
  "divergences": "where they materially disagree"
}

Include all six criteria for every response.`)

	return sb.String()
}
