package debate

import (
	"fmt"
	"strings"

	"github.com/alienxp03/arena/internal/core"
)

var roleDescriptions = map[core.DebateRole]string{
	core.RoleStrategy:  "You are the Strategy Advisor. Focus on business direction, market positioning, competitive analysis, and long-term planning.",
	core.RoleTech:      "You are the Tech Lead. Focus on architecture, scalability, infrastructure, technical feasibility, and engineering excellence.",
	core.RoleProduct:   "You are the Product Expert. Focus on user experience, feature prioritization, product-market fit, and roadmap planning.",
	core.RoleExecution: "You are the Execution Manager. Focus on resource allocation, timeline planning, dependency mapping, and operational efficiency.",
}

// buildRolePrompt composes one advisor's instruction for a round. The user
// request and prior debate messages are XML-escaped so model output cannot
// forge history entries.
func buildRolePrompt(role core.DebateRole, userMessage string, history []core.ChatMessage, roundNumber int) string {
	var debateContext string
	if len(history) > 0 {
		var msgs []string
		for _, m := range history {
			msgRole := "unknown"
			if m.Meta.Debate != nil {
				msgRole = string(m.Meta.Debate.Role)
			}
			msgs = append(msgs, fmt.Sprintf("<MESSAGE role=%q>\n%s\n</MESSAGE>",
				core.EscapeXML(msgRole), core.EscapeXML(m.Content)))
		}
		debateContext = fmt.Sprintf("\n\n<DEBATE_HISTORY>\n%s\n</DEBATE_HISTORY>", strings.Join(msgs, "\n"))
	}

	instructions := "Provide your initial analysis and recommendations from your domain perspective."
	if roundNumber > 1 {
		instructions = "Review the previous advisor responses in <DEBATE_HISTORY>. Build on their insights, address gaps, challenge assumptions if needed, and refine the collective recommendation."
	}

	return fmt.Sprintf(`%s

<USER_REQUEST>
%s
</USER_REQUEST>
%s

**Round %d Instructions:**
%s

Be concise but thorough. Focus on actionable insights.`,
		roleDescriptions[role], core.EscapeXML(userMessage), debateContext, roundNumber, instructions)
}

// synthesizeRecommendation folds the final round into a single summary. Error
// placeholders are excluded. With consensus the summary leads with the score
// and agreed areas; without it each advisor's position is quoted in full.
func synthesizeRecommendation(responses []core.ChatMessage, consensus *core.ConsensusResult) string {
	if consensus != nil && consensus.HasConsensus {
		var agreementText string
		if len(consensus.AreasOfAgreement) > 0 {
			var bullets []string
			for _, a := range consensus.AreasOfAgreement {
				bullets = append(bullets, "- "+a)
			}
			agreementText = "**Consensus Areas:**\n" + strings.Join(bullets, "\n")
		}

		var lines []string
		for _, r := range responses {
			if r.Meta.Debate == nil || r.Meta.Debate.Error {
				continue
			}
			content := r.Content
			if len(content) > 200 {
				content = content[:200]
			}
			lines = append(lines, fmt.Sprintf("- **%s**: %s...", r.Meta.Debate.Role, content))
		}

		return fmt.Sprintf(`**Final Recommendation (Consensus Score: %.0f%%)**

%s

%s

**Advisor Recommendations:**
%s`, consensus.ConsensusScore*100, consensus.Reasoning, agreementText, strings.Join(lines, "\n"))
	}

	var sections []string
	for _, r := range responses {
		if r.Meta.Debate == nil || r.Meta.Debate.Error {
			continue
		}
		sections = append(sections, fmt.Sprintf("**%s**:\n%s\n", r.Meta.Debate.Role, r.Content))
	}
	return "**Advisory Summary (No Full Consensus)**\n\n" + strings.Join(sections, "\n---\n")
}
