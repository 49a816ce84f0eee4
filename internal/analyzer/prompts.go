package analyzer

import (
	"fmt"
	"strings"

	"github.com/alienxp03/arena/internal/core"
)

const contextWindow = 5
const contextSnippetLen = 500

func buildAnalysisPrompt(userMessage string, context []core.ContextMessage) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following user request and classify it.\n\n")

	if len(context) > 0 {
		recent := context
		if len(recent) > contextWindow {
			recent = recent[len(recent)-contextWindow:]
		}
		sb.WriteString("Recent conversation:\n")
		for _, msg := range recent {
			content := msg.Content
			if len(content) > contextSnippetLen {
				content = content[:contextSnippetLen] + "..."
			}
			fmt.Fprintf(&sb, "[%s] %s\n", msg.Role, content)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "User request:\n%s\n\n", userMessage)

	sb.WriteString(`Respond with JSON only, in this exact format:
{
  "category": "strategy|technical|market-analysis|financial|legal|creative|research|planning|general",
  "complexity": "simple|moderate|complex|multi-domain",
  "subtasks": [
    {
      "category": "one of the categories above",
      "description": "what this subtask covers",
      "required_capabilities": ["capability tags"],
      "priority": 5
    }
  ]
}

Only include subtasks when the request genuinely decomposes into distinct parts. A simple request has an empty subtasks array.`)

	return sb.String()
}
