package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/alienxp03/arena/internal/core"
)

// MarkdownExporter exports conversation transcripts to Markdown format.
type MarkdownExporter struct{}

// Export writes the conversation as Markdown.
func (e *MarkdownExporter) Export(conv *core.Conversation, messages []*core.ChatMessage, w io.Writer) error {
	var sb strings.Builder

	// Title
	sb.WriteString(fmt.Sprintf("# %s\n\n", conv.Title))

	// Metadata
	sb.WriteString("## Conversation Information\n\n")
	sb.WriteString(fmt.Sprintf("- **ID:** `%s`\n", conv.ID))
	sb.WriteString(fmt.Sprintf("- **Status:** %s\n", conv.Status))
	sb.WriteString(fmt.Sprintf("- **Messages:** %d\n", conv.MessageCount))
	sb.WriteString(fmt.Sprintf("- **Created:** %s\n", conv.CreatedAt.Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString(fmt.Sprintf("- **Updated:** %s\n", conv.UpdatedAt.Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("\n")

	// Transcript
	sb.WriteString("## Transcript\n\n")

	if len(messages) == 0 {
		sb.WriteString("*No messages recorded.*\n\n")
	} else {
		for _, msg := range messages {
			sb.WriteString(fmt.Sprintf("### %s\n\n", speakerLabel(msg)))
			sb.WriteString(fmt.Sprintf("*%s*", msg.CreatedAt.Format("3:04 PM")))
			if msg.EvaluationScore != nil {
				sb.WriteString(fmt.Sprintf(" - score %.1f/100", *msg.EvaluationScore))
			}
			if msg.Meta.Debate != nil {
				sb.WriteString(fmt.Sprintf(" - debate round %d", msg.Meta.Debate.Round))
			}
			if msg.Meta.Turn != nil {
				sb.WriteString(fmt.Sprintf(" - responded as %s", msg.Meta.Turn.Reason))
			}
			sb.WriteString("\n\n")
			sb.WriteString(msg.Content)
			sb.WriteString("\n\n---\n\n")
		}
	}

	// Footer
	sb.WriteString("*Exported from arena*\n")

	_, err := w.Write([]byte(sb.String()))
	return err
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return "md"
}
