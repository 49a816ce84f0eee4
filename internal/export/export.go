// Package export handles exporting conversation transcripts to various
// formats.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/alienxp03/arena/internal/core"
)

// Format represents an export format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
	FormatJSON     Format = "json"
)

// Exporter defines the interface for exporting conversation transcripts.
type Exporter interface {
	Export(conv *core.Conversation, messages []*core.ChatMessage, w io.Writer) error
	FileExtension() string
}

// GetExporter returns an exporter for the given format.
func GetExporter(format Format) (Exporter, error) {
	switch format {
	case FormatMarkdown:
		return &MarkdownExporter{}, nil
	case FormatPDF:
		return &PDFExporter{}, nil
	case FormatJSON:
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// GenerateFilename creates a filename for the export.
func GenerateFilename(conv *core.Conversation, ext string) string {
	// Sanitize title for filename
	title := conv.Title
	if len(title) > 50 {
		title = title[:50]
	}

	// Replace unsafe characters
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "",
	)
	title = replacer.Replace(title)

	timestamp := conv.CreatedAt.Format("20060102")
	return fmt.Sprintf("conversation_%s_%s.%s", timestamp, title, ext)
}

// Helper to label who authored a message
func speakerLabel(msg *core.ChatMessage) string {
	switch msg.Role {
	case core.RoleUser:
		return "User"
	case core.RoleSystem:
		return "System"
	case core.RoleJudge:
		return "Judge"
	default:
		if msg.Meta.Debate != nil {
			return fmt.Sprintf("%s (%s advisor)", msg.ModelID, msg.Meta.Debate.Role)
		}
		if msg.ModelID != "" {
			return msg.ModelID
		}
		return "Model"
	}
}
