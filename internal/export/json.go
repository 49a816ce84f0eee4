package export

import (
	"encoding/json"
	"io"

	"github.com/alienxp03/arena/internal/core"
)

// JSONExporter exports conversation transcripts to JSON format.
type JSONExporter struct{}

// ExportData represents the full export structure.
type ExportData struct {
	Conversation *core.Conversation  `json:"conversation"`
	Messages     []*core.ChatMessage `json:"messages"`
}

// Export writes the conversation as JSON.
func (e *JSONExporter) Export(conv *core.Conversation, messages []*core.ChatMessage, w io.Writer) error {
	data := ExportData{
		Conversation: conv,
		Messages:     messages,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return "json"
}
