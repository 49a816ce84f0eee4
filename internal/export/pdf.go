package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/alienxp03/arena/internal/core"
)

// PDFExporter exports conversation transcripts to PDF format.
type PDFExporter struct{}

// Export writes the conversation as PDF.
func (e *PDFExporter) Export(conv *core.Conversation, messages []*core.ChatMessage, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	// Add first page
	pdf.AddPage()

	// Title
	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(0, 10, e.sanitizeText(conv.Title), "", "C", false)
	pdf.Ln(5)

	// Metadata section
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Conversation Information")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	e.addMetadataRow(pdf, "ID:", conv.ID[:8]+"...")
	e.addMetadataRow(pdf, "Status:", string(conv.Status))
	e.addMetadataRow(pdf, "Messages:", fmt.Sprintf("%d", conv.MessageCount))
	e.addMetadataRow(pdf, "Created:", conv.CreatedAt.Format("January 2, 2006 at 3:04 PM"))
	e.addMetadataRow(pdf, "Updated:", conv.UpdatedAt.Format("January 2, 2006 at 3:04 PM"))
	pdf.Ln(5)

	// Transcript
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Transcript")
	pdf.Ln(8)

	if len(messages) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(0, 6, "No messages recorded.")
		pdf.Ln(6)
	} else {
		for _, msg := range messages {
			// Check if we need a new page
			if pdf.GetY() > 250 {
				pdf.AddPage()
			}

			// Message header with role-colored background
			switch msg.Role {
			case core.RoleUser:
				pdf.SetFillColor(200, 230, 255) // Light blue
			case core.RoleSystem, core.RoleJudge:
				pdf.SetFillColor(235, 235, 235) // Light gray
			default:
				pdf.SetFillColor(200, 255, 200) // Light green
			}

			pdf.SetFont("Arial", "B", 10)
			header := fmt.Sprintf("%s (%s)", speakerLabel(msg), msg.CreatedAt.Format("3:04 PM"))
			if msg.EvaluationScore != nil {
				header = fmt.Sprintf("%s - %.1f/100", header, *msg.EvaluationScore)
			}
			pdf.CellFormat(0, 7, e.sanitizeText(header), "", 1, "", true, 0, "")

			// Message content
			pdf.SetFont("Arial", "", 9)
			pdf.SetFillColor(255, 255, 255)

			content := e.sanitizeText(msg.Content)
			pdf.MultiCell(0, 5, content, "", "", false)
			pdf.Ln(5)
		}
	}

	// Footer
	pdf.SetY(-15)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 10, "Exported from arena", "", 0, "C", false, 0, "")

	return pdf.Output(w)
}

// FileExtension returns the file extension for PDF.
func (e *PDFExporter) FileExtension() string {
	return "pdf"
}

// Helper to add a metadata row
func (e *PDFExporter) addMetadataRow(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(30, 5, label)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 5, value)
	pdf.Ln(5)
}

// Sanitize text for PDF (remove problematic characters)
func (e *PDFExporter) sanitizeText(text string) string {
	// gofpdf uses Windows-1252 encoding by default
	// Replace common Unicode characters that might cause issues
	replacer := strings.NewReplacer(
		"‘", "'", // Left single quote
		"’", "'", // Right single quote
		"“", "\"", // Left double quote
		"”", "\"", // Right double quote
		"–", "-", // En dash
		"—", "--", // Em dash
		"…", "...", // Ellipsis
		"•", "*", // Bullet
		" ", " ", // Non-breaking space
	)
	return replacer.Replace(text)
}
