package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"narravox-server/internal/models"
)

// CreateStoryPDF renders the session as a letter-sized PDF. The layout
// mirrors the text export: title, metadata block, cultural context,
// story entries with speaker labels, then cultural insights.
func CreateStoryPDF(data models.SessionExport) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.MultiCell(0, 10, "NARRAVOX STORY", "", "L", false)
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(102, 102, 102)
	pdf.MultiCell(0, 5, fmt.Sprintf("Session ID: %s", data.SessionID), "", "L", false)
	pdf.MultiCell(0, 5, fmt.Sprintf("Created: %s", data.ExportedAt.Format(time.RFC3339)), "", "L", false)
	pdf.MultiCell(0, 5, fmt.Sprintf("Turns: %d", data.TurnCount), "", "L", false)
	pdf.Ln(8)

	if data.CulturalContext != "" {
		writeHeading(pdf, "CULTURAL CONTEXT")
		writeBody(pdf, data.CulturalContext)
		pdf.Ln(6)
	}

	writeHeading(pdf, "STORY")
	for _, entry := range data.Entries {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(77, 77, 77)
		pdf.MultiCell(0, 5, fmt.Sprintf("[%s]", speakerLabel(entry.Role)), "", "L", false)
		writeBody(pdf, entry.Content)
		pdf.Ln(4)
	}

	if len(data.CulturalExplanations) > 0 {
		pdf.Ln(4)
		writeHeading(pdf, "CULTURAL INSIGHTS")
		for _, explanation := range data.CulturalExplanations {
			pdf.SetFont("Helvetica", "B", 11)
			pdf.SetTextColor(0, 0, 0)
			pdf.MultiCell(0, 5, explanation.Label+":", "", "L", false)
			writeBody(pdf, explanation.Text)
			pdf.Ln(2)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf creation failed: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeading(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 7, text, "", "L", false)
	pdf.Ln(2)
}

func writeBody(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 5, text, "", "L", false)
}
