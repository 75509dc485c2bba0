package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateDocument holds the fields rendered onto a printable
// certificate.
type CertificateDocument struct {
	CertID       string
	StudentName  string
	Skill        string
	SkillLevel   string
	Score        int
	Issuer       string
	Status       string
	EvidenceHash string
	AssetID      string
	IssuedAt     time.Time
}

// PDFExporter renders certificates into printable PDF documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a landscape A4 certificate for the given document.
func (e *PDFExporter) Render(doc CertificateDocument) ([]byte, error) {
	if doc.CertID == "" {
		return nil, fmt.Errorf("pdf requires a certificate id")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 24)
	pdf.CellFormat(0, 14, "CERTIFICATE OF SKILL", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 12, doc.StudentName, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, "has demonstrated verified proficiency in", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("%s (%s)", doc.Skill, doc.SkillLevel), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Verification score: %d/100", doc.Score), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Issued by %s on %s", doc.Issuer, doc.IssuedAt.Format("2 January 2006")), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 8)
	footer := []string{
		"Certificate ID: " + doc.CertID,
		"Status: " + strings.ToUpper(doc.Status),
	}
	if doc.EvidenceHash != "" {
		footer = append(footer, "Evidence hash: "+doc.EvidenceHash)
	}
	if doc.AssetID != "" {
		footer = append(footer, "On-chain asset: "+doc.AssetID)
	}
	for _, line := range footer {
		pdf.CellFormat(0, 5, line, "", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
