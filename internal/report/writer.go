package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mandolyte/mdtopdf"

	"github.com/at-ishikawa/studyprep/internal/assessment"
	"github.com/at-ishikawa/studyprep/internal/config"
	"github.com/at-ishikawa/studyprep/internal/content"
)

// Writer stores session reports under an output directory.
type Writer struct {
	outputDirectory string
	templatePath    string
}

// NewWriter creates a new Writer.
func NewWriter(cfg config.ReportsConfig) *Writer {
	return &Writer{
		outputDirectory: cfg.OutputDirectory,
		templatePath:    cfg.Template,
	}
}

// Files are the paths of a written report. PDF is empty unless requested.
type Files struct {
	Markdown string
	PDF      string
}

// Write renders the session to <output>/<session id>.md and optionally converts it to PDF.
func (w *Writer) Write(s *assessment.Session, questions map[string]content.Question, withPDF bool) (Files, error) {
	if err := os.MkdirAll(w.outputDirectory, 0o755); err != nil {
		return Files{}, fmt.Errorf("os.MkdirAll(%s) > %w", w.outputDirectory, err)
	}

	markdownPath := filepath.Join(w.outputDirectory, s.ID+".md")
	file, err := os.Create(markdownPath)
	if err != nil {
		return Files{}, fmt.Errorf("os.Create(%s) > %w", markdownPath, err)
	}
	if err := WriteSessionReport(file, w.templatePath, NewSessionReport(s, questions)); err != nil {
		_ = file.Close()
		return Files{}, err
	}
	if err := file.Close(); err != nil {
		return Files{}, fmt.Errorf("file.Close() > %w", err)
	}

	files := Files{Markdown: markdownPath}
	if !withPDF {
		return files, nil
	}
	if files.PDF, err = ConvertMarkdownToPDF(markdownPath); err != nil {
		return files, err
	}
	return files, nil
}

// ConvertMarkdownToPDF converts a markdown file to a PDF next to it and returns the PDF path.
func ConvertMarkdownToPDF(markdownPath string) (string, error) {
	if !strings.HasSuffix(markdownPath, ".md") {
		return "", fmt.Errorf("input file must have .md extension: %s", markdownPath)
	}

	markdown, err := os.ReadFile(markdownPath)
	if err != nil {
		return "", fmt.Errorf("os.ReadFile(%s) > %w", markdownPath, err)
	}

	pdfPath := strings.TrimSuffix(markdownPath, ".md") + ".pdf"
	renderer := mdtopdf.NewPdfRenderer("P", "A4", pdfPath, "", nil, mdtopdf.LIGHT)
	if err := renderer.Process(markdown); err != nil {
		return "", fmt.Errorf("renderer.Process() > %w", err)
	}

	absPath, err := filepath.Abs(pdfPath)
	if err != nil {
		return pdfPath, nil
	}
	return absPath, nil
}
