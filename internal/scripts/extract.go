package scripts

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Upload limits. Oversized or overlong scripts are rejected before any
// provider sees them.
const (
	MaxUploadBytes = 10 << 20
	MaxPageCount   = 300

	// Screenplay pages run close to a fixed amount of text, so page
	// count for non-PDF sources is estimated from character count.
	charsPerPage = 1800
)

var (
	ErrTooLarge      = errors.New("script file exceeds size limit")
	ErrTooManyPages  = errors.New("script exceeds page limit")
	ErrUnsupported   = errors.New("unsupported script format")
	ErrEmptyDocument = errors.New("no text could be extracted")
)

// Extracted is the in-memory result of text extraction.
type Extracted struct {
	Text      string
	Title     string
	Format    ScriptFormat
	PageCount int
}

// Extract pulls screenplay text from an uploaded payload. Supported
// formats are PDF, Final Draft (.fdx), and plain text.
func Extract(data []byte, fileName, contentType string) (Extracted, error) {
	if len(data) == 0 {
		return Extracted{}, ErrEmptyDocument
	}
	if len(data) > MaxUploadBytes {
		return Extracted{}, ErrTooLarge
	}

	var out Extracted
	var err error
	switch detectFormat(fileName, contentType, data) {
	case FormatPDF:
		out, err = extractPDF(data)
	case FormatFDX:
		out, err = extractFDX(data)
	case FormatText:
		out, err = extractPlainText(data)
	default:
		return Extracted{}, ErrUnsupported
	}
	if err != nil {
		return Extracted{}, err
	}

	out.Text = strings.TrimSpace(out.Text)
	if out.Text == "" {
		return Extracted{}, ErrEmptyDocument
	}
	if out.PageCount == 0 {
		out.PageCount = estimatePages(out.Text)
	}
	if out.PageCount > MaxPageCount {
		return Extracted{}, ErrTooManyPages
	}
	if out.Title == "" {
		out.Title = titleFromText(out.Text)
	}
	if out.Title == "" {
		out.Title = titleFromFileName(fileName)
	}
	return out, nil
}

func detectFormat(fileName, contentType string, data []byte) ScriptFormat {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "application/pdf":
		return FormatPDF
	case "application/xml", "text/xml":
		return FormatFDX
	case "text/plain":
		return FormatText
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return FormatPDF
	case ".fdx":
		return FormatFDX
	case ".txt", ".fountain":
		return FormatText
	}
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return FormatPDF
	}
	if bytes.Contains(data[:min(len(data), 512)], []byte("<FinalDraft")) {
		return FormatFDX
	}
	return FormatText
}

func extractPDF(data []byte) (Extracted, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Extracted{}, fmt.Errorf("read pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return Extracted{}, fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return Extracted{}, fmt.Errorf("read pdf text: %w", err)
	}
	return Extracted{
		Text:      buf.String(),
		Format:    FormatPDF,
		PageCount: reader.NumPage(),
	}, nil
}

// Final Draft files are XML: paragraphs live under
// FinalDraft/Content/Paragraph, each holding Text elements. The title
// page, when present, is a separate TitlePage element.
type fdxText struct {
	Value string `xml:",chardata"`
}

type fdxParagraph struct {
	Type  string    `xml:"Type,attr"`
	Texts []fdxText `xml:"Text"`
}

type fdxDocument struct {
	Content struct {
		Paragraphs []fdxParagraph `xml:"Paragraph"`
	} `xml:"Content"`
	TitlePage struct {
		Content struct {
			Paragraphs []fdxParagraph `xml:"Paragraph"`
		} `xml:"Content"`
	} `xml:"TitlePage"`
}

func extractFDX(data []byte) (Extracted, error) {
	var doc fdxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Extracted{}, fmt.Errorf("parse fdx: %w", err)
	}

	var b strings.Builder
	for _, para := range doc.Content.Paragraphs {
		line := paragraphText(para.Texts)
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	title := ""
	for _, para := range doc.TitlePage.Content.Paragraphs {
		if line := paragraphText(para.Texts); line != "" {
			title = line
			break
		}
	}

	return Extracted{Text: b.String(), Title: title, Format: FormatFDX}, nil
}

func paragraphText(texts []fdxText) string {
	var b strings.Builder
	for _, t := range texts {
		b.WriteString(t.Value)
	}
	return strings.TrimSpace(b.String())
}

func extractPlainText(data []byte) (Extracted, error) {
	return Extracted{Text: string(data), Format: FormatText}, nil
}

func estimatePages(text string) int {
	pages := (len(text) + charsPerPage - 1) / charsPerPage
	if pages < 1 {
		pages = 1
	}
	return pages
}

// titleFromText takes the first short non-empty line as the title. A
// long first line is scene text, not a title.
func titleFromText(text string) string {
	for _, line := range strings.SplitN(text, "\n", 10) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 80 || looksLikeSceneHeading(line) {
			return ""
		}
		return line
	}
	return ""
}

func looksLikeSceneHeading(line string) bool {
	upper := strings.ToUpper(line)
	return strings.HasPrefix(upper, "INT.") || strings.HasPrefix(upper, "EXT.") ||
		strings.HasPrefix(upper, "FADE IN")
}

func titleFromFileName(fileName string) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.TrimSpace(base)
}
