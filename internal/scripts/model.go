package scripts

import "time"

// ScriptFormat is the detected source format of an uploaded script.
type ScriptFormat string

const (
	FormatPDF  ScriptFormat = "pdf"
	FormatFDX  ScriptFormat = "fdx"
	FormatText ScriptFormat = "text"
)

// Metadata is what gets persisted about an uploaded script. The
// extracted text itself is returned to the caller and never stored;
// only its SHA-256 hash is kept.
type Metadata struct {
	ID          string       `json:"id"`
	FileName    string       `json:"fileName"`
	ContentType string       `json:"contentType"`
	Format      ScriptFormat `json:"format"`
	SizeBytes   int64        `json:"sizeBytes"`
	PageCount   int          `json:"pageCount"`
	CharCount   int          `json:"charCount"`
	Title       string       `json:"title"`
	TextHash    string       `json:"textHash"`
	CreatedAt   time.Time    `json:"createdAt"`
}
