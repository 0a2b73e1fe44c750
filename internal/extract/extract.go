// Package extract detects document formats and extracts their plain text.
// Supported formats: plain text, PDF, DOCX, EPUB, and HTML.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/corpuskit/novel-analyzer/pkg/errors"
)

// Format identifies a supported document format.
type Format string

const (
	FormatUnknown Format = ""
	FormatText    Format = "text"
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
	FormatEPUB    Format = "epub"
	FormatHTML    Format = "html"
)

// Detect infers the document format from the filename extension. Files with
// no extension are treated as plain text.
func Detect(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case "", ".txt":
		return FormatText
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".epub":
		return FormatEPUB
	case ".html", ".htm":
		return FormatHTML
	default:
		return FormatUnknown
	}
}

// Text extracts the plain text of the file at path according to format.
func Text(path string, format Format) (string, error) {
	switch format {
	case FormatText:
		return textFile(path)
	case FormatPDF:
		return pdfText(path)
	case FormatDOCX:
		return docxText(path)
	case FormatEPUB:
		return epubText(path)
	case FormatHTML:
		return htmlFile(path)
	default:
		return "", apperrors.Newf(apperrors.ErrUnsupportedFormat, 400,
			"unsupported format %q", filepath.Ext(path))
	}
}

func textFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading text file: %w", err)
	}
	// Invalid UTF-8 sequences are dropped rather than rejected.
	return strings.ToValidUTF8(string(data), ""), nil
}
