package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// docxText extracts paragraph text from a DOCX file, one paragraph per line.
func docxText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening docx: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat docx: %w", err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("parsing docx: %w", err)
	}

	var paragraphs []string
	for _, item := range doc.Document.Body.Items {
		if p, ok := item.(*docx.Paragraph); ok {
			paragraphs = append(paragraphs, p.String())
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}
