package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfText extracts the text layer of every page, joined with newlines.
// Pages without a readable text layer are skipped.
func pdfText(path string) (text string, err error) {
	// The underlying reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing pdf %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n"), nil
}
