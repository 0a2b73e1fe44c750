package extract

import (
	"fmt"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
)

// epubText extracts the text of every document in the book's spine, in
// reading order, joined with newlines. Spine items that cannot be opened or
// parsed are skipped.
func epubText(path string) (string, error) {
	rc, err := epub.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("opening epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return "", fmt.Errorf("epub %s has no rootfile", path)
	}
	book := rc.Rootfiles[0]

	var sections []string
	for _, itemref := range book.Spine.Itemrefs {
		item, err := itemref.Open()
		if err != nil {
			continue
		}
		text, err := htmlText(item)
		item.Close()
		if err != nil || text == "" {
			continue
		}
		sections = append(sections, text)
	}
	return strings.Join(sections, "\n"), nil
}
