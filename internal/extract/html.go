package extract

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// htmlFile extracts the visible text of an HTML file.
func htmlFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening html: %w", err)
	}
	defer f.Close()
	return htmlText(f)
}

// htmlText strips tags from an HTML document and returns its visible text
// with whitespace runs collapsed to single spaces. Script and style content
// is removed.
func htmlText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}
	return strings.Join(strings.Fields(text), " "), nil
}
