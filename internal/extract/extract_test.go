package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/corpuskit/novel-analyzer/pkg/errors"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		filename string
		want     Format
	}{
		{"novel.txt", FormatText},
		{"novel", FormatText},
		{"Novel.TXT", FormatText},
		{"book.pdf", FormatPDF},
		{"book.docx", FormatDOCX},
		{"book.epub", FormatEPUB},
		{"page.html", FormatHTML},
		{"page.htm", FormatHTML},
		{"archive.zip", FormatUnknown},
		{"data.doc", FormatUnknown},
	}
	for _, tc := range cases {
		if got := Detect(tc.filename); got != tc.want {
			t.Errorf("Detect(%q) = %q, want %q", tc.filename, got, tc.want)
		}
	}
}

func TestTextPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	content := "第一章 缘起\n少年向前走去。"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := Text(path, FormatText)
	if err != nil {
		t.Fatalf("Text returned error: %v", err)
	}
	if got != content {
		t.Errorf("Text = %q, want %q", got, content)
	}
}

func TestTextPlainFileInvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte{'a', 0xff, 'b'}, 0644); err != nil {
		t.Fatal(err)
	}
	got, err := Text(path, FormatText)
	if err != nil {
		t.Fatalf("Text returned error: %v", err)
	}
	if got != "ab" {
		t.Errorf("Text = %q, want invalid bytes dropped (%q)", got, "ab")
	}
}

func TestTextHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	html := `<html><head><title>t</title><style>body{color:red}</style></head>
<body><h1>第一章</h1><script>var x = 1;</script><p>少年  向前
走去。</p></body></html>`
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := Text(path, FormatHTML)
	if err != nil {
		t.Fatalf("Text returned error: %v", err)
	}
	if strings.Contains(got, "var x") || strings.Contains(got, "color:red") {
		t.Errorf("script/style content leaked into text: %q", got)
	}
	if !strings.Contains(got, "第一章") || !strings.Contains(got, "走去。") {
		t.Errorf("visible text missing from %q", got)
	}
	if strings.Contains(got, "  ") || strings.Contains(got, "\n") {
		t.Errorf("whitespace not collapsed: %q", got)
	}
}

func TestTextUnsupported(t *testing.T) {
	_, err := Text("whatever.zip", FormatUnknown)
	if !errors.Is(err, apperrors.ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestTextMissingFile(t *testing.T) {
	if _, err := Text(filepath.Join(t.TempDir(), "gone.txt"), FormatText); err == nil {
		t.Fatal("expected error for missing file")
	}
}
