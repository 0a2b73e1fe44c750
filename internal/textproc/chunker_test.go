package textproc

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkWindowAndOverlap(t *testing.T) {
	text := "abcdefghij" // 10 runes
	chunks := Chunk(text, 4, 1)
	want := []string{"abcd", "defg", "ghij", "j"}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks %v, want %d", len(chunks), chunks, len(want))
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk[%d] = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestChunkNoOverlap(t *testing.T) {
	chunks := Chunk("abcdefghij", 5, 0)
	if len(chunks) != 2 || chunks[0] != "abcde" || chunks[1] != "fghij" {
		t.Errorf("chunks = %v, want [abcde fghij]", chunks)
	}
}

func TestChunkCollapsesWhitespace(t *testing.T) {
	chunks := Chunk("a \t\n b\r\n\r\nc", 100, 0)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0] != "a b c" {
		t.Errorf("chunk = %q, want %q", chunks[0], "a b c")
	}
}

func TestNormalizeUnicodeWhitespace(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"少年　　修炼", "少年 修炼"},      // ideographic-space paragraph indent
		{"少年 修炼", "少年 修炼"},           // no-break space
		{"第一章　少年\n　　修炼", "第一章 少年 修炼"},
		{"a b c", "a b c"},       // line/paragraph separators
		{"  少年  ", " 少年 "},                // leading/trailing runs kept as one space
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestChunkStepFloor(t *testing.T) {
	// overlap >= size must still advance one rune per window.
	chunks := Chunk("abc", 2, 5)
	want := []string{"ab", "bc", "c"}
	if len(chunks) != len(want) {
		t.Fatalf("got %v, want %v", chunks, want)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk[%d] = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestChunkRuneSafety(t *testing.T) {
	text := strings.Repeat("修炼之道", 100)
	for _, chunk := range Chunk(text, 7, 2) {
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk is not valid UTF-8: %q", chunk)
		}
		if utf8.RuneCountInString(chunk) > 7 {
			t.Fatalf("chunk longer than window: %q", chunk)
		}
	}
}

func TestChunkEmpty(t *testing.T) {
	if chunks := Chunk("", 10, 2); chunks != nil {
		t.Errorf("Chunk(\"\") = %v, want nil", chunks)
	}
	if chunks := Chunk("abc", 0, 0); chunks != nil {
		t.Errorf("Chunk with size 0 = %v, want nil", chunks)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("少年向前走", 3); got != "少年向" {
		t.Errorf("Truncate = %q, want 少年向", got)
	}
	if got := Truncate("ab", 10); got != "ab" {
		t.Errorf("Truncate = %q, want ab", got)
	}
	if got := Truncate("ab", 0); got != "" {
		t.Errorf("Truncate = %q, want empty", got)
	}
}

func BenchmarkChunk(b *testing.B) {
	text := strings.Repeat("少年握紧手中的长剑，缓缓吐出一口浊气。 ", 2000)
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		chunks := Chunk(text, 1200, 100)
		_ = chunks
	}
}
