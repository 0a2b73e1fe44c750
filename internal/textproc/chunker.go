// Package textproc implements the text-processing core: whitespace
// normalisation, fixed-size sliding-window chunking, dictionary-based CJK
// segmentation, and lexical frequency statistics.
package textproc

import "regexp"

// \s alone is ASCII-only in Go; Chinese prose indents paragraphs with
// U+3000, so the class also covers the Unicode separators.
var whitespaceRE = regexp.MustCompile(`[\s\x{1c}-\x{1f}\x{85}\p{Z}]+`)

// Normalize collapses every whitespace run, ASCII or Unicode, to a single
// space.
func Normalize(s string) string {
	return whitespaceRE.ReplaceAllString(s, " ")
}

// Chunk normalises text and splits it into fixed-size rune windows. The
// window advances by size-overlap runes (at least one), so consecutive
// chunks share overlap runes. The final chunk may be shorter than size.
// Windows are measured in runes and never split a UTF-8 sequence.
func Chunk(s string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	runes := []rune(Normalize(s))
	if len(runes) == 0 {
		return nil
	}
	step := size - overlap
	if step < 1 {
		step = 1
	}
	chunks := make([]string, 0, len(runes)/step+1)
	for i := 0; i < len(runes); i += step {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
