package textproc

import (
	"sort"
	"unicode/utf8"
)

// Keyword is a TF-IDF-weighted keyword.
type Keyword struct {
	Word   string  `json:"word"`
	Weight float64 `json:"weight"`
}

// NameCount is a token with its occurrence count.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats holds the lexical statistics of a document.
type Stats struct {
	Keywords    []Keyword   `json:"keywords"`
	Persons     []NameCount `json:"persons"`
	ItemsSkills []NameCount `json:"items_skills"`
	Chars       int         `json:"chars"`
	WordsEst    int         `json:"words_est"`
}

// Suffixes that mark a token as a technique, artifact, or scripture name in
// wuxia/xianxia prose.
var itemSuffixes = map[rune]struct{}{
	'术': {}, '诀': {}, '经': {}, '法': {}, '阵': {}, '掌': {}, '剑': {},
	'丹': {}, '器': {}, '符': {}, '体': {}, '功': {}, '篇': {}, '卷': {},
}

// Analyze computes keyword, person-name, and item/skill frequency statistics
// over text. Candidate tokens are 2-3 rune all-Han segments; persons are the
// topK most frequent candidates, items/skills the topK candidates carrying a
// known suffix.
func Analyze(seg *Segmenter, text string, topK int) Stats {
	keywords := seg.Keywords(text, topK)

	freq := make(map[string]int)
	itemFreq := make(map[string]int)
	candidates := 0
	for _, word := range seg.Cut(text) {
		if !candidateToken(word) {
			continue
		}
		candidates++
		freq[word]++
		if hasItemSuffix(word) {
			itemFreq[word]++
		}
	}

	return Stats{
		Keywords:    keywords,
		Persons:     topCounts(freq, topK),
		ItemsSkills: topCounts(itemFreq, topK),
		Chars:       utf8.RuneCountInString(text),
		WordsEst:    candidates,
	}
}

// candidateToken reports whether word is a 2-3 rune token consisting only of
// Han characters.
func candidateToken(word string) bool {
	n := 0
	for _, r := range word {
		if !isHan(r) {
			return false
		}
		n++
		if n > 3 {
			return false
		}
	}
	return n >= 2
}

func isHan(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FA5
}

func hasItemSuffix(word string) bool {
	last, size := utf8.DecodeLastRuneInString(word)
	if size == 0 {
		return false
	}
	_, ok := itemSuffixes[last]
	return ok
}

// topCounts returns the n highest counts, descending; ties sort by name so
// the output is deterministic.
func topCounts(freq map[string]int, n int) []NameCount {
	counts := make([]NameCount, 0, len(freq))
	for name, count := range freq {
		counts = append(counts, NameCount{Name: name, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Name < counts[j].Name
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}
