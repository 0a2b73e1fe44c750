package textproc

import (
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

var (
	testSeg     *Segmenter
	testSegErr  error
	testSegOnce sync.Once
)

// sharedSegmenter loads the dictionary once for the whole test binary.
func sharedSegmenter(t *testing.T) *Segmenter {
	t.Helper()
	testSegOnce.Do(func() {
		testSeg, testSegErr = NewSegmenter()
	})
	if testSegErr != nil {
		t.Fatalf("loading segmenter: %v", testSegErr)
	}
	return testSeg
}

func TestCandidateToken(t *testing.T) {
	cases := []struct {
		word string
		want bool
	}{
		{"少年", true},
		{"剑法", true},
		{"青云门", true},
		{"天", false},         // single rune
		{"东胜神洲大陆", false},    // too long
		{"abc", false},       // not Han
		{"剑a", false},        // mixed
		{"", false},
	}
	for _, tc := range cases {
		if got := candidateToken(tc.word); got != tc.want {
			t.Errorf("candidateToken(%q) = %v, want %v", tc.word, got, tc.want)
		}
	}
}

func TestHasItemSuffix(t *testing.T) {
	for _, word := range []string{"剑法", "心经", "火球术", "聚气丹", "金钟体"} {
		if !hasItemSuffix(word) {
			t.Errorf("hasItemSuffix(%q) = false, want true", word)
		}
	}
	for _, word := range []string{"少年", "师父", ""} {
		if hasItemSuffix(word) {
			t.Errorf("hasItemSuffix(%q) = true, want false", word)
		}
	}
}

func TestTopCounts(t *testing.T) {
	freq := map[string]int{"甲": 3, "乙": 5, "丙": 3, "丁": 1}
	got := topCounts(freq, 3)
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	if got[0].Name != "乙" || got[0].Count != 5 {
		t.Errorf("top entry = %+v, want 乙/5", got[0])
	}
	// Equal counts order deterministically by name.
	if got[1].Name != "丙" || got[2].Name != "甲" {
		t.Errorf("tie order = %s, %s; want 丙, 甲", got[1].Name, got[2].Name)
	}
}

func TestAnalyze(t *testing.T) {
	seg := sharedSegmenter(t)

	text := strings.Repeat("少年修炼剑法。", 3) + "少年战斗。"
	stats := Analyze(seg, text, 10)

	if stats.Chars != utf8.RuneCountInString(text) {
		t.Errorf("Chars = %d, want %d", stats.Chars, utf8.RuneCountInString(text))
	}
	if stats.WordsEst == 0 {
		t.Fatal("WordsEst = 0, expected candidate tokens")
	}

	persons := make(map[string]int, len(stats.Persons))
	for _, p := range stats.Persons {
		persons[p.Name] = p.Count
	}
	if persons["少年"] != 4 {
		t.Errorf("persons[少年] = %d, want 4 (got %v)", persons["少年"], stats.Persons)
	}

	items := make(map[string]int, len(stats.ItemsSkills))
	for _, it := range stats.ItemsSkills {
		items[it.Name] = it.Count
		if !hasItemSuffix(it.Name) {
			t.Errorf("item %q lacks a known suffix", it.Name)
		}
	}
	if items["剑法"] != 3 {
		t.Errorf("items[剑法] = %d, want 3 (got %v)", items["剑法"], stats.ItemsSkills)
	}
}

func TestAnalyzeKeywords(t *testing.T) {
	seg := sharedSegmenter(t)

	text := strings.Repeat("修炼之路漫长，唯有坚持方能突破境界。", 5)
	stats := Analyze(seg, text, 5)
	if len(stats.Keywords) == 0 {
		t.Fatal("expected keywords")
	}
	if len(stats.Keywords) > 5 {
		t.Errorf("got %d keywords, want at most 5", len(stats.Keywords))
	}
	for i := 1; i < len(stats.Keywords); i++ {
		if stats.Keywords[i].Weight > stats.Keywords[i-1].Weight {
			t.Errorf("keyword weights not descending at %d: %v", i, stats.Keywords)
		}
	}
}

func TestAnalyzeEmptyText(t *testing.T) {
	seg := sharedSegmenter(t)
	stats := Analyze(seg, "", 10)
	if stats.Chars != 0 || stats.WordsEst != 0 {
		t.Errorf("empty text stats = %+v", stats)
	}
	if len(stats.Persons) != 0 || len(stats.ItemsSkills) != 0 {
		t.Errorf("empty text produced counts: %+v", stats)
	}
}
