package textproc

import (
	"fmt"

	"github.com/go-ego/gse"
	"github.com/go-ego/gse/hmm/idf"
)

// Segmenter wraps a gse dictionary segmenter together with its TF-IDF tag
// extractor. Loading the dictionaries takes a moment, so a single Segmenter
// is created at startup and shared; its methods are safe for concurrent use.
type Segmenter struct {
	seg gse.Segmenter
	tag idf.TagExtracter
}

// NewSegmenter loads the default Chinese dictionary and IDF table.
func NewSegmenter() (*Segmenter, error) {
	s := &Segmenter{}
	if err := s.seg.LoadDict(); err != nil {
		return nil, fmt.Errorf("loading segmentation dictionary: %w", err)
	}
	s.tag.WithGse(s.seg)
	if err := s.tag.LoadIdf(); err != nil {
		return nil, fmt.Errorf("loading idf table: %w", err)
	}
	return s, nil
}

// Cut segments text into words using the dictionary plus HMM for
// out-of-vocabulary sequences.
func (s *Segmenter) Cut(text string) []string {
	return s.seg.Cut(text, true)
}

// Keywords extracts the topK TF-IDF-weighted keywords of text.
func (s *Segmenter) Keywords(text string, topK int) []Keyword {
	tags := s.tag.ExtractTags(text, topK)
	keywords := make([]Keyword, 0, len(tags))
	for _, t := range tags {
		keywords = append(keywords, Keyword{Word: t.Text, Weight: t.Weight})
	}
	return keywords
}
