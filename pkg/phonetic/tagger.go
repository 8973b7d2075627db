package phonetic

import (
	"strings"

	"github.com/ikawaha/kagome-dict/uni"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/japaniel/furigana/pkg/furigana"
)

// Tagger tags text with UniDic. Field 6 of a UniDic feature string is the
// katakana lemma reading, which is what the engine reads single kanji from.
type Tagger struct {
	t *tokenizer.Tokenizer
}

// NewTagger creates a tagger over UniDic.
func NewTagger() (*Tagger, error) {
	t, err := tokenizer.New(uni.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Tagger{t: t}, nil
}

// Parse returns the morphemes of text.
func (tg *Tagger) Parse(text string) ([]furigana.Node, error) {
	var nodes []furigana.Node
	for _, token := range tg.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		nodes = append(nodes, furigana.Node{
			Surface: token.Surface,
			Feature: strings.Join(token.Features(), ","),
			Start:   token.Start,
		})
	}
	return nodes, nil
}
