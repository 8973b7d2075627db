// Package phonetic provides the kagome backed collaborators of the furigana
// engine: a Converter that reads text with the IPA dictionary and a Tagger
// that reads single kanji with UniDic.
package phonetic

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/japaniel/furigana/pkg/furigana"
)

// ipaReadingField is the katakana reading in IPA features:
// 0: POS, 1-3: sub-POS, 4: conjugation type, 5: conjugation form,
// 6: base form, 7: reading, 8: pronunciation.
const ipaReadingField = 7

// Converter reads text into furigana tokens.
type Converter struct {
	t *tokenizer.Tokenizer
}

// NewConverter creates a converter over the IPA dictionary.
func NewConverter() (*Converter, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Converter{t: t}, nil
}

// Convert splits text into tokens. The originals of the tokens concatenate to
// text exactly: anything kagome skips is returned as its own token. Every
// token passes furigana.CheckToken.
func (c *Converter) Convert(text string) ([]furigana.Token, error) {
	var result []furigana.Token
	pos := 0
	for _, token := range c.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY || token.Surface == "" {
			continue
		}
		if token.Position > pos {
			result = append(result, kanaToken(text[pos:token.Position]))
		}
		result = append(result, c.readToken(token.Surface, token.Features())...)
		pos = token.Position + len(token.Surface)
	}
	if pos < len(text) {
		result = append(result, kanaToken(text[pos:]))
	}
	return result, nil
}

// readToken builds tokens from a kagome surface and its features. Surfaces
// with kanji take the dictionary reading and are unreadable without one.
// Surfaces mixing kanji with text the reading does not spell out, like ３月
// or 十ヵ国, are split into parts the engine can align.
func (c *Converter) readToken(surface string, features []string) []furigana.Token {
	if !furigana.HasKanji(surface) {
		return []furigana.Token{kanaToken(surface)}
	}
	reading, ok := featureReading(features)
	if !ok {
		return []furigana.Token{{Original: surface}}
	}
	tok := furigana.Token{Original: surface, Hiragana: ToHiragana(reading), Katakana: reading}
	if furigana.CheckToken(tok) == nil {
		return []furigana.Token{tok}
	}
	if parts, ok := splitSurface(surface, reading, c.readAlone); ok {
		return parts
	}
	return []furigana.Token{{Original: surface}}
}

// readAlone reads s on its own, e.g. the ３ of ３月.
func (c *Converter) readAlone(s string) (string, bool) {
	var b strings.Builder
	for _, token := range c.t.Tokenize(s) {
		if token.Class == tokenizer.DUMMY || token.Surface == "" {
			continue
		}
		if isKana(token.Surface) {
			b.WriteString(ToKatakana(token.Surface))
			continue
		}
		reading, ok := featureReading(token.Features())
		if !ok {
			return "", false
		}
		b.WriteString(reading)
	}
	return b.String(), b.Len() > 0
}

func featureReading(features []string) (string, bool) {
	if len(features) <= ipaReadingField || features[ipaReadingField] == "*" || features[ipaReadingField] == "" {
		return "", false
	}
	return ToKatakana(features[ipaReadingField]), true
}

func kanaToken(s string) furigana.Token {
	return furigana.Token{Original: s, Hiragana: ToHiragana(s), Katakana: ToKatakana(s)}
}
