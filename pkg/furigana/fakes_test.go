package furigana

import (
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"
)

// fakeConverter reads the longest known word at each position. Kana and
// other non-kanji text is converted rune by rune, unknown kanji come back as
// unreadable tokens.
type fakeConverter struct {
	words map[string]string // original -> hiragana
	calls int
}

func (f *fakeConverter) Convert(text string) ([]Token, error) {
	f.calls++
	var tokens []Token
	var pending strings.Builder
	flush := func() {
		if pending.Len() == 0 {
			return
		}
		s := pending.String()
		tokens = append(tokens, Token{Original: s, Hiragana: toHira(s), Katakana: toKata(s)})
		pending.Reset()
	}

	rest := text
	for rest != "" {
		if strings.HasPrefix(rest, "\n") {
			flush()
			tokens = append(tokens, Token{Original: "\n", Hiragana: "\n", Katakana: "\n"})
			rest = rest[1:]
			continue
		}
		if word := f.match(rest); word != "" {
			flush()
			hira := f.words[word]
			tokens = append(tokens, Token{Original: word, Hiragana: hira, Katakana: toKata(hira)})
			rest = rest[len(word):]
			continue
		}
		r, size := utf8.DecodeRuneInString(rest)
		if IsKanji(r) {
			flush()
			tokens = append(tokens, Token{Original: string(r)})
		} else {
			pending.WriteRune(r)
		}
		rest = rest[size:]
	}
	flush()
	return tokens, nil
}

func (f *fakeConverter) match(text string) string {
	best := ""
	for w := range f.words {
		if strings.HasPrefix(text, w) && len(w) > len(best) {
			best = w
		}
	}
	return best
}

func toHira(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0x30A1 && r <= 0x30F6 {
			return r - 0x60
		}
		return r
	}, s)
}

func toKata(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0x3041 && r <= 0x3096 {
			return r + 0x60
		}
		return r
	}, s)
}

type fakeDictionary struct {
	entries map[rune][]ReadingGroup
	calls   map[rune]int
}

func (d *fakeDictionary) Lookup(kanji rune) ([]ReadingGroup, error) {
	if d.calls == nil {
		d.calls = make(map[rune]int)
	}
	d.calls[kanji]++
	return d.entries[kanji], nil
}

type fakeTagger map[string][]Node

func (f fakeTagger) Parse(text string) ([]Node, error) {
	return f[text], nil
}

// convertFunc adapts a function to Converter.
type convertFunc func(string) ([]Token, error)

func (f convertFunc) Convert(text string) ([]Token, error) { return f(text) }

var basicWords = map[string]string{
	"漢字":    "かんじ",
	"漢":     "かん",
	"字":     "じ",
	"書く":    "かく",
	"書":     "か",
	"見る":    "みる",
	"見":     "み",
	"今日":    "きょう",
	"今":     "いま",
	"日":     "にち",
	"一日":    "ついたち",
	"一":     "いち",
	"人々":    "ひとびと",
	"人":     "ひと",
	"江戸":    "えど",
	"江":     "え",
	"戸":     "と",
	"明後日":   "あさって",
	"ラーメン屋": "らあめんや",
	"ガス管":   "がすかん",
	"管":     "かん",
	"食べる":   "たべる",
	"食":     "しょく",
	"行灯":    "ぎょうとう",
	"行":     "ぎょう",
	"灯":     "とう",
	"日本":    "にほん",
	"本":     "ほん",
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *fakeConverter) {
	t.Helper()
	conv := &fakeConverter{words: basicWords}
	if cfg.OpenTag == "" {
		cfg.OpenTag = "["
	}
	if cfg.CloseTag == "" {
		cfg.CloseTag = "]"
	}
	e, err := New(conv, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, conv
}

var readingTag = regexp.MustCompile(`\[[^\]]*\]`)

// stripReadings removes every "[...]" reading from annotated text.
func stripReadings(s string) string {
	return readingTag.ReplaceAllString(s, "")
}
