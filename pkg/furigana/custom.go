package furigana

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// KanjiReading overrides the candidate readings of one kanji. On readings are
// katakana, Kun readings hiragana without okurigana or "-" markers.
type KanjiReading struct {
	On  []string
	Kun []string
}

// WordReading fixes the reading of a whole word. Parts are the pieces of the
// word (single kanji, kanji blocks or kana) and Readings the hiragana for
// each part; kana parts keep their own text.
//
//	WordReading{Parts: []string{"行", "灯"}, Readings: []string{"あん", "どん"}}
type WordReading struct {
	Parts    []string
	Readings []string
}

// WordOrder decides which custom word wins when registered words overlap in
// the text. Words are substituted one after another and text that already
// received a custom reading is never rewritten.
type WordOrder int

const (
	// RegistrationOrder substitutes words in the order they were registered.
	RegistrationOrder WordOrder = iota
	// LongestFirst substitutes longer words first; ties keep registration
	// order.
	LongestFirst
)

func (o WordOrder) String() string {
	switch o {
	case RegistrationOrder:
		return "registration"
	case LongestFirst:
		return "longest"
	}
	return "unknown"
}

type customWord struct {
	word        string
	replacement string
}

// wordTable keeps custom words in registration order.
type wordTable struct {
	words []customWord
	index map[string]int
}

func (t *wordTable) put(word, replacement string) {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if i, ok := t.index[word]; ok {
		t.words[i].replacement = replacement
		return
	}
	t.index[word] = len(t.words)
	t.words = append(t.words, customWord{word: word, replacement: replacement})
}

func (t *wordTable) ordered(order WordOrder) []customWord {
	out := make([]customWord, len(t.words))
	copy(out, t.words)
	if order == LongestFirst {
		sort.SliceStable(out, func(i, j int) bool {
			return utf8.RuneCountInString(out[i].word) > utf8.RuneCountInString(out[j].word)
		})
	}
	return out
}

type spanKind int

const (
	spanPlain  spanKind = iota
	spanCustom          // already tagged by a custom word reading
	spanOpaque          // never annotated, e.g. a URL
)

type span struct {
	text string
	kind spanKind
}

// substituteWords replaces every custom word in the plain parts of text with
// its sentinel wrapped replacement.
func substituteWords(text string, words []customWord, openTag, closeTag string) (string, bool, error) {
	changed := false
	for _, w := range words {
		if !strings.Contains(text, w.word) {
			continue
		}
		spans, err := splitSentinels(text, openTag, closeTag)
		if err != nil {
			return "", false, err
		}
		var b strings.Builder
		for _, s := range spans {
			if s.kind == spanCustom {
				b.WriteString(openTag)
				b.WriteString(s.text)
				b.WriteString(closeTag)
				continue
			}
			if strings.Contains(s.text, w.word) {
				changed = true
				b.WriteString(strings.ReplaceAll(s.text, w.word, w.replacement))
				continue
			}
			b.WriteString(s.text)
		}
		text = b.String()
	}
	return text, changed, nil
}

// splitSentinels splits text into plain spans and the custom spans between
// openTag and closeTag. The sentinels themselves are dropped.
func splitSentinels(text, openTag, closeTag string) ([]span, error) {
	var spans []span
	for {
		pos := strings.Index(text, openTag)
		if pos < 0 {
			break
		}
		inner := text[pos+len(openTag):]
		end := strings.Index(inner, closeTag)
		if end < 0 {
			return nil, contractf("unterminated custom reading in %q", text)
		}
		if pos > 0 {
			spans = append(spans, span{text: text[:pos], kind: spanPlain})
		}
		spans = append(spans, span{text: inner[:end], kind: spanCustom})
		text = inner[end+len(closeTag):]
	}
	if text != "" {
		spans = append(spans, span{text: text, kind: spanPlain})
	}
	return spans, nil
}

// maskURLs cuts every "://" URL out of the plain spans. A URL extends to the
// surrounding whitespace.
func maskURLs(spans []span) []span {
	out := make([]span, 0, len(spans))
	for _, s := range spans {
		if s.kind != spanPlain {
			out = append(out, s)
			continue
		}
		t := s.text
		for {
			pos := strings.Index(t, "://")
			if pos < 0 {
				break
			}
			a := pos
			for a > 0 {
				r, w := utf8.DecodeLastRuneInString(t[:a])
				if unicode.IsSpace(r) {
					break
				}
				a -= w
			}
			b := pos + len("://")
			for b < len(t) {
				r, w := utf8.DecodeRuneInString(t[b:])
				if unicode.IsSpace(r) {
					break
				}
				b += w
			}
			if a > 0 {
				out = append(out, span{text: t[:a], kind: spanPlain})
			}
			out = append(out, span{text: t[a:b], kind: spanOpaque})
			t = t[b:]
		}
		if t != "" {
			out = append(out, span{text: t, kind: spanPlain})
		}
	}
	return out
}
