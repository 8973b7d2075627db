package phonetic

import (
	"unicode/utf8"

	"github.com/japaniel/furigana/pkg/furigana"
)

// symbolReadings are the readings of marks that stand in for kana inside
// words, as in 十ヵ国 or 〆切.
var symbolReadings = map[rune][]string{
	'ヵ': {"カ", "コ", "ケ", "ガ"},
	'〆': {"シメ"},
}

type partKind int

const (
	partKanji partKind = iota
	partKana
	partOther
)

// part is a maximal run of one kind inside a kagome surface.
type part struct {
	text     string
	kind     partKind
	readings []string // katakana candidates; empty for kanji
}

func isKanaRune(r rune) bool {
	return (r >= 0x3041 && r <= 0x3096) || (r >= 0x30A1 && r <= 0x30F4) || r == 'ー'
}

func isKana(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isKanaRune(r) {
			return false
		}
	}
	return true
}

func kindOf(r rune) partKind {
	switch {
	case furigana.IsKanji(r):
		return partKanji
	case isKanaRune(r):
		return partKana
	}
	return partOther
}

func splitParts(surface string) []part {
	var parts []part
	start := 0
	var kind partKind
	for i, r := range surface {
		k := kindOf(r)
		if i > 0 && k != kind {
			parts = append(parts, part{text: surface[start:i], kind: kind})
			start = i
		}
		kind = k
	}
	if start < len(surface) {
		parts = append(parts, part{text: surface[start:], kind: kind})
	}
	return parts
}

// splitSurface shares reading out among the parts of surface. Kana parts
// must appear in the reading as written and other parts as readOther (or
// symbolReadings) reads them. Kanji parts get what is left between them.
// Kanji parts come back with their share of the reading, everything else as
// pass-through tokens.
func splitSurface(surface, reading string, readOther func(string) (string, bool)) ([]furigana.Token, bool) {
	parts := splitParts(surface)
	for i := range parts {
		p := &parts[i]
		switch p.kind {
		case partKana:
			p.readings = []string{ToKatakana(p.text)}
		case partOther:
			if r, size := utf8.DecodeRuneInString(p.text); size == len(p.text) && symbolReadings[r] != nil {
				p.readings = symbolReadings[r]
				continue
			}
			r, ok := readOther(p.text)
			if !ok {
				return nil, false
			}
			p.readings = []string{ToKatakana(r)}
		}
	}

	shares := make([]string, len(parts))
	if !matchParts(parts, []rune(ToKatakana(reading)), 0, shares) {
		return nil, false
	}

	tokens := make([]furigana.Token, 0, len(parts))
	for i, p := range parts {
		if p.kind != partKanji {
			tokens = append(tokens, kanaToken(p.text))
			continue
		}
		tokens = append(tokens, furigana.Token{Original: p.text, Hiragana: ToHiragana(shares[i]), Katakana: shares[i]})
	}
	return tokens, true
}

// matchParts assigns reading[at:] to parts, trying the shortest share for
// each kanji part first. shares is indexed like the full part list.
func matchParts(parts []part, reading []rune, at int, shares []string) bool {
	if len(parts) == 0 {
		return at == len(reading)
	}
	i := len(shares) - len(parts)
	p := parts[0]

	if p.kind == partKanji {
		if len(parts) == 1 {
			if at >= len(reading) {
				return false
			}
			shares[i] = string(reading[at:])
			return true
		}
		for end := at + 1; end <= len(reading); end++ {
			if matchParts(parts[1:], reading, end, shares) {
				shares[i] = string(reading[at:end])
				return true
			}
		}
		return false
	}

	for _, c := range p.readings {
		cr := []rune(c)
		if hasRunePrefix(reading[at:], cr) && matchParts(parts[1:], reading, at+len(cr), shares) {
			shares[i] = c
			return true
		}
	}
	return false
}

func hasRunePrefix(s, prefix []rune) bool {
	if len(prefix) == 0 || len(prefix) > len(s) {
		return false
	}
	for i, r := range prefix {
		if s[i] != r {
			return false
		}
	}
	return true
}
