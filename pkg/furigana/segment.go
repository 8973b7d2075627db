package furigana

import (
	"strings"
	"unicode/utf8"
)

// Segment is a maximal run of kanji or non-kanji text, or the reading that
// was aligned to such a run.
type Segment struct {
	Text  string
	Kanji bool
}

// baseHiragana maps a voiced (rendaku) kana to its unvoiced base.
var baseHiragana = map[string]string{
	"が": "か", "ざ": "さ", "だ": "た", "ば": "は", "ぱ": "は",
	"ぎ": "き", "じ": "し", "ぢ": "ち", "び": "ひ", "ぴ": "ひ",
	"ぐ": "く", "ず": "す", "づ": "つ", "ぶ": "ふ", "ぷ": "ふ",
	"げ": "け", "ぜ": "せ", "で": "て", "べ": "へ", "ぺ": "へ",
	"ご": "こ", "ぞ": "そ", "ど": "と", "ぼ": "ほ", "ぽ": "ほ",
}

// splitByClass splits text into maximal runs of kanji and non-kanji.
func splitByClass(text string) []Segment {
	var segs []Segment
	start := 0
	wasKanji := false
	for i, r := range text {
		k := IsKanji(r)
		if i == 0 {
			wasKanji = k
			continue
		}
		if k != wasKanji {
			segs = append(segs, Segment{Text: text[start:i], Kanji: wasKanji})
			start = i
			wasKanji = k
		}
	}
	if start < len(text) {
		segs = append(segs, Segment{Text: text[start:], Kanji: wasKanji})
	}
	return segs
}

// alignHiragana finds the reading of every kanji segment by locating the
// non-kanji segments inside hiragana, working from the end of the word. The
// result has the same shape as segs: non-kanji segments are returned as they
// are, kanji segments carry their hiragana reading. katakana is the same
// reading in katakana and is searched when the converter left a non-kanji
// segment in katakana.
func alignHiragana(segs []Segment, hiragana, katakana string) ([]Segment, error) {
	hira := []rune(hiragana)
	kata := []rune(katakana)
	if len(hira) != len(kata) {
		return nil, contractf("hiragana %q and katakana %q differ in length", hiragana, katakana)
	}

	out := make([]Segment, 0, len(segs))
	end := len(hira)
	limit := end
	for i := len(segs) - 1; i >= 0; i-- {
		s := segs[i]
		if s.Kanji {
			// every kanji segment needs at least one kana of its own
			limit--
			continue
		}

		t := []rune(s.Text)
		pos := lastIndex(hira, t, limit)
		if pos < 0 && len(t) == 1 {
			if base, ok := baseHiragana[s.Text]; ok {
				pos = lastIndex(hira, []rune(base), limit)
			}
		}
		if pos < 0 {
			pos = lastIndex(kata, t, limit)
		}
		if pos < 0 {
			return nil, contractf("%q not found in reading %q / %q", s.Text, hiragana, katakana)
		}

		if after := pos + len(t); after < end {
			out = append(out, Segment{Text: string(hira[after:end]), Kanji: true})
		}
		out = append(out, s)
		end = pos
		limit = end
	}
	if end > 0 {
		out = append(out, Segment{Text: string(hira[:end]), Kanji: true})
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	if len(out) != len(segs) {
		return nil, contractf("could not align %q to %q", joinSegments(segs), hiragana)
	}
	for i := range segs {
		if out[i].Kanji != segs[i].Kanji || (!segs[i].Kanji && out[i].Text != segs[i].Text) {
			return nil, contractf("could not align %q to %q", joinSegments(segs), hiragana)
		}
	}
	return out, nil
}

// alignKatakana cuts katakana at the same rune offsets as the aligned
// hiragana segments.
func alignKatakana(hiraSegs []Segment, katakana string) ([]Segment, error) {
	kata := []rune(katakana)
	out := make([]Segment, 0, len(hiraSegs))
	start := 0
	for _, s := range hiraSegs {
		n := utf8.RuneCountInString(s.Text)
		if start+n > len(kata) {
			return nil, contractf("katakana %q shorter than aligned hiragana", katakana)
		}
		out = append(out, Segment{Text: string(kata[start : start+n]), Kanji: s.Kanji})
		start += n
	}
	if start != len(kata) {
		return nil, contractf("katakana %q longer than aligned hiragana", katakana)
	}
	return out, nil
}

// lastIndex returns the rune index of the last occurrence of sub that ends
// at or before limit, or -1.
func lastIndex(s, sub []rune, limit int) int {
	if limit > len(s) {
		limit = len(s)
	}
	for i := limit - len(sub); i >= 0; i-- {
		match := true
		for j, r := range sub {
			if s[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func joinSegments(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text)
	}
	return b.String()
}
