package furigana

const (
	iterationMark = '々' // U+3005
	smallKe       = 'ヶ' // U+30F6, used as a counter like 一ヶ月
	longVowelMark = 'ー'
)

// kanjiNumerals are the numeral glyphs whose two-character compounds are
// expected to fail per-character resolution.
var kanjiNumerals = map[rune]bool{
	'一': true, '二': true, '三': true, '四': true, '五': true,
	'六': true, '七': true, '八': true, '九': true, '十': true, '零': true,
}

// IsKanji reports whether r needs a reading: a CJK Unified Ideograph, the
// iteration mark 々 or the counter ヶ.
func IsKanji(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || r == iterationMark || r == smallKe
}

// HasKanji reports whether any rune of s is a kanji.
func HasKanji(s string) bool {
	for _, r := range s {
		if IsKanji(r) {
			return true
		}
	}
	return false
}

// AllKanji reports whether every rune of s is a kanji. It is true for "".
func AllKanji(s string) bool {
	for _, r := range s {
		if !IsKanji(r) {
			return false
		}
	}
	return true
}
