package furigana

import "strings"

// katakanaVowels maps a katakana to the vowel it ends in: キ -> イ.
var katakanaVowels = buildVowelTable(map[rune]string{
	'ア': "アカサタナハマヤラワガザダバパャ",
	'イ': "イキシチニヒミリヰギジヂビピ",
	'ウ': "ウクスツヌフムユルグズヅブプュ",
	'エ': "エケセテネヘメレヱゲゼデベペ",
	'オ': "オコソトノホモヨロヲゴゾドボポョ",
})

func buildVowelTable(classes map[rune]string) map[rune]rune {
	table := make(map[rune]rune)
	for vowel, glyphs := range classes {
		for _, g := range glyphs {
			table[g] = vowel
		}
	}
	return table
}

// fixLongVowels puts back the ー marks of original that the converter spelled
// out as vowels in katakana, e.g. ラーメン read as ラアメン.
func fixLongVowels(original, katakana string) string {
	var prev rune
	for i, r := range []rune(original) {
		if r == longVowelMark && i > 0 {
			if vowel, ok := katakanaVowels[prev]; ok {
				katakana = strings.ReplaceAll(katakana, string(prev)+string(vowel), string(prev)+string(longVowelMark))
			}
		}
		prev = r
	}
	return katakana
}
