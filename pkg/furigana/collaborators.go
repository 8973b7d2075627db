package furigana

// Token is one chunk of converted text. Hiragana and Katakana always have the
// same number of runes; an empty Hiragana marks a chunk the converter could
// not read.
type Token struct {
	Original string
	Hiragana string
	Katakana string
}

// Converter turns arbitrary text into tokens carrying their kana readings.
// The engine also uses it to convert readings between hiragana and katakana,
// so converting pure kana must keep the rune count.
type Converter interface {
	Convert(text string) ([]Token, error)
}

// Node is a morpheme returned by a Tagger. Feature is the comma separated
// feature string; its 7th field, when present, is a katakana reading of
// Surface. Start is the rune offset of the node in the parsed text.
type Node struct {
	Surface string
	Feature string
	Start   int
}

// Tagger is an optional morphological analyzer consulted for extra
// single-kanji readings.
type Tagger interface {
	Parse(text string) ([]Node, error)
}

// ReadingGroup is one reading group of a dictionary entry. On readings are
// katakana; Kun readings are hiragana and may carry "-" continuation markers
// and a "." before the okurigana.
type ReadingGroup struct {
	On  []string
	Kun []string
}

// Dictionary is an optional source of canonical readings for a single kanji.
type Dictionary interface {
	Lookup(kanji rune) ([]ReadingGroup, error)
}
