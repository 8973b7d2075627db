package kanjidic

import (
	"github.com/japaniel/furigana/pkg/furigana"
)

// Index is an in-memory Dictionary over loaded characters. It is never
// modified after NewIndex, so one Index can serve every engine of a batch.
type Index struct {
	entries map[rune][]furigana.ReadingGroup
}

// NewIndex builds an index of chars. A later entry for the same literal
// replaces an earlier one.
func NewIndex(chars []Character) *Index {
	idx := &Index{entries: make(map[rune][]furigana.ReadingGroup, len(chars))}
	for _, c := range chars {
		idx.entries[c.Literal] = c.Groups
	}
	return idx
}

// Lookup returns the reading groups of kanji. Unknown kanji have none.
func (idx *Index) Lookup(kanji rune) ([]furigana.ReadingGroup, error) {
	return idx.entries[kanji], nil
}

// Len returns the number of indexed characters.
func (idx *Index) Len() int {
	return len(idx.entries)
}
