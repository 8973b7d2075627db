package furigana

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"unicode/utf8"
)

// taggerFiller is appended to a lone kanji before tagging it, so the tagger
// reads the kanji as the head of a compound.
const taggerFiller = "一"

// taggerReadingField is the index of the reading in a tagger feature string.
const taggerReadingField = 6

// ReadingCandidate is a reading for exactly one kanji.
type ReadingCandidate struct {
	Katakana string
	Hiragana string
}

// readingCache holds the candidate readings per kanji, sorted by descending
// katakana length so the resolver can take the first prefix match.
type readingCache struct {
	conv    Converter
	dict    Dictionary
	tagger  Tagger
	logger  *log.Logger
	entries map[rune][]ReadingCandidate
}

func newReadingCache(conv Converter, dict Dictionary, tagger Tagger, logger *log.Logger) *readingCache {
	return &readingCache{
		conv:    conv,
		dict:    dict,
		tagger:  tagger,
		logger:  logger,
		entries: make(map[rune][]ReadingCandidate),
	}
}

// lookup returns the candidates for kanji, assembling and caching them on the
// first request. contextKatakana is the katakana of the whole word the kanji
// appeared in.
func (c *readingCache) lookup(kanji rune, contextKatakana string) ([]ReadingCandidate, error) {
	if cached, ok := c.entries[kanji]; ok {
		return cached, nil
	}

	var found candidateSet

	if c.dict != nil {
		groups, err := c.dict.Lookup(kanji)
		if err != nil {
			return nil, fmt.Errorf("dictionary lookup %q: %w", string(kanji), err)
		}
		for _, g := range groups {
			for _, on := range g.On {
				if on == "" || found.hasKatakana(on) {
					continue
				}
				hira, err := kanaToHira(c.conv, on)
				if err != nil {
					return nil, err
				}
				if found.hasHiragana(hira) {
					continue
				}
				found.add(on, hira)
			}
			for _, kun := range g.Kun {
				hira := trimKun(kun)
				if hira == "" || found.hasHiragana(hira) {
					continue
				}
				kata, err := hiraToKana(c.conv, hira)
				if err != nil {
					return nil, err
				}
				if found.hasKatakana(kata) {
					continue
				}
				found.add(kata, hira)
			}
		}
	}

	if c.tagger != nil {
		nodes, err := c.tagger.Parse(string(kanji) + taggerFiller)
		if err != nil {
			return nil, fmt.Errorf("tag %q: %w", string(kanji), err)
		}
		wordLen := utf8.RuneCountInString(contextKatakana)
		for _, n := range nodes {
			if n.Start != 0 || n.Surface == "" {
				continue
			}
			fields := strings.Split(n.Feature, ",")
			if len(fields) <= taggerReadingField {
				continue
			}
			kana := fields[taggerReadingField]
			if kana == "" || kana == "*" {
				continue
			}
			// the tagger answered with the reading of the whole word
			if utf8.RuneCountInString(kana) == wordLen {
				continue
			}
			if found.hasKatakana(kana) {
				continue
			}
			hira, err := kanaToHira(c.conv, kana)
			if err != nil {
				return nil, err
			}
			if found.hasHiragana(hira) {
				continue
			}
			found.add(kana, hira)
		}
	}

	tokens, err := c.conv.Convert(string(kanji))
	if err != nil {
		return nil, fmt.Errorf("convert %q: %w", string(kanji), err)
	}
	for _, t := range tokens {
		if t.Katakana == "" || found.hasKatakana(t.Katakana) || found.hasHiragana(t.Hiragana) {
			continue
		}
		found.add(t.Katakana, t.Hiragana)
	}

	if c.logger != nil {
		c.logger.Printf("readings for %c: %v", kanji, found)
	}
	return c.store(kanji, found), nil
}

// seed replaces the entry for kanji. Used for user overrides.
func (c *readingCache) seed(kanji rune, readings []ReadingCandidate) {
	var set candidateSet
	for _, r := range readings {
		if set.hasKatakana(r.Katakana) || set.hasHiragana(r.Hiragana) {
			continue
		}
		set.add(r.Katakana, r.Hiragana)
	}
	c.store(kanji, set)
}

func (c *readingCache) store(kanji rune, readings candidateSet) []ReadingCandidate {
	sorted := []ReadingCandidate(readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i].Katakana) > utf8.RuneCountInString(sorted[j].Katakana)
	})
	c.entries[kanji] = sorted
	return sorted
}

type candidateSet []ReadingCandidate

func (s *candidateSet) add(kata, hira string) {
	*s = append(*s, ReadingCandidate{Katakana: kata, Hiragana: hira})
}

func (s candidateSet) hasKatakana(kata string) bool {
	for _, r := range s {
		if r.Katakana == kata {
			return true
		}
	}
	return false
}

func (s candidateSet) hasHiragana(hira string) bool {
	for _, r := range s {
		if r.Hiragana == hira {
			return true
		}
	}
	return false
}

// trimKun strips the continuation markers of a dictionary kun reading and
// drops the okurigana after the stem separator: "-あ.げる" -> "あ".
func trimKun(kun string) string {
	kun = strings.Trim(kun, "-")
	if dot := strings.IndexByte(kun, '.'); dot >= 0 {
		kun = kun[:dot]
	}
	return kun
}

// kanaToHira converts katakana to hiragana through the converter.
func kanaToHira(conv Converter, kana string) (string, error) {
	return convertKana(conv, kana, func(t Token) string { return t.Hiragana })
}

// hiraToKana converts hiragana to katakana through the converter.
func hiraToKana(conv Converter, hira string) (string, error) {
	return convertKana(conv, hira, func(t Token) string { return t.Katakana })
}

func convertKana(conv Converter, s string, pick func(Token) string) (string, error) {
	tokens, err := conv.Convert(s)
	if err != nil {
		return "", fmt.Errorf("convert %q: %w", s, err)
	}
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(pick(t))
	}
	out := b.String()
	if utf8.RuneCountInString(out) != utf8.RuneCountInString(s) {
		return "", contractf("kana conversion of %q changed its length (%q)", s, out)
	}
	return out, nil
}
