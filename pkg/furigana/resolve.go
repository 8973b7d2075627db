package furigana

import (
	"fmt"
	"strings"
)

// resolve splits targetKatakana, the reading of the kanji run, into one
// hiragana reading per kanji. word is the whole token the run belongs to and
// only appears in problem descriptions.
//
// ok is false when the run has to be tagged as one block. Problems explain
// the failure unless the run is an exempt numeral compound. err is only set
// for collaborator failures.
func (e *Engine) resolve(run, word, targetKatakana string, correlator interface{}) (readings []string, ok bool, problems []Problem, err error) {
	kanji := []rune(run)

	report := true
	if len(kanji) == 2 && kanjiNumerals[kanji[0]] {
		report = false
	}
	// X々 reads as a whole and is never split
	if len(kanji) == 2 && kanji[1] == iterationMark {
		return nil, false, nil, nil
	}

	problem := func(k, format string, args ...interface{}) {
		if report {
			problems = append(problems, Problem{
				Description: fmt.Sprintf(format, args...),
				Kanji:       k,
				Correlator:  correlator,
			})
		}
	}

	left := targetKatakana
	readings = make([]string, 0, len(kanji))
	for _, k := range kanji {
		candidates, err := e.cache.lookup(k, targetKatakana)
		if err != nil {
			return nil, false, nil, err
		}
		if len(candidates) == 0 {
			problem(string(k), "no reading found for %q in %q", string(k), word)
			return nil, false, problems, nil
		}

		matched := false
		for _, c := range candidates {
			if strings.HasPrefix(left, c.Katakana) {
				readings = append(readings, c.Hiragana)
				left = left[len(c.Katakana):]
				matched = true
				break
			}
		}
		if !matched {
			problem(string(k), "could not match kanji %q to remaining kana %q in %q", string(k), left, word)
			return nil, false, problems, nil
		}
	}

	if left != "" {
		problem(run, "matched all kanji of %q to %q but %q was left over in %q", run, targetKatakana, left, word)
		return nil, false, problems, nil
	}
	return readings, true, nil, nil
}
