package furigana

import (
	"fmt"
	"io"
	"sort"
)

// Problem describes why a kanji run could only be tagged as a whole block, or
// why a chunk of text could not be read at all.
type Problem struct {
	Description string
	// Kanji is the character (or run) the problem is about. Empty for
	// problems that concern the whole text.
	Kanji string
	// Correlator is the caller supplied value passed to Process, e.g. a line
	// number. It is not interpreted.
	Correlator interface{}
}

func (p Problem) String() string {
	if p.Correlator != nil {
		return fmt.Sprintf("%v: %s", p.Correlator, p.Description)
	}
	return p.Description
}

// KanjiCount is the number of problems recorded for one kanji.
type KanjiCount struct {
	Kanji string
	Count int
}

// ProblemLog is an append-only list of problems gathered over several
// Process calls, e.g. one per line of a document. Not safe for concurrent use.
type ProblemLog struct {
	problems []Problem
}

// Add appends problems in order.
func (l *ProblemLog) Add(problems ...Problem) {
	l.problems = append(l.problems, problems...)
}

// Len returns the number of recorded problems.
func (l *ProblemLog) Len() int { return len(l.problems) }

// All returns a copy of the recorded problems.
func (l *ProblemLog) All() []Problem {
	out := make([]Problem, len(l.problems))
	copy(out, l.problems)
	return out
}

// CountByKanji groups problems by kanji, most frequent first. Ties keep the
// order in which the kanji first appeared. Problems without a kanji are not
// counted.
func (l *ProblemLog) CountByKanji() []KanjiCount {
	return CountByKanji(l.problems)
}

// ForKanji returns at most limit problems recorded for kanji. A limit <= 0
// means no limit.
func (l *ProblemLog) ForKanji(kanji string, limit int) []Problem {
	var out []Problem
	for _, p := range l.problems {
		if p.Kanji != kanji {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Fprint writes at most limit problems, one per line, followed by a total.
func (l *ProblemLog) Fprint(w io.Writer, limit int) error {
	n := len(l.problems)
	if limit > 0 && limit < n {
		n = limit
	}
	for _, p := range l.problems[:n] {
		if _, err := fmt.Fprintln(w, p.String()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Found %d problems.\n", len(l.problems))
	return err
}

// FprintCounts writes the per-kanji problem counts on one line.
func (l *ProblemLog) FprintCounts(w io.Writer) error {
	counts := l.CountByKanji()
	if _, err := io.WriteString(w, "Issues:"); err != nil {
		return err
	}
	for _, c := range counts {
		if _, err := fmt.Fprintf(w, " %s: %d", c.Kanji, c.Count); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// CountByKanji groups problems by kanji, most frequent first.
func CountByKanji(problems []Problem) []KanjiCount {
	idx := make(map[string]int)
	var counts []KanjiCount
	for _, p := range problems {
		if p.Kanji == "" {
			continue
		}
		i, ok := idx[p.Kanji]
		if !ok {
			i = len(counts)
			idx[p.Kanji] = i
			counts = append(counts, KanjiCount{Kanji: p.Kanji})
		}
		counts[i].Count++
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}
