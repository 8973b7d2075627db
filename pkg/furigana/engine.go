// Package furigana adds readings to the kanji of Japanese text.
//
// Each kanji is followed by its reading between two caller chosen tags, so
// with "[" and "]" the text 漢字を書く becomes 漢[かん]字[じ]を書[か]く. When the
// reading of a word cannot be split over its kanji, the whole kanji run is
// tagged once: 今日[きょう].
//
// Readings come from a Converter (usually a morphological analyzer) which
// reads whole words. The Engine splits those word readings over the single
// kanji using candidate readings from an optional Dictionary, an optional
// Tagger and the Converter itself, cached per kanji for the lifetime of the
// Engine.
package furigana

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// Default sentinels that wrap custom word readings while a text is processed.
const (
	DefaultSentinelOpen  = "<"
	DefaultSentinelClose = ">"
)

// Config configures an Engine. OpenTag and CloseTag are required.
type Config struct {
	OpenTag  string
	CloseTag string

	// SentinelOpen and SentinelClose wrap custom word readings internally.
	// They default to "<" and ">" and, like the tags, must not occur in the
	// processed text.
	SentinelOpen  string
	SentinelClose string

	// WordOrder decides the precedence of overlapping custom words.
	WordOrder WordOrder

	Dictionary Dictionary // optional
	Tagger     Tagger     // optional

	// Logger receives debug output about reading lookups. nil means no logging.
	Logger *log.Logger
}

// Result is the outcome of one Process call.
type Result struct {
	Text string
	// HasFurigana is true when at least one reading was added.
	HasFurigana bool
	// Problems lists the runs that could only be tagged as a whole and the
	// chunks that could not be read.
	Problems []Problem
}

// Engine annotates text. The reading cache warms up across Process calls, so
// one Engine should be reused for all lines of a document. An Engine is safe
// for concurrent use, but calls are serialized.
type Engine struct {
	mu    sync.Mutex
	conv  Converter
	cfg   Config
	cache *readingCache
	words wordTable
}

// New creates an Engine using conv for all readings.
func New(conv Converter, cfg Config) (*Engine, error) {
	if conv == nil {
		return nil, fmt.Errorf("furigana: converter is required")
	}
	if cfg.OpenTag == "" || cfg.CloseTag == "" {
		return nil, fmt.Errorf("furigana: open and close tags are required")
	}
	if cfg.SentinelOpen == "" {
		cfg.SentinelOpen = DefaultSentinelOpen
	}
	if cfg.SentinelClose == "" {
		cfg.SentinelClose = DefaultSentinelClose
	}
	for _, s := range []string{cfg.SentinelOpen, cfg.SentinelClose} {
		if strings.Contains(cfg.OpenTag, s) || strings.Contains(cfg.CloseTag, s) {
			return nil, fmt.Errorf("furigana: sentinel %q clashes with tags %q %q", s, cfg.OpenTag, cfg.CloseTag)
		}
	}
	if cfg.WordOrder != RegistrationOrder && cfg.WordOrder != LongestFirst {
		return nil, fmt.Errorf("furigana: unknown word order %d", cfg.WordOrder)
	}
	return &Engine{
		conv:  conv,
		cfg:   cfg,
		cache: newReadingCache(conv, cfg.Dictionary, cfg.Tagger, cfg.Logger),
	}, nil
}

// RegisterKanjiReadings replaces the candidate readings of the given kanji.
// Keys must be single kanji. The readings win over anything the collaborators
// would provide, including readings already cached.
func (e *Engine) RegisterKanjiReadings(readings map[string]KanjiReading) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys := make([]string, 0, len(readings))
	for k := range readings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// validate everything before touching the cache
	type seed struct {
		kanji      rune
		candidates []ReadingCandidate
	}
	seeds := make([]seed, 0, len(keys))
	for _, key := range keys {
		r := readings[key]
		kanji, size := utf8.DecodeRuneInString(key)
		if size != len(key) || !IsKanji(kanji) {
			return &RegistrationError{Key: key, Msg: "key must be a single kanji"}
		}
		if len(r.On)+len(r.Kun) == 0 {
			return &RegistrationError{Key: key, Msg: "no readings"}
		}
		var candidates []ReadingCandidate
		for _, on := range r.On {
			if on == "" {
				return &RegistrationError{Key: key, Msg: "empty on reading"}
			}
			hira, err := kanaToHira(e.conv, on)
			if err != nil {
				return err
			}
			candidates = append(candidates, ReadingCandidate{Katakana: on, Hiragana: hira})
		}
		for _, kun := range r.Kun {
			if kun == "" {
				return &RegistrationError{Key: key, Msg: "empty kun reading"}
			}
			if strings.ContainsAny(kun, ".-") {
				return &RegistrationError{Key: key, Msg: fmt.Sprintf("kun reading %q must not contain '.' or '-'", kun)}
			}
			kata, err := hiraToKana(e.conv, kun)
			if err != nil {
				return err
			}
			candidates = append(candidates, ReadingCandidate{Katakana: kata, Hiragana: kun})
		}
		seeds = append(seeds, seed{kanji: kanji, candidates: candidates})
	}

	for _, s := range seeds {
		e.cache.seed(s.kanji, s.candidates)
	}
	return nil
}

// RegisterWordReadings adds readings for whole words. Every occurrence of a
// word is tagged with the given readings before any automatic reading is
// attempted. Registering a word again replaces its reading.
func (e *Engine) RegisterWordReadings(readings []WordReading) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	type entry struct{ word, replacement string }
	entries := make([]entry, 0, len(readings))
	for _, r := range readings {
		word := strings.Join(r.Parts, "")
		if len(r.Parts) == 0 {
			return &RegistrationError{Key: word, Msg: "no parts"}
		}
		if len(r.Parts) != len(r.Readings) {
			return &RegistrationError{Key: word, Msg: fmt.Sprintf("%d parts but %d readings", len(r.Parts), len(r.Readings))}
		}

		var b strings.Builder
		b.WriteString(e.cfg.SentinelOpen)
		for i, part := range r.Parts {
			reading := r.Readings[i]
			if part == "" {
				return &RegistrationError{Key: word, Msg: fmt.Sprintf("part %d is empty", i)}
			}
			if e.reserved(part) || e.reserved(reading) {
				return &RegistrationError{Key: word, Msg: "contains a tag or sentinel"}
			}
			if !HasKanji(part) {
				b.WriteString(part)
				continue
			}
			if reading == "" {
				return &RegistrationError{Key: word, Msg: fmt.Sprintf("no reading for %q", part)}
			}
			b.WriteString(part)
			b.WriteString(e.cfg.OpenTag)
			b.WriteString(reading)
			b.WriteString(e.cfg.CloseTag)
		}
		b.WriteString(e.cfg.SentinelClose)
		entries = append(entries, entry{word: word, replacement: b.String()})
	}

	for _, en := range entries {
		e.words.put(en.word, en.replacement)
	}
	return nil
}

// Process adds furigana to text. correlator is copied into every Problem,
// e.g. a line number. An error means text or a collaborator broke the
// engine's contract; reading failures are reported as Problems instead.
func (e *Engine) Process(text string, correlator interface{}) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.reserved(text) {
		return Result{}, ErrReservedDelimiter
	}

	var res Result
	substituted, changed, err := substituteWords(text, e.words.ordered(e.cfg.WordOrder), e.cfg.SentinelOpen, e.cfg.SentinelClose)
	if err != nil {
		return Result{}, err
	}
	if changed {
		res.HasFurigana = true
	}

	spans, err := splitSentinels(substituted, e.cfg.SentinelOpen, e.cfg.SentinelClose)
	if err != nil {
		return Result{}, err
	}
	spans = maskURLs(spans)

	var out strings.Builder
	for _, s := range spans {
		switch s.kind {
		case spanCustom:
			res.HasFurigana = true
			out.WriteString(s.text)
		case spanOpaque:
			out.WriteString(s.text)
		default:
			has, err := e.annotate(&out, s.text, correlator, &res.Problems)
			if err != nil {
				return Result{}, err
			}
			if has {
				res.HasFurigana = true
			}
		}
	}
	res.Text = out.String()
	return res, nil
}

func (e *Engine) reserved(s string) bool {
	for _, d := range []string{e.cfg.OpenTag, e.cfg.CloseTag, e.cfg.SentinelOpen, e.cfg.SentinelClose} {
		if strings.Contains(s, d) {
			return true
		}
	}
	return false
}

// annotate writes the annotated form of a plain span to out.
func (e *Engine) annotate(out *strings.Builder, text string, correlator interface{}, problems *[]Problem) (bool, error) {
	tokens, err := e.conv.Convert(text)
	if err != nil {
		return false, fmt.Errorf("convert text: %w", err)
	}

	hasFurigana := false
	for _, t := range tokens {
		if utf8.RuneCountInString(t.Hiragana) != utf8.RuneCountInString(t.Katakana) {
			return false, contractf("token %q: hiragana %q and katakana %q differ in length", t.Original, t.Hiragana, t.Katakana)
		}

		switch {
		case strings.HasSuffix(t.Original, "\n"):
			out.WriteString(t.Original)
			continue
		case t.Hiragana == "":
			*problems = append(*problems, Problem{
				Description: fmt.Sprintf("failed to translate %q", t.Original),
				Kanji:       t.Original,
				Correlator:  correlator,
			})
			out.WriteString(t.Original)
			continue
		case !HasKanji(t.Original) || t.Original == t.Hiragana:
			out.WriteString(t.Original)
			continue
		}

		hasFurigana = true
		if err := e.annotateToken(out, t, correlator, problems); err != nil {
			return false, err
		}
	}
	return hasFurigana, nil
}

// annotateToken tags the kanji runs of a token that contains kanji.
func (e *Engine) annotateToken(out *strings.Builder, t Token, correlator interface{}, problems *[]Problem) error {
	segs, hiraSegs, kataSegs, err := alignToken(t)
	if err != nil {
		return err
	}

	for i, s := range segs {
		if !s.Kanji {
			out.WriteString(s.Text)
			continue
		}

		if utf8.RuneCountInString(kataSegs[i].Text) > 1 {
			readings, ok, found, err := e.resolve(s.Text, t.Original, kataSegs[i].Text, correlator)
			if err != nil {
				return err
			}
			*problems = append(*problems, found...)
			if ok {
				j := 0
				for _, k := range s.Text {
					e.writeTag(out, string(k), readings[j])
					j++
				}
				continue
			}
		}
		e.writeTag(out, s.Text, hiraSegs[i].Text)
	}
	return nil
}

// alignToken splits the original of a kanji token into kanji and non-kanji
// segments and cuts both readings to match.
func alignToken(t Token) (segs, hiraSegs, kataSegs []Segment, err error) {
	segs = splitByClass(t.Original)
	if len(segs) == 1 {
		return segs, []Segment{{Text: t.Hiragana, Kanji: true}}, []Segment{{Text: t.Katakana, Kanji: true}}, nil
	}
	kata := fixLongVowels(t.Original, t.Katakana)
	if hiraSegs, err = alignHiragana(segs, t.Hiragana, kata); err != nil {
		return nil, nil, nil, err
	}
	if kataSegs, err = alignKatakana(hiraSegs, kata); err != nil {
		return nil, nil, nil, err
	}
	return segs, hiraSegs, kataSegs, nil
}

// CheckToken reports whether Process accepts t: both readings have the same
// length and every non-kanji part of Original can be found in the reading.
// Unreadable tokens (empty Hiragana) and tokens without kanji always pass.
// Converters use it to fall back to an unreadable token instead of handing
// the engine something it rejects.
func CheckToken(t Token) error {
	if utf8.RuneCountInString(t.Hiragana) != utf8.RuneCountInString(t.Katakana) {
		return contractf("token %q: hiragana %q and katakana %q differ in length", t.Original, t.Hiragana, t.Katakana)
	}
	if t.Hiragana == "" || !HasKanji(t.Original) || t.Original == t.Hiragana {
		return nil
	}
	_, _, _, err := alignToken(t)
	return err
}

func (e *Engine) writeTag(out *strings.Builder, kanji, reading string) {
	out.WriteString(kanji)
	out.WriteString(e.cfg.OpenTag)
	out.WriteString(reading)
	out.WriteString(e.cfg.CloseTag)
}
