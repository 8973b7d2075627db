// Package config loads reading overrides for the furigana engine from YAML.
package config

import (
	"fmt"
	"os"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/japaniel/furigana/pkg/furigana"
)

// Readings represents a reading overrides file.
//
//	tags:
//	  open: "《"
//	  close: "》"
//	word_order: longest
//	kanji:
//	  戸: {on: [コ], kun: [と, ど]}
//	words:
//	  - parts: [行, 灯]
//	    readings: [あん, どん]
type Readings struct {
	Tags      Tags                    `yaml:"tags"`
	WordOrder string                  `yaml:"word_order"`
	Kanji     map[string]KanjiReading `yaml:"kanji"`
	Words     []WordReading           `yaml:"words"`
}

// Tags overrides the annotation delimiters.
type Tags struct {
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

// KanjiReading lists the readings of one kanji.
type KanjiReading struct {
	On  []string `yaml:"on"`
	Kun []string `yaml:"kun"`
}

// WordReading fixes the reading of a whole word.
type WordReading struct {
	Parts    []string `yaml:"parts"`
	Readings []string `yaml:"readings"`
}

// LoadReadings loads reading overrides from a YAML file. All strings are
// NFC normalized.
func LoadReadings(path string) (*Readings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var r Readings
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if _, _, err := r.wordOrder(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.normalize()
	return &r, nil
}

func (r *Readings) normalize() {
	r.Tags.Open = norm.NFC.String(r.Tags.Open)
	r.Tags.Close = norm.NFC.String(r.Tags.Close)

	kanji := make(map[string]KanjiReading, len(r.Kanji))
	for k, v := range r.Kanji {
		kanji[norm.NFC.String(k)] = KanjiReading{On: nfcAll(v.On), Kun: nfcAll(v.Kun)}
	}
	r.Kanji = kanji

	for i := range r.Words {
		r.Words[i].Parts = nfcAll(r.Words[i].Parts)
		r.Words[i].Readings = nfcAll(r.Words[i].Readings)
	}
}

func nfcAll(ss []string) []string {
	if ss == nil {
		return nil
	}
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = norm.NFC.String(s)
	}
	return out
}

func (r *Readings) wordOrder() (furigana.WordOrder, bool, error) {
	switch r.WordOrder {
	case "":
		return 0, false, nil
	case "registration":
		return furigana.RegistrationOrder, true, nil
	case "longest":
		return furigana.LongestFirst, true, nil
	}
	return 0, false, fmt.Errorf("unknown word_order %q", r.WordOrder)
}

// EngineConfig returns base with the tags and word order of r applied.
// Unset fields keep the value of base.
func (r *Readings) EngineConfig(base furigana.Config) furigana.Config {
	cfg := base
	if r.Tags.Open != "" {
		cfg.OpenTag = r.Tags.Open
	}
	if r.Tags.Close != "" {
		cfg.CloseTag = r.Tags.Close
	}
	if order, ok, err := r.wordOrder(); err == nil && ok {
		cfg.WordOrder = order
	}
	return cfg
}

// Apply registers the kanji and word readings of r with e.
func (r *Readings) Apply(e *furigana.Engine) error {
	if len(r.Kanji) > 0 {
		kanji := make(map[string]furigana.KanjiReading, len(r.Kanji))
		for k, v := range r.Kanji {
			kanji[k] = furigana.KanjiReading{On: v.On, Kun: v.Kun}
		}
		if err := e.RegisterKanjiReadings(kanji); err != nil {
			return fmt.Errorf("register kanji readings: %w", err)
		}
	}
	if len(r.Words) > 0 {
		words := make([]furigana.WordReading, len(r.Words))
		for i, w := range r.Words {
			words[i] = furigana.WordReading{Parts: w.Parts, Readings: w.Readings}
		}
		if err := e.RegisterWordReadings(words); err != nil {
			return fmt.Errorf("register word readings: %w", err)
		}
	}
	return nil
}
