package main

import (
	"fmt"
	"strings"

	"github.com/japaniel/furigana/pkg/batch"
	"github.com/japaniel/furigana/pkg/furigana"
)

// tagCandidates are tried in order when the default tags occur in the input.
var tagCandidates = [][2]string{
	{"[", "]"},
	{"《", "》"},
	{"〘", "〙"},
	{"⟦", "⟧"},
}

// sentinelCandidates are tried in order for the engine's internal markers.
// The later pairs are private use characters.
var sentinelCandidates = [][2]string{
	{furigana.DefaultSentinelOpen, furigana.DefaultSentinelClose},
	{"\uE000", "\uE001"},
	{"\uF8F0", "\uF8F1"},
}

// chooseDelimiters makes sure no tag or sentinel of cfg occurs in docs, so
// the engine never rejects a line. Tags the user chose are kept and their
// presence in the input is an error. Default tags and the sentinels are
// replaced by the first candidate pair the input does not contain.
func chooseDelimiters(docs []batch.Document, cfg furigana.Config, tagsChosen bool) (furigana.Config, string, error) {
	var notice string
	if name, tag := firstUse(docs, cfg.OpenTag, cfg.CloseTag); name != "" {
		if tagsChosen {
			return cfg, "", fmt.Errorf("%s contains the annotation tag %q; choose other tags", name, tag)
		}
		pair, ok := firstUnused(docs, tagCandidates, nil)
		if !ok {
			return cfg, "", fmt.Errorf("%s contains the annotation tag %q and no alternative tags are free", name, tag)
		}
		notice = fmt.Sprintf("%s contains %q; annotating with %s%s instead", name, tag, pair[0], pair[1])
		cfg.OpenTag, cfg.CloseTag = pair[0], pair[1]
	}

	clashes := func(p [2]string) bool {
		for _, s := range p {
			if strings.Contains(cfg.OpenTag, s) || strings.Contains(cfg.CloseTag, s) {
				return true
			}
		}
		return false
	}
	pair, ok := firstUnused(docs, sentinelCandidates, clashes)
	if !ok {
		return cfg, "", fmt.Errorf("the input contains every internal marker candidate")
	}
	cfg.SentinelOpen, cfg.SentinelClose = pair[0], pair[1]
	return cfg, notice, nil
}

// firstUse returns the first document containing one of delims and the
// delimiter found.
func firstUse(docs []batch.Document, delims ...string) (string, string) {
	for _, d := range docs {
		for _, s := range delims {
			if s != "" && strings.Contains(d.Text, s) {
				return d.Name, s
			}
		}
	}
	return "", ""
}

func firstUnused(docs []batch.Document, candidates [][2]string, skip func([2]string) bool) ([2]string, bool) {
	for _, p := range candidates {
		if skip != nil && skip(p) {
			continue
		}
		if name, _ := firstUse(docs, p[0], p[1]); name == "" {
			return p, true
		}
	}
	return [2]string{}, false
}
