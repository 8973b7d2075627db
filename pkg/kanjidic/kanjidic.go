// Package kanjidic loads the on and kun readings of KANJIDIC2 and serves them
// as a furigana.Dictionary.
package kanjidic

import (
	"compress/gzip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/japaniel/furigana/pkg/furigana"
)

// Character is one KANJIDIC2 entry reduced to its Japanese readings.
type Character struct {
	Literal rune
	Groups  []furigana.ReadingGroup
}

// xmlCharacter matches a <character> element of kanjidic2.xml.
type xmlCharacter struct {
	Literal        string `xml:"literal"`
	ReadingMeaning struct {
		RMGroup []struct {
			Reading []struct {
				Value string `xml:",chardata"`
				Type  string `xml:"r_type,attr"`
			} `xml:"reading"`
		} `xml:"rmgroup"`
	} `xml:"reading_meaning"`
}

// Load streams kanjidic2.xml from r. Characters without Japanese readings are
// skipped.
func Load(r io.Reader) ([]Character, error) {
	var out []Character
	d := xml.NewDecoder(r)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse kanjidic: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "character" {
			continue
		}
		var k xmlCharacter
		if err := d.DecodeElement(&k, &se); err != nil {
			return nil, fmt.Errorf("decode character: %w", err)
		}
		if c, ok := k.character(); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (k xmlCharacter) character() (Character, bool) {
	literal := norm.NFC.String(strings.TrimSpace(k.Literal))
	if utf8.RuneCountInString(literal) != 1 {
		return Character{}, false
	}
	c := Character{}
	c.Literal, _ = utf8.DecodeRuneInString(literal)
	for _, group := range k.ReadingMeaning.RMGroup {
		var g furigana.ReadingGroup
		for _, r := range group.Reading {
			v := norm.NFC.String(strings.TrimSpace(r.Value))
			if v == "" {
				continue
			}
			switch r.Type {
			case "ja_on":
				g.On = append(g.On, v)
			case "ja_kun":
				g.Kun = append(g.Kun, v)
			}
		}
		if len(g.On)+len(g.Kun) > 0 {
			c.Groups = append(c.Groups, g)
		}
	}
	return c, len(c.Groups) > 0
}

// LoadFile reads kanjidic2.xml, or kanjidic2.xml.gz when path ends in ".gz".
func LoadFile(path string) ([]Character, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return Load(r)
}
