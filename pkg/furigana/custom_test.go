package furigana

import (
	"errors"
	"reflect"
	"testing"
)

func TestSplitSentinels(t *testing.T) {
	got, err := splitSentinels("a<b>c<d>", "<", ">")
	if err != nil {
		t.Fatalf("splitSentinels: %v", err)
	}
	want := []span{{"a", spanPlain}, {"b", spanCustom}, {"c", spanPlain}, {"d", spanCustom}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := splitSentinels("a<b", "<", ">"); !errors.Is(err, ErrContract) {
		t.Errorf("expected contract error for unterminated sentinel, got %v", err)
	}
}

func TestMaskURLs(t *testing.T) {
	in := []span{
		{"読む http://a.jp/x\tと ftp://b", spanPlain},
		{"http://c", spanCustom},
	}
	want := []span{
		{"読む ", spanPlain},
		{"http://a.jp/x", spanOpaque},
		{"\tと ", spanPlain},
		{"ftp://b", spanOpaque},
		{"http://c", spanCustom},
	}
	if got := maskURLs(in); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSubstituteWordsSkipsCustomSpans(t *testing.T) {
	words := []customWord{
		{word: "本", replacement: "<本[もと]>"},
		{word: "日本", replacement: "<日[に]本[ほん]>"},
	}
	got, changed, err := substituteWords("本と日本", words, "<", ">")
	if err != nil {
		t.Fatalf("substituteWords: %v", err)
	}
	if !changed {
		t.Error("changed = false")
	}
	if want := "<本[もと]>と日<本[もと]>"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
