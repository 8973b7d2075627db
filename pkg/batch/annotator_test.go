package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/japaniel/furigana/pkg/db"
	"github.com/japaniel/furigana/pkg/furigana"
)

// wordConverter reads the words it knows, converts kana runs as they are
// and leaves every other kanji unread.
type wordConverter map[string]string

func (c wordConverter) Convert(text string) ([]furigana.Token, error) {
	var tokens []furigana.Token
	var kana []rune
	flush := func() {
		if len(kana) > 0 {
			tokens = append(tokens, kanaToken(string(kana)))
			kana = kana[:0]
		}
	}

	runes := []rune(text)
	for i := 0; i < len(runes); {
		if runes[i] == '\n' {
			flush()
			tokens = append(tokens, furigana.Token{Original: "\n", Hiragana: "\n", Katakana: "\n"})
			i++
			continue
		}
		if word, hira := c.longest(runes[i:]); word != "" {
			flush()
			tok := kanaToken(hira)
			tok.Original = word
			tokens = append(tokens, tok)
			i += len([]rune(word))
			continue
		}
		if furigana.IsKanji(runes[i]) {
			flush()
			tokens = append(tokens, furigana.Token{Original: string(runes[i])})
			i++
			continue
		}
		kana = append(kana, runes[i])
		i++
	}
	flush()
	return tokens, nil
}

func (c wordConverter) longest(runes []rune) (string, string) {
	for n := len(runes); n > 0; n-- {
		if hira, ok := c[string(runes[:n])]; ok {
			return string(runes[:n]), hira
		}
	}
	return "", ""
}

func kanaToken(s string) furigana.Token {
	return furigana.Token{
		Original: s,
		Hiragana: shift(s, 0x30A1, 0x30F6, -0x60),
		Katakana: shift(s, 0x3041, 0x3096, 0x60),
	}
}

func shift(s string, lo, hi, by rune) string {
	return strings.Map(func(r rune) rune {
		if r >= lo && r <= hi {
			return r + by
		}
		return r
	}, s)
}

var testWords = wordConverter{
	"日": "ひ",
	"木": "き",
	"目": "め",
}

func newEngine() (*furigana.Engine, error) {
	return furigana.New(testWords, furigana.Config{OpenTag: "[", CloseTag: "]"})
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	if err := db.InitDB(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestAnnotateKeepsInputOrder(t *testing.T) {
	var docs []Document
	var want []string
	for i := 0; i < 40; i++ {
		switch i % 3 {
		case 0:
			docs = append(docs, Document{Name: fmt.Sprintf("doc%d", i), Text: "日よう\n木\n"})
			want = append(want, "日[ひ]よう\n木[き]\n")
		case 1:
			docs = append(docs, Document{Name: fmt.Sprintf("doc%d", i), Text: "目です"})
			want = append(want, "目[め]です")
		default:
			docs = append(docs, Document{Name: fmt.Sprintf("doc%d", i), Text: "かなだけ"})
			want = append(want, "かなだけ")
		}
	}

	a := NewAnnotator(newEngine)
	var mu sync.Mutex
	var progress []int
	a.OnProgress = func(done, total int) {
		mu.Lock()
		progress = append(progress, done)
		mu.Unlock()
		if total != len(docs) {
			t.Errorf("total = %d, want %d", total, len(docs))
		}
	}

	results, err := a.Annotate(context.Background(), docs)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if len(results) != len(docs) {
		t.Fatalf("got %d results, want %d", len(results), len(docs))
	}
	for i, r := range results {
		if r.Document != docs[i].Name {
			t.Errorf("result %d is %s, want %s", i, r.Document, docs[i].Name)
		}
		if r.Text != want[i] {
			t.Errorf("%s: Text = %q, want %q", r.Document, r.Text, want[i])
		}
		if r.HasFurigana != (i%3 != 2) {
			t.Errorf("%s: HasFurigana = %v", r.Document, r.HasFurigana)
		}
	}
	if len(progress) != len(docs) || progress[len(progress)-1] != len(docs) {
		t.Errorf("progress = %v", progress)
	}
}

func TestAnnotateCorrelatesProblemsWithLines(t *testing.T) {
	a := NewAnnotator(newEngine)
	results, err := a.Annotate(context.Background(), []Document{{Name: "story", Text: "日\n謎の木\n謎\n"}})
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	r := results[0]
	if want := "日[ひ]\n謎の木[き]\n謎\n"; r.Text != want {
		t.Errorf("Text = %q, want %q", r.Text, want)
	}
	var refs []LineRef
	for _, p := range r.Problems {
		if p.Kanji != "謎" {
			t.Errorf("unexpected problem %v", p)
		}
		refs = append(refs, p.Correlator.(LineRef))
	}
	wantRefs := []LineRef{{Document: "story", Line: 1}, {Document: "story", Line: 2}}
	if !reflect.DeepEqual(refs, wantRefs) {
		t.Errorf("correlators = %v, want %v", refs, wantRefs)
	}
	if got := r.Problems[0].String(); !strings.HasPrefix(got, "story:2: ") {
		t.Errorf("problem string = %q", got)
	}
}

func TestAnnotatePersistsRun(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	runID, err := db.CreateRun(conn, "test")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	a := NewAnnotator(newEngine)
	a.DB = conn
	a.RunID = runID
	a.BatchSize = 2
	docs := []Document{
		{Name: "a", Text: "日\n謎\n"},
		{Name: "b", Text: "謎と謎\n"},
		{Name: "c", Text: "木"},
	}
	if _, err := a.Annotate(context.Background(), docs); err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	got, err := db.GetAnnotations(conn, runID, "a")
	if err != nil {
		t.Fatalf("GetAnnotations: %v", err)
	}
	want := []db.Annotation{
		{RunID: runID, Document: "a", Line: 0, Source: "日\n", Annotated: "日[ひ]\n", HasFurigana: true},
		{RunID: runID, Document: "a", Line: 1, Source: "謎\n", Annotated: "謎\n"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("annotations = %+v, want %+v", got, want)
	}

	counts, err := db.ProblemCounts(conn, runID)
	if err != nil {
		t.Fatalf("ProblemCounts: %v", err)
	}
	if want := []furigana.KanjiCount{{Kanji: "謎", Count: 3}}; !reflect.DeepEqual(counts, want) {
		t.Errorf("counts = %v, want %v", counts, want)
	}
}

func TestAnnotateRequiresRunID(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	a := NewAnnotator(newEngine)
	a.DB = conn
	if _, err := a.Annotate(context.Background(), []Document{{Name: "a", Text: "日"}}); err == nil {
		t.Fatal("expected error without RunID")
	}
}

func TestAnnotateKeepsLinesTheEngineRejects(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()
	runID, err := db.CreateRun(conn, "reserved")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	a := NewAnnotator(newEngine)
	a.DB = conn
	a.RunID = runID
	docs := []Document{
		{Name: "a.txt", Text: "日です\n注[1]を参照。\n"},
		{Name: "b.txt", Text: "木"},
	}
	results, err := a.Annotate(context.Background(), docs)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	if want := "日[ひ]です\n注[1]を参照。\n"; results[0].Text != want {
		t.Errorf("a.txt: Text = %q, want %q", results[0].Text, want)
	}
	if len(results[0].Problems) != 1 {
		t.Fatalf("a.txt: problems = %v, want 1", results[0].Problems)
	}
	p := results[0].Problems[0]
	if p.Kanji != "" || p.Correlator != (LineRef{Document: "a.txt", Line: 1}) {
		t.Errorf("problem = %+v", p)
	}
	if !strings.Contains(p.Description, furigana.ErrReservedDelimiter.Error()) {
		t.Errorf("description %q does not name the cause", p.Description)
	}
	if results[1].Text != "木[き]" || len(results[1].Problems) != 0 {
		t.Errorf("b.txt = %+v", results[1])
	}

	got, err := db.GetAnnotations(conn, runID, "a.txt")
	if err != nil {
		t.Fatalf("GetAnnotations: %v", err)
	}
	if len(got) != 2 || got[1].Annotated != "注[1]を参照。\n" || got[1].HasFurigana {
		t.Errorf("stored lines = %+v", got)
	}
	counts, err := db.ProblemCounts(conn, runID)
	if err != nil {
		t.Fatalf("ProblemCounts: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("counts = %v, want none", counts)
	}
}

func TestAnnotateEngineFactoryError(t *testing.T) {
	boom := errors.New("no dictionary")
	a := NewAnnotator(func() (*furigana.Engine, error) { return nil, boom })
	if _, err := a.Annotate(context.Background(), []Document{{Name: "a", Text: "日"}}); !errors.Is(err, boom) {
		t.Fatalf("expected factory error, got %v", err)
	}
}

func TestAnnotateCreatesOneEnginePerWorker(t *testing.T) {
	for _, tc := range []struct {
		workers, docs, want int
	}{
		{workers: 3, docs: 10, want: 3},
		{workers: 8, docs: 2, want: 2},
		{workers: 0, docs: 5, want: 1},
	} {
		var mu sync.Mutex
		created := 0
		a := NewAnnotator(func() (*furigana.Engine, error) {
			mu.Lock()
			created++
			mu.Unlock()
			return newEngine()
		})
		a.Workers = tc.workers
		docs := make([]Document, tc.docs)
		for i := range docs {
			docs[i] = Document{Name: fmt.Sprintf("doc%d", i), Text: "日"}
		}
		results, err := a.Annotate(context.Background(), docs)
		if err != nil {
			t.Fatalf("Annotate: %v", err)
		}
		if created != tc.want {
			t.Errorf("workers=%d docs=%d: %d engines, want %d", tc.workers, tc.docs, created, tc.want)
		}
		for _, r := range results {
			if r.Text != "日[ひ]" {
				t.Errorf("%s: Text = %q", r.Document, r.Text)
			}
		}
	}
}

func TestAnnotateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := NewAnnotator(newEngine)
	if _, err := a.Annotate(ctx, []Document{{Name: "a", Text: "日"}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func BenchmarkAnnotate(b *testing.B) {
	docs := make([]Document, 32)
	for i := range docs {
		docs[i] = Document{Name: fmt.Sprintf("doc%d", i), Text: strings.Repeat("日よう木目です\n", 50)}
	}
	a := NewAnnotator(newEngine)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := a.Annotate(context.Background(), docs); err != nil {
			b.Fatal(err)
		}
	}
}
