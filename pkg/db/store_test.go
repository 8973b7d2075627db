package db

import (
	"database/sql"
	"reflect"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/japaniel/furigana/pkg/furigana"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Ensure single connection to avoid separate in-memory DBs per connection.
	db.SetMaxOpenConns(1)
	if err := InitDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestKanjiReadingsAndDictionary(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := InsertKanjiReadings(db, "生", 0, []string{"セイ", "ショウ"}, []string{"い.きる", "なま"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// duplicates are ignored
	if err := InsertKanjiReadings(db, "生", 0, []string{"セイ"}, nil); err != nil {
		t.Fatalf("insert again: %v", err)
	}
	if err := InsertKanjiReadings(db, "生", 1, nil, []string{"うぶ"}); err != nil {
		t.Fatalf("insert group 1: %v", err)
	}
	if err := InsertKanjiReadings(db, "戸", 0, []string{"コ"}, []string{"と"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := InsertKanjiReadings(db, "戸口", 0, []string{"ココウ"}, nil); err == nil {
		t.Fatal("expected error for multi-character kanji")
	}

	n, err := CountKanji(db)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 kanji, got %d", n)
	}

	got, err := NewDictionary(db).Lookup('生')
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	want := []furigana.ReadingGroup{
		{On: []string{"セイ", "ショウ"}, Kun: []string{"い.きる", "なま"}},
		{Kun: []string{"うぶ"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("lookup = %v, want %v", got, want)
	}

	missing, err := NewDictionary(db).Lookup('猫')
	if err != nil || missing != nil {
		t.Fatalf("lookup of missing kanji = %v, %v", missing, err)
	}

	if err := DeleteKanjiReadings(db); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, _ := CountKanji(db); n != 0 {
		t.Fatalf("expected 0 kanji after delete, got %d", n)
	}
}

func TestCreateRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	id1, err := CreateRun(db, "first")
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	id2, err := CreateRun(db, "")
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected distinct run ids, got %s twice", id1)
	}
	if _, err := ulid.Parse(id1); err != nil {
		t.Fatalf("run id %q is not a ULID: %v", id1, err)
	}

	run, err := GetRun(db, id1)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Label != "first" || run.StartedAt.IsZero() {
		t.Fatalf("unexpected run %+v", run)
	}
}

func TestAnnotationsAndProblems(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	runID, err := CreateRun(db, "test")
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	lines := []Annotation{
		{RunID: runID, Document: "a.txt", Line: 1, Source: "今日", Annotated: "今日[きょう]", HasFurigana: true},
		{RunID: runID, Document: "a.txt", Line: 0, Source: "かな", Annotated: "かな"},
		{RunID: runID, Document: "b.txt", Line: 0, Source: "書く", Annotated: "書[か]く", HasFurigana: true},
	}
	for _, a := range lines {
		if err := SaveAnnotation(db, a); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	// overwrite line 1
	lines[0].Annotated = "今[きょ]日[う]"
	if err := SaveAnnotation(db, lines[0]); err != nil {
		t.Fatalf("save again: %v", err)
	}
	if err := SaveAnnotation(db, Annotation{Document: "a.txt"}); err == nil {
		t.Fatal("expected error for missing run id")
	}

	got, err := GetAnnotations(db, runID, "a.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 || got[0].Line != 0 || got[1].Annotated != "今[きょ]日[う]" || !got[1].HasFurigana {
		t.Fatalf("unexpected annotations %+v", got)
	}

	problems := []ProblemRecord{
		{RunID: runID, Document: "a.txt", Line: 1, Kanji: "戸", Description: "x"},
		{RunID: runID, Document: "a.txt", Line: 1, Kanji: "今", Description: "x"},
		{RunID: runID, Document: "a.txt", Line: 2, Kanji: "今", Description: "x"},
		{RunID: runID, Document: "b.txt", Line: 0, Kanji: "", Description: "whole line"},
		{RunID: runID, Document: "b.txt", Line: 3, Kanji: "戸", Description: "x"},
		{RunID: runID, Document: "b.txt", Line: 4, Kanji: "猫", Description: "x"},
	}
	if err := SaveProblems(db, problems); err != nil {
		t.Fatalf("save problems: %v", err)
	}
	counts, err := ProblemCounts(db, runID)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	want := []furigana.KanjiCount{{Kanji: "戸", Count: 2}, {Kanji: "今", Count: 2}, {Kanji: "猫", Count: 1}}
	if !reflect.DeepEqual(counts, want) {
		t.Fatalf("counts = %v, want %v", counts, want)
	}
}
