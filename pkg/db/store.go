package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/japaniel/furigana/pkg/furigana"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// InsertKanjiReadings stores one reading group of a kanji. Readings already
// stored for the same group are ignored.
func InsertKanjiReadings(db DBExecutor, kanji string, group int, on, kun []string) error {
	if utf8.RuneCountInString(kanji) != 1 {
		return fmt.Errorf("kanji must be a single character, got %q", kanji)
	}
	insert := func(kind string, readings []string) error {
		for _, r := range readings {
			r = strings.TrimSpace(r)
			if r == "" {
				continue
			}
			_, err := db.Exec(`INSERT OR IGNORE INTO kanji_readings (kanji, grp, kind, reading) VALUES (?, ?, ?, ?)`,
				kanji, group, kind, r)
			if err != nil {
				return fmt.Errorf("insert %s reading %q of %s: %w", kind, r, kanji, err)
			}
		}
		return nil
	}
	if err := insert("on", on); err != nil {
		return err
	}
	return insert("kun", kun)
}

// DeleteKanjiReadings removes all stored kanji readings.
func DeleteKanjiReadings(db DBExecutor) error {
	_, err := db.Exec(`DELETE FROM kanji_readings`)
	return err
}

// CountKanji returns the number of kanji with stored readings.
func CountKanji(db DBExecutor) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(DISTINCT kanji) FROM kanji_readings`).Scan(&n)
	return n, err
}

// Dictionary serves the stored kanji readings to the furigana engine.
type Dictionary struct {
	db DBExecutor
}

// NewDictionary returns a Dictionary reading from db.
func NewDictionary(db DBExecutor) *Dictionary {
	return &Dictionary{db: db}
}

// Lookup returns the reading groups of kanji in insertion order.
func (d *Dictionary) Lookup(kanji rune) ([]furigana.ReadingGroup, error) {
	rows, err := d.db.Query(`SELECT grp, kind, reading FROM kanji_readings WHERE kanji = ? ORDER BY grp, id`, string(kanji))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []furigana.ReadingGroup
	last := -1
	for rows.Next() {
		var grp int
		var kind, reading string
		if err := rows.Scan(&grp, &kind, &reading); err != nil {
			return nil, err
		}
		if grp != last {
			groups = append(groups, furigana.ReadingGroup{})
			last = grp
		}
		g := &groups[len(groups)-1]
		if kind == "on" {
			g.On = append(g.On, reading)
		} else {
			g.Kun = append(g.Kun, reading)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

// CreateRun inserts a new run and returns its ULID.
func CreateRun(db DBExecutor, label string) (string, error) {
	id := ulid.Make().String()
	_, err := db.Exec(`INSERT INTO runs (id, label, started_at) VALUES (?, ?, ?)`, id, label, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// GetRun returns the run with the given id.
func GetRun(db DBExecutor, id string) (Run, error) {
	var r Run
	var label sql.NullString
	err := db.QueryRow(`SELECT id, label, started_at FROM runs WHERE id = ?`, id).Scan(&r.ID, &label, &r.StartedAt)
	if err != nil {
		return Run{}, err
	}
	r.Label = label.String
	return r, nil
}

// SaveAnnotation stores an annotated line, replacing an earlier result for
// the same line of the run.
func SaveAnnotation(db DBExecutor, a Annotation) error {
	if a.RunID == "" {
		return fmt.Errorf("runID must be non-empty")
	}
	_, err := db.Exec(`INSERT INTO annotations (run_id, document, line, source, annotated, has_furigana)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, document, line) DO UPDATE SET
	  source = excluded.source,
	  annotated = excluded.annotated,
	  has_furigana = excluded.has_furigana`,
		a.RunID, a.Document, a.Line, a.Source, a.Annotated, a.HasFurigana)
	if err != nil {
		return fmt.Errorf("save annotation %s:%d: %w", a.Document, a.Line, err)
	}
	return nil
}

// SaveProblems appends problems to a run.
func SaveProblems(db DBExecutor, problems []ProblemRecord) error {
	for _, p := range problems {
		if p.RunID == "" {
			return fmt.Errorf("runID must be non-empty")
		}
		_, err := db.Exec(`INSERT INTO problems (run_id, document, line, kanji, description) VALUES (?, ?, ?, ?, ?)`,
			p.RunID, p.Document, p.Line, p.Kanji, p.Description)
		if err != nil {
			return fmt.Errorf("save problem: %w", err)
		}
	}
	return nil
}

// ProblemCounts returns the number of problems per kanji of a run, most
// frequent first, ties in order of first appearance.
func ProblemCounts(db DBExecutor, runID string) ([]furigana.KanjiCount, error) {
	rows, err := db.Query(`SELECT kanji, COUNT(*) AS n, MIN(id) AS first FROM problems
	WHERE run_id = ? AND IFNULL(kanji, '') != ''
	GROUP BY kanji ORDER BY n DESC, first ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []furigana.KanjiCount
	for rows.Next() {
		var c furigana.KanjiCount
		var first int64
		if err := rows.Scan(&c.Kanji, &c.Count, &first); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAnnotations returns the annotated lines of a document in line order.
func GetAnnotations(db DBExecutor, runID, document string) ([]Annotation, error) {
	rows, err := db.Query(`SELECT line, source, annotated, has_furigana FROM annotations
	WHERE run_id = ? AND document = ? ORDER BY line`, runID, document)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Annotation
	for rows.Next() {
		a := Annotation{RunID: runID, Document: document}
		if err := rows.Scan(&a.Line, &a.Source, &a.Annotated, &a.HasFurigana); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
