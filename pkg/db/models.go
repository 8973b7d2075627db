package db

import "time"

// Run is one annotation run over a set of documents.
type Run struct {
	ID        string // ULID
	Label     string
	StartedAt time.Time
}

// Annotation is one annotated line of a document.
type Annotation struct {
	RunID       string
	Document    string
	Line        int
	Source      string
	Annotated   string
	HasFurigana bool
}

// ProblemRecord is a persisted furigana.Problem.
type ProblemRecord struct {
	RunID       string
	Document    string
	Line        int
	Kanji       string
	Description string
}
