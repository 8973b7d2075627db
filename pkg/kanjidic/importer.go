package kanjidic

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/japaniel/furigana/pkg/db"
)

// Importer copies loaded characters into the sqlite store, where
// db.Dictionary serves them without parsing the XML again.
type Importer struct {
	conn   *sql.DB
	Logger *log.Logger // optional
}

// NewImporter creates an importer writing to conn.
func NewImporter(conn *sql.DB) *Importer {
	return &Importer{conn: conn}
}

// Import replaces all stored readings with chars in one transaction and
// returns the number of characters written.
func (im *Importer) Import(chars []Character) (int, error) {
	tx, err := im.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if err := db.DeleteKanjiReadings(tx); err != nil {
		return 0, fmt.Errorf("clear readings: %w", err)
	}
	count := 0
	for _, c := range chars {
		for i, g := range c.Groups {
			if err := db.InsertKanjiReadings(tx, string(c.Literal), i, g.On, g.Kun); err != nil {
				return 0, err
			}
		}
		count++
		if im.Logger != nil && count%1000 == 0 {
			im.Logger.Printf("imported %d characters", count)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}
