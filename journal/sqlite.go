package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordFill(f FillRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO fills
		(fill_id, instrument, side, krw, quantity, price, time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.FillID, f.Instrument, f.Side, f.KRW, f.Quantity, f.Price, f.Time,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
