// pkg/journal/csv.go
package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	fills *csv.Writer
	file  *os.File
}

func NewCSV(path string) (*CSVJournal, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(file)
	err = w.Write([]string{"fill_id", "instrument", "side", "krw", "quantity", "price", "time"})
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, err
	}

	return &CSVJournal{fills: w, file: file}, nil
}

func (j *CSVJournal) RecordFill(rec FillRecord) error {
	err := j.fills.Write([]string{
		rec.FillID,
		rec.Instrument,
		rec.Side,
		f(rec.KRW),
		f(rec.Quantity),
		f(rec.Price),
		rec.Time.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	j.fills.Flush()
	return j.fills.Error()
}

func (j *CSVJournal) Close() error {
	j.fills.Flush()
	if err := j.fills.Error(); err != nil {
		return err
	}
	return j.file.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 8, 64)
}
