package journal

import (
	"database/sql"
	"fmt"
	"time"
)

// GetFill returns a single fill record by ID.
func (j *SQLite) GetFill(fillID string) (FillRecord, error) {
	var rec FillRecord

	row := j.db.QueryRow(`
		SELECT fill_id, instrument, side, krw, quantity, price, time
		FROM fills
		WHERE fill_id = ?`, fillID)

	err := row.Scan(
		&rec.FillID,
		&rec.Instrument,
		&rec.Side,
		&rec.KRW,
		&rec.Quantity,
		&rec.Price,
		&rec.Time,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return FillRecord{}, fmt.Errorf("fill %q not found", fillID)
		}
		return FillRecord{}, err
	}
	return rec, nil
}

// ListFillsBetween returns fills whose time is within [start, end),
// oldest first.
func (j *SQLite) ListFillsBetween(start, end time.Time) ([]FillRecord, error) {
	rows, err := j.db.Query(`
		SELECT fill_id, instrument, side, krw, quantity, price, time
		FROM fills
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FillRecord
	for rows.Next() {
		var rec FillRecord
		if err := rows.Scan(
			&rec.FillID,
			&rec.Instrument,
			&rec.Side,
			&rec.KRW,
			&rec.Quantity,
			&rec.Price,
			&rec.Time,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Totals aggregates one instrument's journaled activity.
type Totals struct {
	Instrument string
	BuyKRW     float64
	SellKRW    float64
	NetQty     float64
}

// InstrumentTotals sums buys, sells and net quantity per instrument.
func (j *SQLite) InstrumentTotals() ([]Totals, error) {
	rows, err := j.db.Query(`
		SELECT instrument,
		       COALESCE(SUM(CASE WHEN side = 'buy' THEN krw END), 0),
		       COALESCE(SUM(CASE WHEN side = 'sell' THEN krw END), 0),
		       COALESCE(SUM(CASE WHEN side = 'buy' THEN quantity ELSE -quantity END), 0)
		FROM fills
		GROUP BY instrument
		ORDER BY instrument`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Totals
	for rows.Next() {
		var t Totals
		if err := rows.Scan(&t.Instrument, &t.BuyKRW, &t.SellKRW, &t.NetQty); err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
