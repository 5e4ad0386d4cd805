package postgres

import (
	"database/sql"
	"time"

	"github.com/alfredjeanlab/eventboard/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanEvent scans a single row into a model.Event.
// The row must contain columns in the order defined by eventColumns.
func scanEvent(row scannable) (*model.Event, error) {
	var (
		e           model.Event
		description sql.NullString
		endAt       sql.NullTime
	)

	err := row.Scan(
		&e.ID,
		&e.Title,
		&description,
		&e.Start,
		&endAt,
		&e.Status,
		&e.IsHidden,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Description = description.String
	e.Start = e.Start.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	if endAt.Valid {
		t := endAt.Time.UTC()
		e.End = &t
	}
	return &e, nil
}

// nullTimePtr converts a *time.Time to sql.NullTime.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
