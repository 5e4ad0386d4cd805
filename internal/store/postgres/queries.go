package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alfredjeanlab/eventboard/internal/model"
	"github.com/alfredjeanlab/eventboard/internal/store"
)

// eventColumns is the column list used for SELECT and RETURNING clauses.
const eventColumns = `id, title, description, start_at, end_at, status, is_hidden, created_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queryCreateEvent inserts e unless its id is retired. A live duplicate is
// rejected by the primary key; a deleted one by the NOT EXISTS guard.
func queryCreateEvent(ctx context.Context, db executor, e *model.Event) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO events (
			id, title, description, start_at, end_at, status, is_hidden, created_at
		)
		SELECT $1, $2, $3, $4::timestamptz, $5::timestamptz, $6, $7::boolean, $8::timestamptz
		WHERE NOT EXISTS (SELECT 1 FROM deleted_event_ids WHERE id = $1)`,
		e.ID,
		e.Title,
		e.Description,
		e.Start,
		nullTimePtr(e.End),
		string(e.Status),
		e.IsHidden,
		e.CreatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", store.ErrIDInUse, e.ID)
	}
	return nil
}

func queryGetEvent(ctx context.Context, db executor, id string, forUpdate bool) (*model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	return scanEvent(db.QueryRowContext(ctx, q, id))
}

func queryListEvents(ctx context.Context, db executor) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY start_at ASC, created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]*model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan events: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func queryUpdateEvent(ctx context.Context, db executor, e *model.Event) error {
	res, err := db.ExecContext(ctx, `
		UPDATE events SET
			title = $2, description = $3, start_at = $4, end_at = $5,
			status = $6, is_hidden = $7
		WHERE id = $1`,
		e.ID,
		e.Title,
		e.Description,
		e.Start,
		nullTimePtr(e.End),
		string(e.Status),
		e.IsHidden,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// queryDeleteEvent removes the row and records its id in deleted_event_ids
// in the same statement.
func queryDeleteEvent(ctx context.Context, db executor, id string) (*model.Event, error) {
	row := db.QueryRowContext(ctx, `
		WITH gone AS (
			DELETE FROM events WHERE id = $1 RETURNING `+eventColumns+`
		), retired AS (
			INSERT INTO deleted_event_ids (id) SELECT id FROM gone ON CONFLICT DO NOTHING
		)
		SELECT `+eventColumns+` FROM gone`, id)
	return scanEvent(row)
}
