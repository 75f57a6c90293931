package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Direction of one transcript entry relative to the host.
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// Kind of payload the entry records.
const (
	KindCommand  = "command"
	KindResponse = "response"
	KindEnvelope = "envelope"
	KindRaw      = "raw"
)

// TranscriptEntry is one row of recorded link traffic. Action is set for
// commands, Status for responses; both stay empty for envelope and raw
// rows.
type TranscriptEntry struct {
	ID        int64
	Direction string
	Kind      string
	Action    string
	Status    string
	Body      string
	CreatedAt time.Time
}

type TranscriptRepo struct {
	db *sql.DB
}

func NewTranscriptRepo(db *sql.DB) *TranscriptRepo {
	return &TranscriptRepo{db: db}
}

func (r *TranscriptRepo) Insert(ctx context.Context, e TranscriptEntry) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transcript(direction, kind, action, status, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.Direction, e.Kind, nullableString(e.Action), nullableString(e.Status), e.Body, toUnixMillis(createdAt))
	if err != nil {
		return fmt.Errorf("insert transcript entry: %w", err)
	}
	return nil
}

// ListRecent returns up to limit entries, newest first.
func (r *TranscriptRepo) ListRecent(ctx context.Context, limit int) ([]TranscriptEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, direction, kind, action, status, body, created_at
		FROM transcript
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list transcript: %w", err)
	}
	defer rows.Close()

	var out []TranscriptEntry
	for rows.Next() {
		var (
			e         TranscriptEntry
			action    sql.NullString
			status    sql.NullString
			createdMs int64
		)
		if err := rows.Scan(&e.ID, &e.Direction, &e.Kind, &action, &status, &e.Body, &createdMs); err != nil {
			return nil, fmt.Errorf("scan transcript entry: %w", err)
		}
		if action.Valid {
			e.Action = action.String
		}
		if status.Valid {
			e.Status = status.String
		}
		e.CreatedAt = fromUnixMillis(createdMs)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcript: %w", err)
	}
	return out, nil
}

// TrimToNewest deletes everything but the keep newest entries and
// reports how many rows went away.
func (r *TranscriptRepo) TrimToNewest(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, fmt.Errorf("trim transcript: keep must be positive, got %d", keep)
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM transcript
		WHERE id NOT IN (SELECT id FROM transcript ORDER BY id DESC LIMIT ?)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("trim transcript: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("trim transcript rows affected: %w", err)
	}
	return deleted, nil
}

func (r *TranscriptRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transcript`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transcript: %w", err)
	}
	return n, nil
}
