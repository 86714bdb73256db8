package syncx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
)

// Event types appended by the results store.
const (
	EventSubmissionGraded   = "SubmissionGraded"
	EventSubmissionFailed   = "SubmissionFailed"
	EventManualGradeApplied = "ManualGradeApplied"
)

type Event struct {
	Offset    int64  `db:"offset" json:"offset"`
	SiteID    string `db:"site_id" json:"site_id"`
	Type      string `db:"typ" json:"type"`
	Key       string `db:"key" json:"key"`
	DataJSON  string `db:"data" json:"data"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

// NewEvent marshals payload into an event keyed by key.
func NewEvent(typ, key string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{SiteID: "local", Type: typ, Key: key, DataJSON: string(b)}, nil
}

type EventRepo struct{ db *sqlx.DB }

func NewEventRepo(db *sqlx.DB) *EventRepo { return &EventRepo{db: db} }

// Append writes e through ext, which may be the database or an open transaction.
func (r *EventRepo) Append(ctx context.Context, ext sqlx.ExtContext, e Event) error {
	if ext == nil {
		ext = r.db
	}
	if e.SiteID == "" {
		e.SiteID = "local"
	}
	_, err := ext.ExecContext(ctx, ext.Rebind(
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES (?,?,?,?,?)`),
		e.SiteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// Since lists events after offset in append order.
func (r *EventRepo) Since(ctx context.Context, offset int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []Event
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(
		`SELECT "offset", site_id, typ, key, data, created_at
		   FROM event_log WHERE "offset" > ? ORDER BY "offset" LIMIT ?`), offset, limit)
	return out, err
}
