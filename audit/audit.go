// Package audit keeps a best-effort trail of auth events in Postgres.
// Recording never fails the flow that produced the event.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"marketplace-auth/auth"

	"github.com/google/uuid"
)

type Trail struct {
	db *sql.DB
}

func NewTrail(db *sql.DB) *Trail {
	return &Trail{db: db}
}

// Record persists one event. Errors are logged and swallowed.
func (t *Trail) Record(ctx context.Context, event auth.Event) {
	if t == nil || t.db == nil {
		return
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		log.Printf("audit: encode %s payload: %v", event.Type, err)
		payload = []byte("{}")
	}

	_, err = t.db.ExecContext(ctx,
		"INSERT INTO auth_events (id, event, payload, created_at) VALUES ($1, $2, $3, $4)",
		uuid.NewString(), string(event.Type), payload, time.Now().UTC(),
	)
	if err != nil {
		log.Printf("audit: record %s: %v", event.Type, err)
	}
}

// Wrap decorates a dispatcher so every event is also recorded.
func (t *Trail) Wrap(next auth.Dispatcher) auth.Dispatcher {
	return auth.DispatchFunc(func(event auth.Event) {
		t.Record(context.Background(), event)
		if next != nil {
			next.Dispatch(event)
		}
	})
}
