// Package outbox stores domain events in the same transaction as the state
// change that produced them and relays them to Kafka afterwards.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/uniform-shop/internal/db"
)

type Event struct {
	ID        int64           `json:"id"`
	EventID   uuid.UUID       `json:"event_id"`
	Topic     string          `json:"topic"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at"`
}

// NewEvent marshals payload and assigns a fresh event id.
func NewEvent(topic, key string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("outbox: failed to marshal payload for %s: %w", topic, err)
	}
	eventID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("outbox: failed to generate event ID: %w", err)
	}
	return &Event{EventID: eventID, Topic: topic, Key: key, Payload: data}, nil
}

type Store interface {
	Enqueue(ctx context.Context, event *Event) error
	// FetchPending claims up to limit unsent events. Rows stay locked until the
	// surrounding transaction ends, and rows locked by another relay are skipped.
	FetchPending(ctx context.Context, limit int) ([]Event, error)
	MarkSent(ctx context.Context, ids []int64) error
}

type postgresStore struct {
	db db.Querier
}

func NewStore(q db.Querier) Store {
	return &postgresStore{db: q}
}

func (s *postgresStore) Enqueue(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO outbox (event_id, topic, key, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := s.db.QueryRow(ctx, query, event.EventID, event.Topic, event.Key, []byte(event.Payload)).
		Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert outbox event %s: %w", event.EventID, err)
	}
	return nil
}

func (s *postgresStore) FetchPending(ctx context.Context, limit int) ([]Event, error) {
	query := `
		SELECT id, event_id, topic, key, payload, created_at, sent_at
		FROM outbox
		WHERE sent_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query pending outbox events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var e Event
		var payload []byte
		if err := rows.Scan(&e.ID, &e.EventID, &e.Topic, &e.Key, &payload, &e.CreatedAt, &e.SentAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan outbox event: %w", err)
		}
		e.Payload = payload
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating outbox events: %w", err)
	}

	return events, nil
}

func (s *postgresStore) MarkSent(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.db.Exec(ctx, `UPDATE outbox SET sent_at = now() WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("repository: failed to mark %d outbox events sent: %w", len(ids), err)
	}
	return nil
}
