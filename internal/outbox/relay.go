package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/uniform-shop/internal/db"
)

type Publisher interface {
	Publish(ctx context.Context, events []Event) error
}

// Transactor runs fn with a Store bound to one transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

type pgTransactor struct {
	pg *db.Postgres
}

func NewTransactor(pg *db.Postgres) Transactor {
	return &pgTransactor{pg: pg}
}

func (t *pgTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	return t.pg.WithinTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, NewStore(tx))
	})
}

// Observer is notified about relay progress; metrics.Outbox implements it.
type Observer interface {
	EventsPublished(n int)
	PublishFailed()
}

type noopObserver struct{}

func (noopObserver) EventsPublished(int) {}
func (noopObserver) PublishFailed()      {}

type Relay struct {
	tx        Transactor
	publisher Publisher
	observer  Observer
	batchSize int
	interval  time.Duration
}

func NewRelay(tx Transactor, publisher Publisher, observer Observer, batchSize int, interval time.Duration) *Relay {
	if observer == nil {
		observer = noopObserver{}
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Relay{tx: tx, publisher: publisher, observer: observer, batchSize: batchSize, interval: interval}
}

// Run polls until ctx is cancelled. A full batch is followed immediately by
// another poll so a backlog drains without waiting for the ticker.
func (r *Relay) Run(ctx context.Context) {
	log.Info().Dur("interval", r.interval).Int("batch_size", r.batchSize).Msg("outbox: relay started")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("outbox: relay stopped")
			return
		case <-ticker.C:
			for {
				n, err := r.ProcessOnce(ctx)
				if err != nil {
					if ctx.Err() == nil {
						log.Error().Err(err).Msg("outbox: relay batch failed")
					}
					break
				}
				if n < r.batchSize {
					break
				}
			}
		}
	}
}

// ProcessOnce publishes one batch and marks it sent. When publishing fails the
// transaction rolls back and the events stay pending for the next poll.
func (r *Relay) ProcessOnce(ctx context.Context) (int, error) {
	var published int
	err := r.tx.WithinTx(ctx, func(ctx context.Context, store Store) error {
		events, err := store.FetchPending(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		if err := r.publisher.Publish(ctx, events); err != nil {
			r.observer.PublishFailed()
			return fmt.Errorf("outbox: failed to publish %d events: %w", len(events), err)
		}

		ids := make([]int64, 0, len(events))
		for _, e := range events {
			ids = append(ids, e.ID)
		}
		if err := store.MarkSent(ctx, ids); err != nil {
			return err
		}
		published = len(events)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if published > 0 {
		r.observer.EventsPublished(published)
		log.Debug().Int("count", published).Msg("outbox: events published")
	}
	return published, nil
}
