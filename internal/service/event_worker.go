package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redstone-squid/Redstone-Squid/internal/model"
	"github.com/redstone-squid/Redstone-Squid/internal/repository"
)

// EventHandler consumes a single outbox event inside the claiming
// transaction. Returning an error leaves the event unprocessed so a later
// pass retries it; handlers must therefore tolerate at-least-once delivery.
type EventHandler func(ctx context.Context, tx pgx.Tx, ev *model.Event) error

// EventWorker drains the transactional outbox. It LISTENs for NOTIFY wakeups
// but never trusts them alone: on connect (and reconnect) it replays the
// unprocessed backlog in id order, so events committed while the worker was
// down are never lost.
type EventWorker struct {
	pool     *pgxpool.Pool
	outbox   *repository.OutboxRepo
	channel  string
	handlers map[string]EventHandler

	// OnProcessed, when set, is called once per event marked processed.
	// Used to feed the Prometheus counter without a package cycle.
	OnProcessed func()
}

// NewEventWorker creates an outbox consumer listening on the given channel.
func NewEventWorker(pool *pgxpool.Pool, outbox *repository.OutboxRepo, channel string) *EventWorker {
	return &EventWorker{
		pool:     pool,
		outbox:   outbox,
		channel:  channel,
		handlers: make(map[string]EventHandler),
	}
}

// Handle registers the handler for an event type. Must be called before
// Start; the registry is not guarded.
func (w *EventWorker) Handle(eventType string, h EventHandler) {
	w.handlers[eventType] = h
}

// Start runs the consume loop until the context is cancelled, reconnecting
// with a delay after connection failures.
func (w *EventWorker) Start(ctx context.Context) {
	log.Printf("event-worker: starting (channel=%s)", w.channel)

	for {
		if err := w.listenLoop(ctx); err != nil {
			if ctx.Err() != nil {
				log.Println("event-worker: stopping (context cancelled)")
				return
			}
			log.Printf("event-worker: listen error, reconnecting in 5s: %v", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				log.Println("event-worker: stopping (context cancelled)")
				return
			}
		}
	}
}

// listenLoop acquires a dedicated connection, subscribes, replays the
// backlog, then blocks on notifications.
func (w *EventWorker) listenLoop(ctx context.Context) error {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	// LISTEN before the backlog scan, so events committed during the scan
	// still produce a wakeup.
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{w.channel}.Sanitize()); err != nil {
		return err
	}
	log.Printf("event-worker: listening on %s", w.channel)

	if err := w.drainBacklog(ctx); err != nil {
		return err
	}

	for {
		if _, err := conn.Conn().WaitForNotification(ctx); err != nil {
			return err
		}
		// The payload names one event id, but a single drain pass is
		// simpler and absorbs notification bursts.
		if err := w.drainBacklog(ctx); err != nil {
			return err
		}
	}
}

// drainBacklog processes every unprocessed event in id order. Events another
// worker instance holds are skipped and picked up by its owner.
func (w *EventWorker) drainBacklog(ctx context.Context) error {
	events, err := w.outbox.ListUnprocessed(ctx)
	if err != nil {
		return err
	}

	processed := 0
	for _, ev := range events {
		handled, err := w.processOne(ctx, ev.ID)
		if err != nil {
			log.Printf("event-worker: event %d (%s): %v", ev.ID, ev.Type, err)
			continue
		}
		if !handled {
			continue
		}
		if w.OnProcessed != nil {
			w.OnProcessed()
		}
		processed++
	}

	if processed > 0 {
		log.Printf("event-worker: drained %d of %d backlog events", processed, len(events))
	}
	return nil
}

// processOne claims, dispatches, and marks a single event in one
// transaction. A claim miss (already taken or already processed) is not an
// error, just not handled by us.
func (w *EventWorker) processOne(ctx context.Context, eventID int64) (bool, error) {
	handled := false
	err := w.outbox.InTx(ctx, func(tx pgx.Tx) error {
		ev, err := w.outbox.Claim(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if ev == nil {
			return nil
		}
		handled = true

		handler, ok := w.handlers[ev.Type]
		if !ok {
			// Unknown types are marked processed rather than retried
			// forever; a deploy that removes a handler must not wedge
			// the queue.
			log.Printf("event-worker: no handler for event type %q, skipping event %d", ev.Type, ev.ID)
			return w.outbox.MarkProcessed(ctx, tx, ev.ID)
		}

		if err := handler(ctx, tx, ev); err != nil {
			return fmt.Errorf("handle %s: %w", ev.Type, err)
		}
		return w.outbox.MarkProcessed(ctx, tx, ev.ID)
	})
	return handled && err == nil, err
}
