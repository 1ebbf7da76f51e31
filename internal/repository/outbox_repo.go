package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redstone-squid/Redstone-Squid/internal/model"
)

// OutboxRepo reads the append-only events table. Rows are produced inside
// the transactions that close vote sessions; this side only ever claims and
// marks them.
type OutboxRepo struct {
	pool *pgxpool.Pool
}

func NewOutboxRepo(pool *pgxpool.Pool) *OutboxRepo {
	return &OutboxRepo{pool: pool}
}

// ListUnprocessed returns every unconsumed event in creation (id) order.
// Used for backlog replay on consumer startup and for the ops surface.
func (r *OutboxRepo) ListUnprocessed(ctx context.Context) ([]model.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, aggregate, aggregate_id, type, payload, created_at, processed_at
		FROM events
		WHERE processed_at IS NULL
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Aggregate, &e.AggregateID, &e.Type,
			&e.Payload, &e.CreatedAt, &e.ProcessedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Claim locks one unprocessed event inside tx, skipping rows another
// consumer already holds. Returns nil if the event is gone or taken.
func (r *OutboxRepo) Claim(ctx context.Context, tx pgx.Tx, eventID int64) (*model.Event, error) {
	var e model.Event
	err := tx.QueryRow(ctx, `
		SELECT id, aggregate, aggregate_id, type, payload, created_at, processed_at
		FROM events
		WHERE id = $1 AND processed_at IS NULL
		FOR UPDATE SKIP LOCKED`, eventID).Scan(
		&e.ID, &e.Aggregate, &e.AggregateID, &e.Type, &e.Payload, &e.CreatedAt, &e.ProcessedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// MarkProcessed stamps an event as consumed.
func (r *OutboxRepo) MarkProcessed(ctx context.Context, tx pgx.Tx, eventID int64) error {
	_, err := tx.Exec(ctx, `UPDATE events SET processed_at = NOW() WHERE id = $1`, eventID)
	return err
}

// InTx runs fn inside a transaction, committing on nil error.
func (r *OutboxRepo) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
