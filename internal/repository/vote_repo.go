package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redstone-squid/Redstone-Squid/internal/model"
)

var (
	ErrSessionNotFound = errors.New("vote session not found")
	ErrSessionClosed   = errors.New("vote session is closed")
	ErrUnknownEmoji    = errors.New("emoji is not an option in this vote session")
)

type VoteRepo struct {
	pool *pgxpool.Pool
}

func NewVoteRepo(pool *pgxpool.Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

// OpenSessionParams carries everything needed to create a session. Exactly
// one of Build or DeleteLog must be set, matching Kind.
type OpenSessionParams struct {
	AuthorID      int64
	Kind          string
	PassThreshold int
	FailThreshold int
	Emojis        []model.SessionEmoji

	BuildID   int64
	Changes   json.RawMessage
	DeleteLog *model.DeleteLogVoteSession
}

// CreateSession inserts the session, its emoji options, and its kind
// association in one transaction. Build-change sessions lock the target
// build so edits are deferred until the session resolves.
func (r *VoteRepo) CreateSession(ctx context.Context, p OpenSessionParams) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var sessionID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO vote_sessions (author_id, kind, pass_threshold, fail_threshold)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		p.AuthorID, p.Kind, p.PassThreshold, p.FailThreshold).Scan(&sessionID)
	if err != nil {
		return 0, err
	}

	for _, e := range p.Emojis {
		_, err = tx.Exec(ctx, `
			INSERT INTO vote_session_emojis (vote_session_id, emoji, default_multiplier)
			VALUES ($1, $2, $3)`,
			sessionID, e.Emoji, e.DefaultMultiplier)
		if err != nil {
			return 0, err
		}
	}

	switch p.Kind {
	case model.VoteKindBuild:
		changes := p.Changes
		if changes == nil {
			changes = json.RawMessage("[]")
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO build_vote_sessions (vote_session_id, build_id, changes)
			VALUES ($1, $2, $3)`,
			sessionID, p.BuildID, changes)
		if err != nil {
			return 0, err
		}
		// Conditional lock acquisition: zero rows means another session
		// already holds the build, and this open must fail with it.
		tag, err := tx.Exec(ctx, `
			UPDATE builds SET is_locked = TRUE, locked_at = NOW()
			WHERE id = $1 AND NOT is_locked`, p.BuildID)
		if err != nil {
			return 0, err
		}
		if tag.RowsAffected() == 0 {
			return 0, ErrBuildLocked
		}
	case model.VoteKindDeleteLog:
		_, err = tx.Exec(ctx, `
			INSERT INTO delete_log_vote_sessions
				(vote_session_id, target_message_id, target_channel_id, target_server_id)
			VALUES ($1, $2, $3, $4)`,
			sessionID, p.DeleteLog.TargetMessageID, p.DeleteLog.TargetChannelID, p.DeleteLog.TargetServerID)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return sessionID, nil
}

// UpsertVote records a user's ballot and returns the session kind. Last
// vote wins: re-voting replaces the prior weight and emoji. Fails if the
// session is not open or the emoji was not declared for it.
func (r *VoteRepo) UpsertVote(ctx context.Context, sessionID, userID int64, emoji string, weight float64) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var status, kind string
	err = tx.QueryRow(ctx, `SELECT status, kind FROM vote_sessions WHERE id = $1 FOR SHARE`, sessionID).Scan(&status, &kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}
	if status != model.SessionOpen {
		return "", ErrSessionClosed
	}

	var declared bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM vote_session_emojis
		               WHERE vote_session_id = $1 AND emoji = $2)`,
		sessionID, emoji).Scan(&declared)
	if err != nil {
		return "", err
	}
	if !declared {
		return "", ErrUnknownEmoji
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO votes (vote_session_id, user_id, weight, emoji)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (vote_session_id, user_id) DO UPDATE
		SET weight = EXCLUDED.weight, emoji = EXCLUDED.emoji, created_at = NOW()`,
		sessionID, userID, weight, emoji)
	if err != nil {
		return "", err
	}

	return kind, tx.Commit(ctx)
}

// DeleteVote removes a user's ballot from an open session.
func (r *VoteRepo) DeleteVote(ctx context.Context, sessionID, userID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM votes v
		USING vote_sessions s
		WHERE v.vote_session_id = $1 AND v.user_id = $2
		  AND s.id = v.vote_session_id AND s.status = 'open'`,
		sessionID, userID)
	return err
}

// NetWeight sums the signed weights of all ballots in a session.
func (r *VoteRepo) NetWeight(ctx context.Context, sessionID int64) (float64, error) {
	var net float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(weight), 0) FROM votes WHERE vote_session_id = $1`,
		sessionID).Scan(&net)
	return net, err
}

// UserVote returns the user's current ballot, or nil if they have not voted.
func (r *VoteRepo) UserVote(ctx context.Context, sessionID, userID int64) (*model.Vote, error) {
	var v model.Vote
	err := r.pool.QueryRow(ctx, `
		SELECT vote_session_id, user_id, weight, emoji, created_at
		FROM votes WHERE vote_session_id = $1 AND user_id = $2`,
		sessionID, userID).Scan(&v.VoteSessionID, &v.UserID, &v.Weight, &v.Emoji, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// EmojiMultiplier returns the default multiplier declared for an emoji in a
// session, or ErrUnknownEmoji.
func (r *VoteRepo) EmojiMultiplier(ctx context.Context, sessionID int64, emoji string) (float64, error) {
	var m float64
	err := r.pool.QueryRow(ctx, `
		SELECT default_multiplier FROM vote_session_emojis
		WHERE vote_session_id = $1 AND emoji = $2`,
		sessionID, emoji).Scan(&m)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUnknownEmoji
	}
	return m, err
}

// CloseSession transitions a session open -> closed with the given result.
// Returns false without error when the session was already closed, so
// at-least-once callers can retry safely. On a real transition it unlocks
// the target build (build kind), appends exactly one outbox event, and
// notifies the event channel with the new event id — all in one transaction.
func (r *VoteRepo) CloseSession(ctx context.Context, sessionID int64, result, eventChannel string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var kind string
	var closedAt time.Time
	err = tx.QueryRow(ctx, `
		UPDATE vote_sessions
		SET status = 'closed', result = $2, closed_at = NOW()
		WHERE id = $1 AND status = 'open'
		RETURNING kind, closed_at`,
		sessionID, result).Scan(&kind, &closedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Already closed (or missing): a no-op, not an error.
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if kind == model.VoteKindBuild {
		_, err = tx.Exec(ctx, `
			UPDATE builds SET is_locked = FALSE, locked_at = NULL
			WHERE id = (SELECT build_id FROM build_vote_sessions WHERE vote_session_id = $1)`,
			sessionID)
		if err != nil {
			return false, err
		}
	}

	payload, err := json.Marshal(model.VoteSessionClosedPayload{Result: result, ClosedAt: closedAt})
	if err != nil {
		return false, err
	}

	var eventID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO events (aggregate, aggregate_id, type, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		model.AggregateVoteSession, sessionID, model.EventVoteSessionClosed, payload).Scan(&eventID)
	if err != nil {
		return false, err
	}

	_, err = tx.Exec(ctx, `SELECT pg_notify($1, $2::text)`, eventChannel, eventID)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// GetSession loads a session with its kind association and emoji options.
func (r *VoteRepo) GetSession(ctx context.Context, sessionID int64) (*model.VoteSession, error) {
	var s model.VoteSession
	err := r.pool.QueryRow(ctx, `
		SELECT id, created_at, status, result, author_id, kind, pass_threshold, fail_threshold
		FROM vote_sessions WHERE id = $1`, sessionID).Scan(
		&s.ID, &s.CreatedAt, &s.Status, &s.Result, &s.AuthorID, &s.Kind,
		&s.PassThreshold, &s.FailThreshold)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	switch s.Kind {
	case model.VoteKindBuild:
		var b model.BuildVoteSession
		err = r.pool.QueryRow(ctx, `
			SELECT vote_session_id, build_id, changes
			FROM build_vote_sessions WHERE vote_session_id = $1`, sessionID).Scan(
			&b.VoteSessionID, &b.BuildID, &b.Changes)
		if err != nil {
			return nil, err
		}
		s.Build = &b
	case model.VoteKindDeleteLog:
		var d model.DeleteLogVoteSession
		err = r.pool.QueryRow(ctx, `
			SELECT vote_session_id, target_message_id, target_channel_id, target_server_id
			FROM delete_log_vote_sessions WHERE vote_session_id = $1`, sessionID).Scan(
			&d.VoteSessionID, &d.TargetMessageID, &d.TargetChannelID, &d.TargetServerID)
		if err != nil {
			return nil, err
		}
		s.DeleteLog = &d
	}

	rows, err := r.pool.Query(ctx, `
		SELECT vote_session_id, emoji, default_multiplier
		FROM vote_session_emojis WHERE vote_session_id = $1`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var e model.SessionEmoji
		if err := rows.Scan(&e.VoteSessionID, &e.Emoji, &e.DefaultMultiplier); err != nil {
			return nil, err
		}
		s.Emojis = append(s.Emojis, e)
	}
	return &s, rows.Err()
}

// OpenSessionIDs lists every open session, oldest first.
func (r *VoteRepo) OpenSessionIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM vote_sessions WHERE status = 'open' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
