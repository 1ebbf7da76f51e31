package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateSchema creates all tables needed by the core. Safe to call multiple
// times; every statement is IF NOT EXISTS.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    discord_id BIGINT UNIQUE,
    ign TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS builds (
    id BIGSERIAL PRIMARY KEY,
    category TEXT NOT NULL DEFAULT 'Door'
        CHECK (category IN ('Door', 'Extender', 'Utility', 'Entrance')),
    submission_status SMALLINT NOT NULL DEFAULT 0
        CHECK (submission_status IN (0, 1, 2)),
    width INT,
    height INT,
    depth INT,
    submitter_id BIGINT NOT NULL REFERENCES users(id),
    extra_info JSONB NOT NULL DEFAULT '{}',
    is_locked BOOLEAN NOT NULL DEFAULT FALSE,
    locked_at TIMESTAMPTZ,
    submission_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    edited_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_builds_status ON builds(submission_status);

CREATE TABLE IF NOT EXISTS doors (
    build_id BIGINT PRIMARY KEY REFERENCES builds(id) ON DELETE CASCADE,
    orientation TEXT NOT NULL
        CHECK (orientation IN ('Door', 'Skydoor', 'Trapdoor')),
    door_width INT,
    door_height INT,
    door_depth INT,
    normal_opening_time INT,
    normal_closing_time INT,
    visible_opening_time INT,
    visible_closing_time INT
);

CREATE TABLE IF NOT EXISTS types (
    id SERIAL PRIMARY KEY,
    build_category TEXT NOT NULL DEFAULT 'Door',
    name TEXT NOT NULL,
    UNIQUE (build_category, name)
);

CREATE TABLE IF NOT EXISTS restrictions (
    id SERIAL PRIMARY KEY,
    build_category TEXT NOT NULL DEFAULT 'Door',
    name TEXT NOT NULL,
    type TEXT NOT NULL
        CHECK (type IN ('wiring-placement', 'component', 'miscellaneous')),
    UNIQUE (build_category, name)
);

CREATE TABLE IF NOT EXISTS restriction_aliases (
    restriction_id INT NOT NULL REFERENCES restrictions(id) ON DELETE CASCADE,
    alias TEXT NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (restriction_id, alias)
);

CREATE TABLE IF NOT EXISTS build_types (
    build_id BIGINT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
    type_id INT NOT NULL REFERENCES types(id) ON DELETE CASCADE,
    PRIMARY KEY (build_id, type_id)
);

CREATE TABLE IF NOT EXISTS build_restrictions (
    build_id BIGINT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
    restriction_id INT NOT NULL REFERENCES restrictions(id) ON DELETE CASCADE,
    PRIMARY KEY (build_id, restriction_id)
);

-- Derived table maintained by the record index engine. Fully rebuildable.
CREATE TABLE IF NOT EXISTS smallest_door_records (
    orientation TEXT NOT NULL,
    door_width INT NOT NULL,
    door_height INT NOT NULL,
    door_depth INT NOT NULL,
    type_ids INT[] NOT NULL,
    restriction_subset INT[] NOT NULL,
    build_id BIGINT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
    volume INT NOT NULL,
    title TEXT,
    PRIMARY KEY (orientation, door_width, door_height, door_depth, type_ids, restriction_subset)
);

CREATE INDEX IF NOT EXISTS idx_smallest_door_records_build
    ON smallest_door_records(build_id);

CREATE TABLE IF NOT EXISTS vote_sessions (
    id BIGSERIAL PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    status TEXT NOT NULL DEFAULT 'open'
        CHECK (status IN ('open', 'closed')),
    result TEXT NOT NULL DEFAULT 'pending'
        CHECK (result IN ('pending', 'approved', 'rejected', 'cancelled')),
    author_id BIGINT NOT NULL REFERENCES users(id),
    kind TEXT NOT NULL CHECK (kind IN ('build', 'delete_log')),
    pass_threshold INT NOT NULL CHECK (pass_threshold > 0),
    fail_threshold INT NOT NULL CHECK (fail_threshold < 0),
    closed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_vote_sessions_status ON vote_sessions(status);

CREATE TABLE IF NOT EXISTS build_vote_sessions (
    vote_session_id BIGINT PRIMARY KEY REFERENCES vote_sessions(id) ON DELETE CASCADE,
    build_id BIGINT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
    changes JSONB NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_build_vote_sessions_build
    ON build_vote_sessions(build_id);

CREATE TABLE IF NOT EXISTS delete_log_vote_sessions (
    vote_session_id BIGINT PRIMARY KEY REFERENCES vote_sessions(id) ON DELETE CASCADE,
    target_message_id BIGINT NOT NULL,
    target_channel_id BIGINT NOT NULL,
    target_server_id BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS vote_session_emojis (
    vote_session_id BIGINT NOT NULL REFERENCES vote_sessions(id) ON DELETE CASCADE,
    emoji TEXT NOT NULL,
    default_multiplier DOUBLE PRECISION NOT NULL DEFAULT 1,
    PRIMARY KEY (vote_session_id, emoji)
);

CREATE TABLE IF NOT EXISTS votes (
    vote_session_id BIGINT NOT NULL REFERENCES vote_sessions(id) ON DELETE CASCADE,
    user_id BIGINT NOT NULL REFERENCES users(id),
    weight DOUBLE PRECISION NOT NULL,
    emoji TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (vote_session_id, user_id)
);

-- Append-only event outbox, consumed at-least-once by the bot process.
CREATE TABLE IF NOT EXISTS events (
    id BIGSERIAL PRIMARY KEY,
    aggregate TEXT NOT NULL,
    aggregate_id BIGINT NOT NULL,
    type TEXT NOT NULL,
    payload JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    processed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_events_unprocessed
    ON events(id) WHERE processed_at IS NULL;
`
