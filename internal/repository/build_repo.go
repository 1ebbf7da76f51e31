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

var ErrBuildNotFound = errors.New("build not found")

// ErrBuildLocked means the build's cooperative edit lock is already held
// by an open vote session.
var ErrBuildLocked = errors.New("build is locked")

type BuildRepo struct {
	pool *pgxpool.Pool
}

func NewBuildRepo(pool *pgxpool.Pool) *BuildRepo {
	return &BuildRepo{pool: pool}
}

// Create inserts a build in pending status and returns its id.
func (r *BuildRepo) Create(ctx context.Context, b *model.Build) (int64, error) {
	extra := b.ExtraInfo
	if extra == nil {
		extra = map[string]json.RawMessage{}
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.pool.QueryRow(ctx, `
		INSERT INTO builds (category, submission_status, width, height, depth, submitter_id, extra_info)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		b.Category, b.SubmissionStatus, b.Width, b.Height, b.Depth, b.SubmitterID, extraJSON).Scan(&id)
	return id, err
}

// FindByID loads a build with its door row and tag associations.
func (r *BuildRepo) FindByID(ctx context.Context, buildID int64) (*model.Build, error) {
	var b model.Build
	var extraJSON []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, category, submission_status, width, height, depth, submitter_id,
		       extra_info, is_locked, locked_at, submission_time, edited_time
		FROM builds WHERE id = $1`, buildID).Scan(
		&b.ID, &b.Category, &b.SubmissionStatus, &b.Width, &b.Height, &b.Depth,
		&b.SubmitterID, &extraJSON, &b.IsLocked, &b.LockedAt, &b.SubmissionTime, &b.EditedTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBuildNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(extraJSON, &b.ExtraInfo); err != nil {
		return nil, err
	}

	var d model.Door
	err = r.pool.QueryRow(ctx, `
		SELECT build_id, orientation, door_width, door_height, door_depth,
		       normal_opening_time, normal_closing_time, visible_opening_time, visible_closing_time
		FROM doors WHERE build_id = $1`, buildID).Scan(
		&d.BuildID, &d.Orientation, &d.DoorWidth, &d.DoorHeight, &d.DoorDepth,
		&d.NormalOpeningTime, &d.NormalClosingTime, &d.VisibleOpeningTime, &d.VisibleClosingTime)
	if err == nil {
		b.Door = &d
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE((SELECT array_agg(type_id ORDER BY type_id)
		                 FROM build_types WHERE build_id = $1), '{}'),
		       COALESCE((SELECT array_agg(restriction_id ORDER BY restriction_id)
		                 FROM build_restrictions WHERE build_id = $1), '{}')`,
		buildID).Scan(&b.TypeIDs, &b.RestrictionIDs)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateDimensions sets the structural dimensions of a build.
func (r *BuildRepo) UpdateDimensions(ctx context.Context, buildID int64, width, height, depth *int) error {
	return r.exec1(ctx, `
		UPDATE builds SET width = $2, height = $3, depth = $4, edited_time = NOW()
		WHERE id = $1`, buildID, width, height, depth)
}

// UpdateStatus moves a build through its submission lifecycle.
func (r *BuildRepo) UpdateStatus(ctx context.Context, buildID int64, status model.Status) error {
	return r.exec1(ctx, `
		UPDATE builds SET submission_status = $2, edited_time = NOW()
		WHERE id = $1`, buildID, status)
}

// MergeExtraInfo shallow-merges keys into the build's extension map.
func (r *BuildRepo) MergeExtraInfo(ctx context.Context, buildID int64, patch map[string]json.RawMessage) error {
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	return r.exec1(ctx, `
		UPDATE builds SET extra_info = extra_info || $2::jsonb, edited_time = NOW()
		WHERE id = $1`, buildID, patchJSON)
}

// SetDoor upserts the door attributes of a build.
func (r *BuildRepo) SetDoor(ctx context.Context, d *model.Door) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doors (build_id, orientation, door_width, door_height, door_depth,
		                   normal_opening_time, normal_closing_time,
		                   visible_opening_time, visible_closing_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (build_id) DO UPDATE SET
			orientation = EXCLUDED.orientation,
			door_width = EXCLUDED.door_width,
			door_height = EXCLUDED.door_height,
			door_depth = EXCLUDED.door_depth,
			normal_opening_time = EXCLUDED.normal_opening_time,
			normal_closing_time = EXCLUDED.normal_closing_time,
			visible_opening_time = EXCLUDED.visible_opening_time,
			visible_closing_time = EXCLUDED.visible_closing_time`,
		d.BuildID, d.Orientation, d.DoorWidth, d.DoorHeight, d.DoorDepth,
		d.NormalOpeningTime, d.NormalClosingTime, d.VisibleOpeningTime, d.VisibleClosingTime)
	return err
}

// SetTypes replaces the build's type associations.
func (r *BuildRepo) SetTypes(ctx context.Context, buildID int64, typeIDs []int32) error {
	return r.replaceAssoc(ctx, buildID, typeIDs, "build_types", "type_id")
}

// SetRestrictions replaces the build's restriction associations.
func (r *BuildRepo) SetRestrictions(ctx context.Context, buildID int64, restrictionIDs []int32) error {
	return r.replaceAssoc(ctx, buildID, restrictionIDs, "build_restrictions", "restriction_id")
}

func (r *BuildRepo) replaceAssoc(ctx context.Context, buildID int64, ids []int32, table, column string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE build_id = $1`, buildID); err != nil {
		return err
	}
	for _, id := range ids {
		_, err := tx.Exec(ctx,
			`INSERT INTO `+table+` (build_id, `+column+`) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			buildID, id)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Lock acquires the build's cooperative edit lock. The flag is a signal to
// the application, not a database lock; a conditional update that touches
// zero rows means someone else holds it, which is ErrBuildLocked.
func (r *BuildRepo) Lock(ctx context.Context, buildID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE builds SET is_locked = TRUE, locked_at = NOW()
		WHERE id = $1 AND NOT is_locked`, buildID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBuildLocked
	}
	return nil
}

// Unlock clears the cooperative edit lock.
func (r *BuildRepo) Unlock(ctx context.Context, buildID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE builds SET is_locked = FALSE, locked_at = NULL WHERE id = $1`, buildID)
	return err
}

// ReleaseStaleLocks force-releases edit locks older than maxAge. A process
// that crashes between session open and close leaks its lock; this is the
// safety valve that keeps such builds editable.
func (r *BuildRepo) ReleaseStaleLocks(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE builds SET is_locked = FALSE, locked_at = NULL
		WHERE is_locked AND locked_at < NOW() - make_interval(secs => $1)`,
		maxAge.Seconds())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes a build and everything hanging off it, inside the
// caller's transaction. The record engine owns that transaction: it must
// read the slots the build holds before the row delete cascades them away.
// Vote sessions that referenced the build and have no delete-log of their
// own are garbage collected too — a session whose only reason to exist was
// the build must not outlive it.
func (r *BuildRepo) Delete(ctx context.Context, tx pgx.Tx, buildID int64) error {
	_, err := tx.Exec(ctx, `
		DELETE FROM vote_sessions vs
		WHERE vs.id IN (SELECT vote_session_id FROM build_vote_sessions WHERE build_id = $1)
		  AND NOT EXISTS (SELECT 1 FROM delete_log_vote_sessions d
		                  WHERE d.vote_session_id = vs.id)`, buildID)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM builds WHERE id = $1`, buildID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBuildNotFound
	}
	return nil
}

func (r *BuildRepo) exec1(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBuildNotFound
	}
	return nil
}
