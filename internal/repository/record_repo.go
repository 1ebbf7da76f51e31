package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redstone-squid/Redstone-Squid/internal/model"
)

type RecordRepo struct {
	pool *pgxpool.Pool
}

func NewRecordRepo(pool *pgxpool.Pool) *RecordRepo {
	return &RecordRepo{pool: pool}
}

// eligibleCandidates is the source query of the record index engine: every
// accepted Door build with all three dimensions confirmed, flattened to its
// slot-key attributes, volume, and sorted tag id arrays. A NULL door depth
// counts as 1.
const eligibleCandidates = `
	SELECT b.id,
	       b.width * b.height * b.depth AS volume,
	       d.orientation,
	       d.door_width,
	       d.door_height,
	       COALESCE(d.door_depth, 1) AS door_depth,
	       COALESCE((SELECT array_agg(bt.type_id ORDER BY bt.type_id)
	                 FROM build_types bt WHERE bt.build_id = b.id), '{}') AS type_ids,
	       COALESCE((SELECT array_agg(br.restriction_id ORDER BY br.restriction_id)
	                 FROM build_restrictions br WHERE br.build_id = b.id), '{}') AS restriction_ids
	FROM builds b
	JOIN doors d ON d.build_id = b.id
	WHERE b.category = 'Door'
	  AND b.submission_status = 1
	  AND b.width IS NOT NULL AND b.height IS NOT NULL AND b.depth IS NOT NULL
	  AND d.door_width IS NOT NULL AND d.door_height IS NOT NULL`

// InTx runs fn inside a transaction, committing on nil error.
func (r *RecordRepo) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
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

// AllCandidates returns every eligible door build, for a full rebuild.
func (r *RecordRepo) AllCandidates(ctx context.Context) ([]model.DoorCandidate, error) {
	rows, err := r.pool.Query(ctx, eligibleCandidates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCandidates(rows)
}

// Candidate returns the eligible-candidate view of a single build, or nil
// if the build is not currently eligible for any record slot.
func (r *RecordRepo) Candidate(ctx context.Context, tx pgx.Tx, buildID int64) (*model.DoorCandidate, error) {
	rows, err := tx.Query(ctx, eligibleCandidates+` AND b.id = $1`, buildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cands, err := scanCandidates(rows)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, nil
	}
	return &cands[0], nil
}

// HeldKeys returns the keys of every slot currently held by the build.
func (r *RecordRepo) HeldKeys(ctx context.Context, tx pgx.Tx, buildID int64) ([]model.RecordKey, error) {
	rows, err := tx.Query(ctx, `
		SELECT orientation, door_width, door_height, door_depth, type_ids, restriction_subset
		FROM smallest_door_records
		WHERE build_id = $1`, buildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []model.RecordKey
	for rows.Next() {
		var k model.RecordKey
		if err := rows.Scan(&k.Orientation, &k.DoorWidth, &k.DoorHeight, &k.DoorDepth,
			&k.TypeIDs, &k.RestrictionSubset); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// DeleteByHolder removes every slot held by the build (the retract phase).
func (r *RecordRepo) DeleteByHolder(ctx context.Context, tx pgx.Tx, buildID int64) error {
	_, err := tx.Exec(ctx, `DELETE FROM smallest_door_records WHERE build_id = $1`, buildID)
	return err
}

// BestCandidate selects the winner for one freed key: minimum volume among
// eligible builds whose type-set equals the key's exactly and whose
// restriction-set contains the key's subset. Ties go to the lowest build id.
// Returns nil if no build satisfies the key.
func (r *RecordRepo) BestCandidate(ctx context.Context, tx pgx.Tx, key model.RecordKey) (*model.RecordSlot, error) {
	query := `
		WITH eligible AS (` + eligibleCandidates + `)
		SELECT id, volume
		FROM eligible
		WHERE orientation = $1 AND door_width = $2 AND door_height = $3 AND door_depth = $4
		  AND type_ids = $5::int[]
		  AND restriction_ids @> $6::int[]
		ORDER BY volume, id
		LIMIT 1`

	var slot model.RecordSlot
	slot.RecordKey = key
	err := tx.QueryRow(ctx, query,
		key.Orientation, key.DoorWidth, key.DoorHeight, key.DoorDepth,
		emptyIfNil(key.TypeIDs), emptyIfNil(key.RestrictionSubset),
	).Scan(&slot.BuildID, &slot.Volume)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// Upsert writes a slot unconditionally, replacing any incumbent.
func (r *RecordRepo) Upsert(ctx context.Context, tx pgx.Tx, slot model.RecordSlot) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO smallest_door_records
			(orientation, door_width, door_height, door_depth, type_ids, restriction_subset, build_id, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (orientation, door_width, door_height, door_depth, type_ids, restriction_subset)
		DO UPDATE SET build_id = EXCLUDED.build_id, volume = EXCLUDED.volume, title = NULL`,
		slot.Orientation, slot.DoorWidth, slot.DoorHeight, slot.DoorDepth,
		emptyIfNil(slot.TypeIDs), emptyIfNil(slot.RestrictionSubset), slot.BuildID, slot.Volume)
	return err
}

// UpsertIfBetter writes a slot only when the candidate orders strictly below
// the incumbent on (volume, build_id), or the slot is empty. The ordering
// matches the rebuild tie-break exactly, which keeps concurrent upserts
// commutative and the incremental path byte-equivalent to a rebuild.
func (r *RecordRepo) UpsertIfBetter(ctx context.Context, tx pgx.Tx, slot model.RecordSlot) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO smallest_door_records
			(orientation, door_width, door_height, door_depth, type_ids, restriction_subset, build_id, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (orientation, door_width, door_height, door_depth, type_ids, restriction_subset)
		DO UPDATE SET build_id = EXCLUDED.build_id, volume = EXCLUDED.volume, title = NULL
		WHERE (EXCLUDED.volume, EXCLUDED.build_id)
		    < (smallest_door_records.volume, smallest_door_records.build_id)`,
		slot.Orientation, slot.DoorWidth, slot.DoorHeight, slot.DoorDepth,
		emptyIfNil(slot.TypeIDs), emptyIfNil(slot.RestrictionSubset), slot.BuildID, slot.Volume)
	return err
}

// ReplaceAll atomically swaps in a freshly computed record table. The
// ACCESS EXCLUSIVE lock keeps readers from observing the table mid-rebuild;
// rebuild is the only operation allowed to block them.
func (r *RecordRepo) ReplaceAll(ctx context.Context, slots []model.RecordSlot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `LOCK TABLE smallest_door_records IN ACCESS EXCLUSIVE MODE`); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM smallest_door_records`); err != nil {
		return err
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"smallest_door_records"},
		[]string{"orientation", "door_width", "door_height", "door_depth",
			"type_ids", "restriction_subset", "build_id", "volume"},
		pgx.CopyFromSlice(len(slots), func(i int) ([]any, error) {
			s := slots[i]
			return []any{s.Orientation, s.DoorWidth, s.DoorHeight, s.DoorDepth,
				emptyIfNil(s.TypeIDs), emptyIfNil(s.RestrictionSubset), s.BuildID, s.Volume}, nil
		}))
	if err != nil {
		return fmt.Errorf("bulk insert records: %w", err)
	}

	return tx.Commit(ctx)
}

// Lookup returns the current record holder for a key with denormalized tag
// names, or nil if the slot is empty.
func (r *RecordRepo) Lookup(ctx context.Context, key model.RecordKey) (*model.RecordSlot, error) {
	query := `
		SELECT r.build_id, r.volume, r.title,
		       COALESCE((SELECT array_agg(t.name ORDER BY t.name)
		                 FROM types t WHERE t.id = ANY(r.type_ids)), '{}'),
		       COALESCE((SELECT array_agg(re.name ORDER BY re.name)
		                 FROM restrictions re WHERE re.id = ANY(r.restriction_subset)), '{}')
		FROM smallest_door_records r
		WHERE r.orientation = $1 AND r.door_width = $2 AND r.door_height = $3 AND r.door_depth = $4
		  AND r.type_ids = $5::int[] AND r.restriction_subset = $6::int[]`

	var slot model.RecordSlot
	slot.RecordKey = key
	err := r.pool.QueryRow(ctx, query,
		key.Orientation, key.DoorWidth, key.DoorHeight, key.DoorDepth,
		emptyIfNil(key.TypeIDs), emptyIfNil(key.RestrictionSubset),
	).Scan(&slot.BuildID, &slot.Volume, &slot.Title, &slot.TypeNames, &slot.RestrictionNames)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// Untitled returns up to limit record rows that have no title yet, joined
// with what the title generator needs. Wiring-placement and component
// restriction names are resolved separately since titles place them on
// opposite sides of the dimensions; miscellaneous restrictions do not
// appear in titles.
func (r *RecordRepo) Untitled(ctx context.Context, limit int) ([]model.RecordSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.orientation, r.door_width, r.door_height, r.door_depth,
		       r.type_ids, r.restriction_subset, r.build_id, r.volume,
		       COALESCE((SELECT array_agg(t.name ORDER BY t.name)
		                 FROM types t WHERE t.id = ANY(r.type_ids)), '{}'),
		       COALESCE((SELECT array_agg(re.name ORDER BY re.id)
		                 FROM restrictions re WHERE re.id = ANY(r.restriction_subset)
		                   AND re.type = 'wiring-placement'), '{}'),
		       COALESCE((SELECT array_agg(re.name ORDER BY re.id)
		                 FROM restrictions re WHERE re.id = ANY(r.restriction_subset)
		                   AND re.type = 'component'), '{}')
		FROM smallest_door_records r
		WHERE r.title IS NULL
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []model.RecordSlot
	for rows.Next() {
		var s model.RecordSlot
		if err := rows.Scan(&s.Orientation, &s.DoorWidth, &s.DoorHeight, &s.DoorDepth,
			&s.TypeIDs, &s.RestrictionSubset, &s.BuildID, &s.Volume,
			&s.TypeNames, &s.RestrictionNames, &s.ComponentNames); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// SetTitle stores a generated title on a record row.
func (r *RecordRepo) SetTitle(ctx context.Context, key model.RecordKey, title string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE smallest_door_records SET title = $7
		WHERE orientation = $1 AND door_width = $2 AND door_height = $3 AND door_depth = $4
		  AND type_ids = $5::int[] AND restriction_subset = $6::int[]`,
		key.Orientation, key.DoorWidth, key.DoorHeight, key.DoorDepth,
		emptyIfNil(key.TypeIDs), emptyIfNil(key.RestrictionSubset), title)
	return err
}

func scanCandidates(rows pgx.Rows) ([]model.DoorCandidate, error) {
	var cands []model.DoorCandidate
	for rows.Next() {
		var c model.DoorCandidate
		if err := rows.Scan(&c.BuildID, &c.Volume, &c.Orientation,
			&c.DoorWidth, &c.DoorHeight, &c.DoorDepth,
			&c.TypeIDs, &c.RestrictionIDs); err != nil {
			return nil, err
		}
		cands = append(cands, c)
	}
	return cands, rows.Err()
}

// emptyIfNil keeps nil Go slices round-tripping as empty SQL arrays, so the
// canonical form of "no tags" is always '{}', never NULL.
func emptyIfNil(ids []int32) []int32 {
	if ids == nil {
		return []int32{}
	}
	return ids
}
