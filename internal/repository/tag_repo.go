package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redstone-squid/Redstone-Squid/internal/model"
)

// TagRepo covers the controlled vocabularies: types, restrictions, and
// restriction aliases. These tables are small and change rarely; the
// vocabulary service caches them in memory.
type TagRepo struct {
	pool *pgxpool.Pool
}

func NewTagRepo(pool *pgxpool.Pool) *TagRepo {
	return &TagRepo{pool: pool}
}

func (r *TagRepo) ListTypes(ctx context.Context) ([]model.Type, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, build_category, name FROM types ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []model.Type
	for rows.Next() {
		var t model.Type
		if err := rows.Scan(&t.ID, &t.BuildCategory, &t.Name); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (r *TagRepo) ListRestrictions(ctx context.Context) ([]model.Restriction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, build_category, name, type FROM restrictions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var restrictions []model.Restriction
	for rows.Next() {
		var re model.Restriction
		if err := rows.Scan(&re.ID, &re.BuildCategory, &re.Name, &re.Kind); err != nil {
			return nil, err
		}
		restrictions = append(restrictions, re)
	}
	return restrictions, rows.Err()
}

func (r *TagRepo) ListAliases(ctx context.Context) ([]model.RestrictionAlias, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT restriction_id, alias, created_at FROM restriction_aliases ORDER BY alias`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aliases []model.RestrictionAlias
	for rows.Next() {
		var a model.RestrictionAlias
		if err := rows.Scan(&a.RestrictionID, &a.Alias, &a.CreatedAt); err != nil {
			return nil, err
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

// CreateType inserts a type tag, returning the existing id if the name is
// already taken for the category.
func (r *TagRepo) CreateType(ctx context.Context, t *model.Type) (int32, error) {
	var id int32
	err := r.pool.QueryRow(ctx, `
		INSERT INTO types (build_category, name) VALUES ($1, $2)
		ON CONFLICT (build_category, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`,
		t.BuildCategory, t.Name).Scan(&id)
	return id, err
}

// CreateRestriction inserts a restriction tag, idempotent on (category, name).
func (r *TagRepo) CreateRestriction(ctx context.Context, re *model.Restriction) (int32, error) {
	var id int32
	err := r.pool.QueryRow(ctx, `
		INSERT INTO restrictions (build_category, name, type) VALUES ($1, $2, $3)
		ON CONFLICT (build_category, name) DO UPDATE SET type = EXCLUDED.type
		RETURNING id`,
		re.BuildCategory, re.Name, re.Kind).Scan(&id)
	return id, err
}

// AddAlias registers an alternate surface string for a restriction.
func (r *TagRepo) AddAlias(ctx context.Context, restrictionID int32, alias string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO restriction_aliases (restriction_id, alias)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, restrictionID, alias)
	return err
}
