package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/l1jgo/combatcore/internal/attr"
)

type ProgressionRepo struct {
	db *DB
}

func NewProgressionRepo(db *DB) *ProgressionRepo {
	return &ProgressionRepo{db: db}
}

// Save upserts the progression row and replaces the active effects in one
// transaction.
func (r *ProgressionRepo) Save(ctx context.Context, s *Snapshot) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("progression begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO progression (name, level, experience, exp_to_next,
		        strength, agility, intelligence, stamina, vitality, health, saved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		 ON CONFLICT (name) DO UPDATE SET
		        level = EXCLUDED.level, experience = EXCLUDED.experience,
		        exp_to_next = EXCLUDED.exp_to_next,
		        strength = EXCLUDED.strength, agility = EXCLUDED.agility,
		        intelligence = EXCLUDED.intelligence, stamina = EXCLUDED.stamina,
		        vitality = EXCLUDED.vitality, health = EXCLUDED.health,
		        saved_at = now()`,
		s.Name, s.Level, s.Experience, s.ExpToNext,
		s.Base.Get(attr.Strength), s.Base.Get(attr.Agility), s.Base.Get(attr.Intelligence),
		s.Base.Get(attr.Stamina), s.Base.Get(attr.Vitality), s.Health,
	); err != nil {
		return fmt.Errorf("progression upsert: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM active_effects WHERE name = $1`, s.Name); err != nil {
		return fmt.Errorf("effects delete: %w", err)
	}
	if len(s.Effects) > 0 {
		rows := make([][]any, len(s.Effects))
		for i, e := range s.Effects {
			rows[i] = []any{s.Name, e.Kind, e.Magnitude, int16(e.Polarity), e.Remaining,
				e.Stackable, e.MaxStacks, e.TickInterval, e.Stacks, int64(e.Source)}
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"active_effects"},
			[]string{"name", "kind", "magnitude", "polarity", "remaining",
				"stackable", "max_stacks", "tick_interval", "stacks", "source"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("effects insert: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// Load returns the snapshot saved under name, or nil if none exists.
func (r *ProgressionRepo) Load(ctx context.Context, name string) (*Snapshot, error) {
	s := &Snapshot{Name: name}
	var str, agi, intel, sta, vit int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT level, experience, exp_to_next,
		        strength, agility, intelligence, stamina, vitality, health
		 FROM progression WHERE name = $1`, name,
	).Scan(&s.Level, &s.Experience, &s.ExpToNext, &str, &agi, &intel, &sta, &vit, &s.Health)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("progression load %s: %w", name, err)
	}
	s.Base = attr.Set{
		attr.Strength:     str,
		attr.Agility:      agi,
		attr.Intelligence: intel,
		attr.Stamina:      sta,
		attr.Vitality:     vit,
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT kind, magnitude, polarity, remaining, stackable,
		        max_stacks, tick_interval, stacks, source
		 FROM active_effects WHERE name = $1 ORDER BY id`, name,
	)
	if err != nil {
		return nil, fmt.Errorf("effects load %s: %w", name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var e EffectRow
		var pol int16
		var src int64
		if err := rows.Scan(&e.Kind, &e.Magnitude, &pol, &e.Remaining, &e.Stackable,
			&e.MaxStacks, &e.TickInterval, &e.Stacks, &src); err != nil {
			return nil, err
		}
		e.Polarity = int8(pol)
		e.Source = uint64(src)
		s.Effects = append(s.Effects, e)
	}
	return s, rows.Err()
}
