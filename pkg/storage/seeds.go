package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seedkeeper/seedkeeper/pkg/merge"
)

// CreateSeed inserts s, assigning its ID, a UUIDv7 UID when empty, and the
// timestamps. Every non-empty field is written to the change log; keys in ai
// are logged as AI-populated, the rest as created.
func (d *DB) CreateSeed(ctx context.Context, s *Seed, ai merge.ChangeSet) (err error) {
	if err := s.validate(); err != nil {
		return err
	}
	if s.UID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		s.UID = id.String()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now

	fieldsJSON, err := encodeFields(s.Fields)
	if err != nil {
		return err
	}

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = tx.QueryRowContext(ctx, d.rebind(`INSERT INTO seeds(uid, seed_name, variety_name, fields, created_at, updated_at) VALUES(?,?,?,?,?,?) RETURNING id`),
		s.UID, s.SeedName, s.VarietyName, fieldsJSON, s.CreatedAt, s.UpdatedAt).Scan(&s.ID)
	if err != nil {
		return err
	}

	changes := diffSeeds(nil, s, reasonFor(ai, ReasonCreated), now)
	if err = d.logChanges(ctx, tx, changes); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateSeed replaces the stored fields of s.UID and returns what changed.
// Nothing is written when s matches the stored record.
func (d *DB) UpdateSeed(ctx context.Context, s *Seed, ai merge.ChangeSet) (changes []Change, err error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	old, err := d.getSeed(ctx, tx, s.UID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	changes = diffSeeds(old, s, reasonFor(ai, ReasonUserEdit), now)
	if len(changes) == 0 {
		*s = *old
		return nil, tx.Commit()
	}

	fieldsJSON, err := encodeFields(s.Fields)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, d.rebind(`UPDATE seeds SET seed_name = ?, variety_name = ?, fields = ?, updated_at = ? WHERE uid = ?`),
		s.SeedName, s.VarietyName, fieldsJSON, now, s.UID)
	if err != nil {
		return nil, err
	}
	if err = d.logChanges(ctx, tx, changes); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	s.ID, s.CreatedAt, s.UpdatedAt = old.ID, old.CreatedAt, now
	return changes, nil
}

// GetSeed returns the seed with uid, or ErrNotFound.
func (d *DB) GetSeed(ctx context.Context, uid string) (*Seed, error) {
	return d.getSeed(ctx, d.sql, uid)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (d *DB) getSeed(ctx context.Context, q queryer, uid string) (*Seed, error) {
	row := q.QueryRowContext(ctx, d.rebind(`SELECT id, uid, seed_name, variety_name, fields, created_at, updated_at FROM seeds WHERE uid = ?`), uid)
	s, err := scanSeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSeed(row scanner) (*Seed, error) {
	var (
		s          Seed
		fieldsJSON string
	)
	if err := row.Scan(&s.ID, &s.UID, &s.SeedName, &s.VarietyName, &fieldsJSON, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	fields, err := decodeFields(fieldsJSON)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", s.UID, err)
	}
	s.Fields = fields
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

// ListSeeds returns seeds matching opts, ordered by seed and variety name.
func (d *DB) ListSeeds(ctx context.Context, opts ListOptions) ([]Seed, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if search := strings.TrimSpace(opts.Search); search != "" {
		where += " AND (LOWER(seed_name) LIKE ? OR LOWER(variety_name) LIKE ?)"
		pattern := fmt.Sprintf("%%%s%%", strings.ToLower(search))
		args = append(args, pattern, pattern)
	}

	q := "SELECT id, uid, seed_name, variety_name, fields, created_at, updated_at FROM seeds " + where + " ORDER BY seed_name, variety_name, id"
	rows, err := d.sql.QueryContext(ctx, d.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Seed{}
	for rows.Next() {
		s, err := scanSeed(rows)
		if err != nil {
			return nil, err
		}
		if opts.Category != "" && !s.HasCategory(opts.Category) {
			continue
		}
		out = append(out, *s)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteSeed removes the seed with uid and logs the removal.
func (d *DB) DeleteSeed(ctx context.Context, uid string) (err error) {
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	old, err := d.getSeed(ctx, tx, uid)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, d.rebind(`DELETE FROM seeds WHERE uid = ?`), uid); err != nil {
		return err
	}
	err = d.logChanges(ctx, tx, []Change{{
		OccurredAt: time.Now().UTC(),
		SeedUID:    uid,
		SeedName:   old.DisplayName(),
		Reason:     ReasonDeleted,
	}})
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Seed) validate() error {
	s.SeedName = strings.TrimSpace(s.SeedName)
	s.VarietyName = strings.TrimSpace(s.VarietyName)
	if s.SeedName == "" {
		return ErrNameRequired
	}
	return nil
}

// reasonFor returns a function that labels a changed key: AI-populated when
// ai touched it, fallback otherwise.
func reasonFor(ai merge.ChangeSet, fallback string) func(key string) string {
	aiKeys := make(map[string]struct{}, len(ai))
	for _, c := range ai {
		aiKeys[c.Key] = struct{}{}
	}
	return func(key string) string {
		if _, ok := aiKeys[key]; ok {
			return merge.ReasonAIPopulated
		}
		return fallback
	}
}

// diffSeeds lists field changes from old to updated. A nil old diffs against
// an empty record.
func diffSeeds(old, updated *Seed, reason func(string) string, at time.Time) []Change {
	before := map[string]string{}
	if old != nil {
		before = old.flatten()
	}
	after := updated.flatten()

	keys := make([]string, 0, len(before)+len(after))
	seen := make(map[string]struct{})
	for _, m := range []map[string]string{before, after} {
		for k := range m {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return fieldOrder(keys[i], keys[j]) })

	var changes []Change
	for _, k := range keys {
		if before[k] == after[k] {
			continue
		}
		changes = append(changes, Change{
			OccurredAt: at,
			SeedUID:    updated.UID,
			SeedName:   updated.DisplayName(),
			FieldKey:   k,
			OldValue:   before[k],
			NewValue:   after[k],
			Reason:     reason(k),
		})
	}
	return changes
}

// fieldOrder sorts the name columns first, then the rest alphabetically.
func fieldOrder(a, b string) bool {
	rank := func(k string) int {
		switch k {
		case "seed_name":
			return 0
		case "variety_name":
			return 1
		}
		return 2
	}
	if ra, rb := rank(a), rank(b); ra != rb {
		return ra < rb
	}
	return a < b
}

// flatten renders every non-empty value as display text.
func (s *Seed) flatten() map[string]string {
	out := make(map[string]string, len(s.Fields)+2)
	if s.SeedName != "" {
		out["seed_name"] = s.SeedName
	}
	if s.VarietyName != "" {
		out["variety_name"] = s.VarietyName
	}
	for k, v := range s.Fields {
		if text := strings.TrimSpace(merge.FormatValue(v)); text != "" {
			out[k] = text
		}
	}
	return out
}
