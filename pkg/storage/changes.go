package storage

import (
	"context"
	"database/sql"
	"sort"
	"strings"
)

func (d *DB) logChanges(ctx context.Context, tx *sql.Tx, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, d.rebind(`INSERT INTO seed_changes(occurred_at, seed_uid, seed_name, field_key, old_value, new_value, reason) VALUES(?,?,?,?,?,?,?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, c := range changes {
		if _, err := stmt.ExecContext(ctx, c.OccurredAt, c.SeedUID, c.SeedName, c.FieldKey, nullIfEmpty(c.OldValue), nullIfEmpty(c.NewValue), c.Reason); err != nil {
			return err
		}
	}
	return nil
}

// ListRecentChanges returns the most recent N changes across all seeds.
func (d *DB) ListRecentChanges(ctx context.Context, limit int) ([]Change, error) {
	return d.listChanges(ctx, "", limit)
}

// ListSeedChanges returns the most recent N changes of one seed.
func (d *DB) ListSeedChanges(ctx context.Context, uid string, limit int) ([]Change, error) {
	return d.listChanges(ctx, uid, limit)
}

func (d *DB) listChanges(ctx context.Context, uid string, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}
	where := ""
	args := []interface{}{}
	if uid != "" {
		where = "WHERE seed_uid = ? "
		args = append(args, uid)
	}
	args = append(args, limit)

	q := "SELECT id, occurred_at, seed_uid, seed_name, field_key, old_value, new_value, reason FROM seed_changes " + where + "ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, d.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var (
			c              Change
			oldVal, newVal sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.OccurredAt, &c.SeedUID, &c.SeedName, &c.FieldKey, &oldVal, &newVal, &c.Reason); err != nil {
			return nil, err
		}
		c.OccurredAt = c.OccurredAt.UTC()
		c.OldValue = oldVal.String
		c.NewValue = newVal.String
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

// GetStats counts seeds, seeds per category and change log rows per reason.
func (d *DB) GetStats(ctx context.Context) (*Stats, error) {
	seeds, err := d.ListSeeds(ctx, ListOptions{})
	if err != nil {
		return nil, err
	}

	stats := &Stats{SeedCount: len(seeds), Categories: []CategoryCount{}, Changes: []ReasonCount{}}
	perCategory := map[string]int{}
	for _, s := range seeds {
		if s.VarietyName == "" {
			stats.WithoutVariety++
		}
		for _, c := range s.Categories() {
			perCategory[c]++
		}
	}
	for c, n := range perCategory {
		stats.Categories = append(stats.Categories, CategoryCount{Category: c, Count: n})
	}
	sort.Slice(stats.Categories, func(i, j int) bool {
		a, b := stats.Categories[i], stats.Categories[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return strings.ToLower(a.Category) < strings.ToLower(b.Category)
	})

	query := `
		SELECT
			reason,
			COUNT(*)
		FROM
			seed_changes
		GROUP BY
			reason
		ORDER BY
			reason
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var r ReasonCount
		if err := rows.Scan(&r.Reason, &r.Count); err != nil {
			return nil, err
		}
		stats.Changes = append(stats.Changes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
