package store

import (
	"database/sql"
	"fmt"
	"time"
)

// SeedAchievements inserts catalog rows that are not present yet. Existing
// rows keep their unlock stamps; titles and descriptions are refreshed so
// catalog wording changes propagate.
func (s *Store) SeedAchievements(defs []Achievement) error {
	for _, d := range defs {
		_, err := s.db.Exec(`
			INSERT INTO achievements (id, title, description)
			VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				description = excluded.description
		`, d.ID, d.Title, d.Description)
		if err != nil {
			return fmt.Errorf("seeding achievement %s: %w", d.ID, err)
		}
	}
	return nil
}

// Achievements returns the full catalog with unlock stamps, locked rows
// included.
func (s *Store) Achievements() ([]Achievement, error) {
	rows, err := s.db.Query(`
		SELECT id, title, description, unlocked_at
		FROM achievements
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing achievements: %w", err)
	}
	defer rows.Close()

	var out []Achievement
	for rows.Next() {
		var a Achievement
		var unlockedRaw sql.NullString
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &unlockedRaw); err != nil {
			return nil, fmt.Errorf("scanning achievement: %w", err)
		}
		if unlockedRaw.Valid {
			t, err := time.Parse(time.RFC3339, unlockedRaw.String)
			if err != nil {
				return nil, fmt.Errorf("parsing unlock time %q: %w", unlockedRaw.String, err)
			}
			a.UnlockedAt = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Achievement returns one catalog row by ID.
func (s *Store) Achievement(id string) (*Achievement, error) {
	row := s.db.QueryRow(`
		SELECT id, title, description, unlocked_at
		FROM achievements
		WHERE id = ?
	`, id)

	var a Achievement
	var unlockedRaw sql.NullString
	if err := row.Scan(&a.ID, &a.Title, &a.Description, &unlockedRaw); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAchievementNotFound
		}
		return nil, fmt.Errorf("reading achievement %s: %w", id, err)
	}
	if unlockedRaw.Valid {
		t, err := time.Parse(time.RFC3339, unlockedRaw.String)
		if err != nil {
			return nil, fmt.Errorf("parsing unlock time %q: %w", unlockedRaw.String, err)
		}
		a.UnlockedAt = &t
	}
	return &a, nil
}

// UnlockAchievement stamps the achievement if it is still locked. Returns
// true only on the first unlock; repeated calls are no-ops.
func (s *Store) UnlockAchievement(id string, at time.Time) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE achievements
		SET unlocked_at = ?
		WHERE id = ? AND unlocked_at IS NULL
	`, at.Format(time.RFC3339), id)
	if err != nil {
		return false, fmt.Errorf("unlocking achievement %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
