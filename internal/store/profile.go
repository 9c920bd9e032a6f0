package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lowaak/pulsefit/internal/zone"
)

// DefaultProfile returns the profile used when no row exists yet.
func DefaultProfile() UserProfile {
	return UserProfile{
		MaxHeartRate:      190,
		Age:               25,
		BiologicalSex:     "male",
		DailyTargetPoints: 10,
		Thresholds:        zone.DefaultThresholds(),
		XPLevel:           1,
	}
}

// Profile returns the singleton user profile, inserting the defaults on
// first access so callers never see a missing row.
func (s *Store) Profile() (*UserProfile, error) {
	p, err := s.readProfile()
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	defaults := DefaultProfile()
	if err := s.SaveProfile(&defaults); err != nil {
		return nil, err
	}
	return &defaults, nil
}

func (s *Store) readProfile() (*UserProfile, error) {
	row := s.db.QueryRow(`
		SELECT max_heart_rate, age, weight_kg, biological_sex, daily_target_points,
			warmup_percent, active_percent, push_percent, peak_percent,
			total_xp, xp_level, current_streak, longest_streak,
			streak_shields, legacy_shield_used, total_burn_points,
			total_workouts, last_workout_at
		FROM user_profile
		WHERE id = 1
	`)

	var p UserProfile
	var legacyUsed int
	var lastWorkoutRaw sql.NullString
	err := row.Scan(
		&p.MaxHeartRate, &p.Age, &p.WeightKg, &p.BiologicalSex, &p.DailyTargetPoints,
		&p.Thresholds.WarmUpPercent, &p.Thresholds.ActivePercent,
		&p.Thresholds.PushPercent, &p.Thresholds.PeakPercent,
		&p.TotalXP, &p.XPLevel, &p.CurrentStreak, &p.LongestStreak,
		&p.StreakShields, &legacyUsed, &p.TotalBurnPoints,
		&p.TotalWorkouts, &lastWorkoutRaw,
	)
	if err != nil {
		return nil, err
	}
	p.LegacyShieldUsed = legacyUsed != 0
	if lastWorkoutRaw.Valid {
		t, err := time.Parse(time.RFC3339, lastWorkoutRaw.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last workout time %q: %w", lastWorkoutRaw.String, err)
		}
		p.LastWorkoutAt = &t
	}
	return &p, nil
}

// SaveProfile writes the whole profile row (insert or replace).
func (s *Store) SaveProfile(p *UserProfile) error {
	var lastWorkout any
	if p.LastWorkoutAt != nil {
		lastWorkout = p.LastWorkoutAt.Format(time.RFC3339)
	}
	_, err := s.db.Exec(`
		INSERT INTO user_profile (
			id, max_heart_rate, age, weight_kg, biological_sex, daily_target_points,
			warmup_percent, active_percent, push_percent, peak_percent,
			total_xp, xp_level, current_streak, longest_streak,
			streak_shields, legacy_shield_used, total_burn_points,
			total_workouts, last_workout_at, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			max_heart_rate = excluded.max_heart_rate,
			age = excluded.age,
			weight_kg = excluded.weight_kg,
			biological_sex = excluded.biological_sex,
			daily_target_points = excluded.daily_target_points,
			warmup_percent = excluded.warmup_percent,
			active_percent = excluded.active_percent,
			push_percent = excluded.push_percent,
			peak_percent = excluded.peak_percent,
			total_xp = excluded.total_xp,
			xp_level = excluded.xp_level,
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			streak_shields = excluded.streak_shields,
			legacy_shield_used = excluded.legacy_shield_used,
			total_burn_points = excluded.total_burn_points,
			total_workouts = excluded.total_workouts,
			last_workout_at = excluded.last_workout_at,
			updated_at = CURRENT_TIMESTAMP
	`,
		p.MaxHeartRate, p.Age, p.WeightKg, p.BiologicalSex, p.DailyTargetPoints,
		p.Thresholds.WarmUpPercent, p.Thresholds.ActivePercent,
		p.Thresholds.PushPercent, p.Thresholds.PeakPercent,
		p.TotalXP, p.XPLevel, p.CurrentStreak, p.LongestStreak,
		p.StreakShields, boolToInt(p.LegacyShieldUsed), p.TotalBurnPoints,
		p.TotalWorkouts, lastWorkout,
	)
	if err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// IncrementWorkoutTotals bumps the workout count and total burn points and
// stamps the last workout time. Called once per settlement.
func (s *Store) IncrementWorkoutTotals(burnPoints int, at time.Time) error {
	_, err := s.db.Exec(`
		UPDATE user_profile SET
			total_workouts = total_workouts + 1,
			total_burn_points = total_burn_points + ?,
			last_workout_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, burnPoints, at.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("incrementing workout totals: %w", err)
	}
	return nil
}

// AddXP adds earned XP and stores the recomputed level.
func (s *Store) AddXP(deltaXP int64, newLevel int) error {
	_, err := s.db.Exec(`
		UPDATE user_profile SET
			total_xp = total_xp + ?,
			xp_level = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, deltaXP, newLevel)
	if err != nil {
		return fmt.Errorf("adding xp: %w", err)
	}
	return nil
}

// UpdateStreak writes the streak counters and shield state after
// recalculation.
func (s *Store) UpdateStreak(current, longest, shields int, legacyUsed bool) error {
	_, err := s.db.Exec(`
		UPDATE user_profile SET
			current_streak = ?,
			longest_streak = ?,
			streak_shields = ?,
			legacy_shield_used = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, current, longest, shields, boolToInt(legacyUsed))
	if err != nil {
		return fmt.Errorf("updating streak: %w", err)
	}
	return nil
}
