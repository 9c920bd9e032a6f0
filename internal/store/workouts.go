package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lowaak/pulsefit/internal/zone"
)

// CreateWorkout inserts a new workout with only its start time set and
// returns the generated id.
func (s *Store) CreateWorkout(start time.Time, justFiveMin bool) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO workouts (start_time, just_five_min)
		VALUES (?, ?)
	`, start.Format(time.RFC3339), boolToInt(justFiveMin))
	if err != nil {
		return 0, fmt.Errorf("creating workout: %w", err)
	}
	return res.LastInsertId()
}

// GetWorkout retrieves a workout by id.
func (s *Store) GetWorkout(id int64) (*Workout, error) {
	row := s.db.QueryRow(`
		SELECT id, start_time, end_time, duration_seconds, burn_points,
			average_heart_rate, max_heart_rate,
			zone_rest_seconds, zone_warmup_seconds, zone_active_seconds,
			zone_push_seconds, zone_peak_seconds,
			xp_earned, estimated_calories, just_five_min
		FROM workouts
		WHERE id = ?
	`, id)
	return scanWorkout(row)
}

// FinishWorkout writes the settlement outputs onto the workout row: end
// time, duration, burn points, heart-rate summary, zone times and the
// calorie estimate.
func (s *Store) FinishWorkout(w *Workout) error {
	if w.EndTime == nil {
		return errors.New("finish workout: end time not set")
	}
	var calories any
	if w.EstimatedCalories != nil {
		calories = *w.EstimatedCalories
	}
	res, err := s.db.Exec(`
		UPDATE workouts SET
			end_time = ?,
			duration_seconds = ?,
			burn_points = ?,
			average_heart_rate = ?,
			max_heart_rate = ?,
			zone_rest_seconds = ?,
			zone_warmup_seconds = ?,
			zone_active_seconds = ?,
			zone_push_seconds = ?,
			zone_peak_seconds = ?,
			estimated_calories = ?
		WHERE id = ?
	`,
		w.EndTime.Format(time.RFC3339), w.DurationSeconds, w.BurnPoints,
		w.AverageHeartRate, w.MaxHeartRate,
		w.ZoneSeconds[zone.Rest], w.ZoneSeconds[zone.WarmUp], w.ZoneSeconds[zone.Active],
		w.ZoneSeconds[zone.Push], w.ZoneSeconds[zone.Peak],
		calories, w.ID,
	)
	if err != nil {
		return fmt.Errorf("finishing workout %d: %w", w.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

// SetWorkoutXP records the XP awarded for a settled workout.
func (s *Store) SetWorkoutXP(id int64, xp int64) error {
	res, err := s.db.Exec(`UPDATE workouts SET xp_earned = ? WHERE id = ?`, xp, id)
	if err != nil {
		return fmt.Errorf("setting workout xp: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

// CompletedWorkoutStartTimes returns the start times of all settled
// workouts, used to derive the set of workout days for streak calculation.
func (s *Store) CompletedWorkoutStartTimes() ([]time.Time, error) {
	rows, err := s.db.Query(`
		SELECT start_time FROM workouts
		WHERE end_time IS NOT NULL
		ORDER BY start_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var starts []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("parsing workout start time %q: %w", raw, err)
		}
		starts = append(starts, t)
	}
	return starts, rows.Err()
}

// ListRecentWorkouts returns settled workouts newest first, for history
// display.
func (s *Store) ListRecentWorkouts(limit int) ([]Workout, error) {
	rows, err := s.db.Query(`
		SELECT id, start_time, end_time, duration_seconds, burn_points,
			average_heart_rate, max_heart_rate,
			zone_rest_seconds, zone_warmup_seconds, zone_active_seconds,
			zone_push_seconds, zone_peak_seconds,
			xp_earned, estimated_calories, just_five_min
		FROM workouts
		WHERE end_time IS NOT NULL
		ORDER BY start_time DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workouts []Workout
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		workouts = append(workouts, *w)
	}
	return workouts, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanWorkout(row scanner) (*Workout, error) {
	var w Workout
	var startRaw string
	var endRaw sql.NullString
	var calories sql.NullInt64
	var justFiveMin int

	err := row.Scan(
		&w.ID, &startRaw, &endRaw, &w.DurationSeconds, &w.BurnPoints,
		&w.AverageHeartRate, &w.MaxHeartRate,
		&w.ZoneSeconds[zone.Rest], &w.ZoneSeconds[zone.WarmUp], &w.ZoneSeconds[zone.Active],
		&w.ZoneSeconds[zone.Push], &w.ZoneSeconds[zone.Peak],
		&w.XPEarned, &calories, &justFiveMin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkoutNotFound
	}
	if err != nil {
		return nil, err
	}

	w.StartTime, err = time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return nil, fmt.Errorf("parsing start time %q: %w", startRaw, err)
	}
	if endRaw.Valid {
		end, err := time.Parse(time.RFC3339, endRaw.String)
		if err != nil {
			return nil, fmt.Errorf("parsing end time %q: %w", endRaw.String, err)
		}
		w.EndTime = &end
	}
	if calories.Valid {
		c := int(calories.Int64)
		w.EstimatedCalories = &c
	}
	w.JustFiveMin = justFiveMin != 0
	return &w, nil
}
