package store

import (
	"fmt"
	"time"
)

// AppendSample stores one sparse heart-rate sample for a workout.
func (s *Store) AppendSample(sample HeartRateSample) error {
	_, err := s.db.Exec(`
		INSERT INTO heart_rate_samples (workout_id, recorded_at, heart_rate, zone)
		VALUES (?, ?, ?, ?)
	`, sample.WorkoutID, sample.RecordedAt.Format(time.RFC3339), sample.HeartRate, int(sample.Zone))
	if err != nil {
		return fmt.Errorf("appending heart rate sample: %w", err)
	}
	return nil
}

// SamplesForWorkout returns a workout's sparse samples in recording order.
func (s *Store) SamplesForWorkout(workoutID int64) ([]HeartRateSample, error) {
	rows, err := s.db.Query(`
		SELECT workout_id, recorded_at, heart_rate, zone
		FROM heart_rate_samples
		WHERE workout_id = ?
		ORDER BY recorded_at
	`, workoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []HeartRateSample
	for rows.Next() {
		var sample HeartRateSample
		var raw string
		var zoneOrdinal int
		if err := rows.Scan(&sample.WorkoutID, &raw, &sample.HeartRate, &zoneOrdinal); err != nil {
			return nil, err
		}
		sample.RecordedAt, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("parsing sample time %q: %w", raw, err)
		}
		sample.Zone = zoneFromOrdinal(zoneOrdinal)
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}
