package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Workouts; zone time is stored as one column per zone so every
		// zone is always present with an explicit zero
		`CREATE TABLE IF NOT EXISTS workouts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			start_time TEXT NOT NULL,
			end_time TEXT,
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			burn_points INTEGER NOT NULL DEFAULT 0,
			average_heart_rate INTEGER NOT NULL DEFAULT 0,
			max_heart_rate INTEGER NOT NULL DEFAULT 0,
			zone_rest_seconds INTEGER NOT NULL DEFAULT 0,
			zone_warmup_seconds INTEGER NOT NULL DEFAULT 0,
			zone_active_seconds INTEGER NOT NULL DEFAULT 0,
			zone_push_seconds INTEGER NOT NULL DEFAULT 0,
			zone_peak_seconds INTEGER NOT NULL DEFAULT 0,
			xp_earned INTEGER NOT NULL DEFAULT 0,
			estimated_calories INTEGER,
			just_five_min INTEGER NOT NULL DEFAULT 0,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_workouts_end_time ON workouts(end_time)`,

		// Sparse heart-rate samples (one every 5 seconds of a session)
		`CREATE TABLE IF NOT EXISTS heart_rate_samples (
			workout_id INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			heart_rate INTEGER NOT NULL,
			zone INTEGER NOT NULL,
			FOREIGN KEY (workout_id) REFERENCES workouts(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_samples_workout ON heart_rate_samples(workout_id)`,

		// User profile and progression counters (singleton row)
		`CREATE TABLE IF NOT EXISTS user_profile (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			max_heart_rate INTEGER NOT NULL,
			age INTEGER NOT NULL,
			weight_kg REAL NOT NULL DEFAULT 0,
			biological_sex TEXT NOT NULL DEFAULT 'male',
			daily_target_points INTEGER NOT NULL DEFAULT 10,
			warmup_percent INTEGER NOT NULL DEFAULT 50,
			active_percent INTEGER NOT NULL DEFAULT 60,
			push_percent INTEGER NOT NULL DEFAULT 70,
			peak_percent INTEGER NOT NULL DEFAULT 85,
			total_xp INTEGER NOT NULL DEFAULT 0,
			xp_level INTEGER NOT NULL DEFAULT 1,
			current_streak INTEGER NOT NULL DEFAULT 0,
			longest_streak INTEGER NOT NULL DEFAULT 0,
			streak_shields INTEGER NOT NULL DEFAULT 0,
			legacy_shield_used INTEGER NOT NULL DEFAULT 0,
			total_burn_points INTEGER NOT NULL DEFAULT 0,
			total_workouts INTEGER NOT NULL DEFAULT 0,
			last_workout_at TEXT,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Achievement catalog plus unlock stamps
		`CREATE TABLE IF NOT EXISTS achievements (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			unlocked_at TEXT
		)`,

		// Daily quests, bucketed by local epoch day
		`CREATE TABLE IF NOT EXISTS daily_quests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			day INTEGER NOT NULL,
			quest_type TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			target_value INTEGER NOT NULL,
			current_value INTEGER NOT NULL DEFAULT 0,
			difficulty INTEGER NOT NULL DEFAULT 1,
			xp_reward INTEGER NOT NULL DEFAULT 0,
			completed INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE INDEX IF NOT EXISTS idx_quests_day ON daily_quests(day)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}
