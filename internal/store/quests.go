package store

import "fmt"

// CreateQuests inserts the day's quest set. IDs are filled in on return.
func (s *Store) CreateQuests(quests []*DailyQuest) error {
	for _, q := range quests {
		res, err := s.db.Exec(`
			INSERT INTO daily_quests (
				day, quest_type, title, description,
				target_value, current_value, difficulty, xp_reward, completed
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, q.Day, string(q.Type), q.Title, q.Description,
			q.TargetValue, q.CurrentValue, q.Difficulty, q.XPReward, boolToInt(q.Completed))
		if err != nil {
			return fmt.Errorf("creating quest %s: %w", q.Title, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		q.ID = id
	}
	return nil
}

// QuestsForDay returns the quests bucketed on the given local epoch day.
func (s *Store) QuestsForDay(day int64) ([]*DailyQuest, error) {
	rows, err := s.db.Query(`
		SELECT id, day, quest_type, title, description,
			target_value, current_value, difficulty, xp_reward, completed
		FROM daily_quests
		WHERE day = ?
		ORDER BY id
	`, day)
	if err != nil {
		return nil, fmt.Errorf("listing quests for day %d: %w", day, err)
	}
	defer rows.Close()

	var out []*DailyQuest
	for rows.Next() {
		var q DailyQuest
		var qType string
		var completed int
		err := rows.Scan(&q.ID, &q.Day, &qType, &q.Title, &q.Description,
			&q.TargetValue, &q.CurrentValue, &q.Difficulty, &q.XPReward, &completed)
		if err != nil {
			return nil, fmt.Errorf("scanning quest: %w", err)
		}
		q.Type = QuestType(qType)
		q.Completed = completed != 0
		out = append(out, &q)
	}
	return out, rows.Err()
}

// UpdateQuestProgress writes the new progress value and completion flag.
func (s *Store) UpdateQuestProgress(id int64, currentValue int, completed bool) error {
	res, err := s.db.Exec(`
		UPDATE daily_quests
		SET current_value = ?, completed = ?
		WHERE id = ?
	`, currentValue, boolToInt(completed), id)
	if err != nil {
		return fmt.Errorf("updating quest %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrQuestNotFound
	}
	return nil
}

// DeleteQuestsBefore prunes quest rows older than the given local epoch day.
func (s *Store) DeleteQuestsBefore(day int64) error {
	if _, err := s.db.Exec(`DELETE FROM daily_quests WHERE day < ?`, day); err != nil {
		return fmt.Errorf("pruning quests before day %d: %w", day, err)
	}
	return nil
}
