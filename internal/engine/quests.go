package engine

import (
	"fmt"
	"log"
	"time"

	"github.com/lowaak/pulsefit/internal/progression"
	"github.com/lowaak/pulsefit/internal/store"
)

// questPruneDays is how long old quest rows are kept.
const questPruneDays = 7

// QuestStore is the slice of the store quest generation needs.
type QuestStore interface {
	QuestsForDay(day int64) ([]*store.DailyQuest, error)
	CreateQuests(quests []*store.DailyQuest) error
	DeleteQuestsBefore(day int64) error
}

// EnsureDailyQuests returns today's quests, generating the day's set on
// first call and pruning rows older than a week.
func EnsureDailyQuests(qs QuestStore, loc *time.Location, now time.Time, logger *log.Logger) ([]*store.DailyQuest, error) {
	if loc == nil {
		loc = time.Local
	}
	today := progression.EpochDay(now, loc)

	if err := qs.DeleteQuestsBefore(today - questPruneDays); err != nil {
		return nil, fmt.Errorf("pruning old quests: %w", err)
	}

	quests, err := qs.QuestsForDay(today)
	if err != nil {
		return nil, err
	}
	if len(quests) > 0 {
		return quests, nil
	}

	quests = dailyQuestSet(today)
	if err := qs.CreateQuests(quests); err != nil {
		return nil, err
	}
	logger.Printf("Generated %d quests for day %d", len(quests), today)
	return quests, nil
}

// dailyQuestSet is the fixed set generated each day: a duration quest, a
// burn-point quest and a high-intensity time quest.
func dailyQuestSet(day int64) []*store.DailyQuest {
	return []*store.DailyQuest{
		{
			Day:         day,
			Type:        store.QuestDuration,
			Title:       "Quick Move",
			Description: "Work out for 10 minutes",
			TargetValue: 600,
			Difficulty:  1,
			XPReward:    50,
		},
		{
			Day:         day,
			Type:        store.QuestBurnPoints,
			Title:       "Point Chaser",
			Description: "Earn 8 burn points",
			TargetValue: 8,
			Difficulty:  2,
			XPReward:    75,
		},
		{
			Day:         day,
			Type:        store.QuestZoneTarget,
			Title:       "Push Yourself",
			Description: "Spend 5 minutes in Push or Peak",
			TargetValue: 300,
			Difficulty:  3,
			XPReward:    100,
		},
	}
}
