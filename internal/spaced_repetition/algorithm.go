package spaced_repetition

import (
	"fmt"
	"sort"
	"time"

	"github.com/example/zeeguu/pkg/models"
)

// Result is the effect of an outcome on a schedule
type Result struct {
	// Schedule is the updated state, nil when the bookmark was learned
	Schedule *models.Schedule
	Learned  bool
	// Advanced is true when the answer moved the bookmark forward
	Advanced bool
}

// Algorithm decides how a schedule evolves after an exercise
type Algorithm interface {
	Name() string
	Update(s *models.Schedule, outcome Outcome, now time.Time, productiveEnabled bool) Result
}

// ByName returns the algorithm registered under name; "" selects BasicSR
func ByName(name string) (Algorithm, error) {
	switch name {
	case "", "basic":
		return NewBasicSR(), nil
	case "sm2":
		return NewSM2(), nil
	default:
		return nil, fmt.Errorf("unknown scheduling algorithm %q", name)
	}
}

// NewSchedule starts a bookmark in the receptive cycle, due immediately
func NewSchedule(bookmarkID int64, now time.Time) *models.Schedule {
	return &models.Schedule{
		BookmarkID:       bookmarkID,
		LearningCycle:    models.CycleReceptive,
		NextPracticeTime: now,
		EasinessFactor:   defaultEasiness,
	}
}

// Prioritize orders due bookmarks for practice and keeps at most limit:
// never practised first, then shorter cooling interval, then longest overdue.
func Prioritize(due []models.ScheduledBookmark, limit int) []models.ScheduledBookmark {
	sorted := make([]models.ScheduledBookmark, len(due))
	copy(sorted, due)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Schedule, sorted[j].Schedule
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		newA, newB := a.LastOutcome == "", b.LastOutcome == ""
		if newA != newB {
			return newA
		}
		if a.CoolingInterval != b.CoolingInterval {
			return a.CoolingInterval < b.CoolingInterval
		}
		return a.NextPracticeTime.Before(b.NextPracticeTime)
	})

	if limit >= 0 && len(sorted) > limit {
		return sorted[:limit]
	}
	return sorted
}

func minutes(m int) time.Duration {
	return time.Duration(m) * time.Minute
}
