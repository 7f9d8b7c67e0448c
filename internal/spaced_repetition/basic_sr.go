package spaced_repetition

import (
	"time"

	"github.com/example/zeeguu/pkg/models"
)

const day = 24 * 60

// CoolingIntervals are the BasicSR levels, in minutes
var CoolingIntervals = []int{0, day, 2 * day, 4 * day, 8 * day}

// MaxCoolingInterval is the last level before a cycle completes
var MaxCoolingInterval = CoolingIntervals[len(CoolingIntervals)-1]

// BasicSR doubles the wait after each on-time correct answer and steps
// back one level after a mistake. A bookmark that survives the longest
// interval either moves to the productive cycle or is learned.
type BasicSR struct{}

// NewBasicSR creates the default scheduler
func NewBasicSR() *BasicSR {
	return &BasicSR{}
}

// Name implements Algorithm
func (BasicSR) Name() string { return "basic" }

// Update implements Algorithm
func (BasicSR) Update(s *models.Schedule, outcome Outcome, now time.Time, productiveEnabled bool) Result {
	next := *s
	next.LastOutcome = string(outcome)
	level := levelOf(s.CoolingInterval)

	switch {
	case outcome == OutcomeTooEasy:
		return Result{Learned: true, Advanced: true}

	case outcome.IsCorrect():
		if now.Before(s.NextPracticeTime) {
			// practised early: nothing to gain
			next.CoolingInterval = CoolingIntervals[level]
			return Result{Schedule: &next}
		}
		if level == len(CoolingIntervals)-1 {
			if s.LearningCycle != models.CycleProductive && productiveEnabled {
				next.LearningCycle = models.CycleProductive
				next.CoolingInterval = 0
				next.ConsecutiveCorrect++
				next.NextPracticeTime = now
				return Result{Schedule: &next, Advanced: true}
			}
			return Result{Learned: true, Advanced: true}
		}
		next.CoolingInterval = CoolingIntervals[level+1]
		next.ConsecutiveCorrect++
		next.NextPracticeTime = now.Add(minutes(next.CoolingInterval))
		return Result{Schedule: &next, Advanced: true}

	default:
		if level > 0 {
			level--
		}
		next.CoolingInterval = CoolingIntervals[level]
		next.ConsecutiveCorrect = 0
		next.NextPracticeTime = now.Add(minutes(next.CoolingInterval))
		return Result{Schedule: &next}
	}
}

// levelOf returns the highest level whose interval does not exceed m
func levelOf(m int) int {
	level := 0
	for i, interval := range CoolingIntervals {
		if m >= interval {
			level = i
		}
	}
	return level
}
