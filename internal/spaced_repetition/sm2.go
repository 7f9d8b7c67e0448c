package spaced_repetition

import (
	"time"

	"github.com/example/zeeguu/pkg/models"
)

const defaultEasiness = 2.5

// QualityResponse represents the quality of response in SM-2
type QualityResponse int

const (
	// Complete blackout, unable to recall
	QualityBlackout QualityResponse = 0
	// Incorrect response but remembered upon seeing the correct answer
	QualityIncorrect QualityResponse = 1
	// Incorrect response but the correct answer felt familiar
	QualityIncorrectFamiliar QualityResponse = 2
	// Correct response but required significant effort
	QualityCorrectDifficult QualityResponse = 3
	// Correct response after some hesitation
	QualityCorrectHesitation QualityResponse = 4
	// Perfect response with no hesitation
	QualityPerfect QualityResponse = 5
)

// SM2 implements the SuperMemo-2 algorithm for spaced repetition
type SM2 struct {
	// Answers at or above this quality count as recalled
	PassThreshold QualityResponse
	// Longest interval in days
	MaxInterval int
	// Intervals in days for the first repetitions
	InitialIntervals []int
	// Repetitions and interval after which a word counts as mastered
	MasteredRepetitions int
	MasteredInterval    int
}

// NewSM2 creates an SM2 with default settings
func NewSM2() *SM2 {
	return &SM2{
		PassThreshold:       QualityCorrectDifficult,
		MaxInterval:         365,
		InitialIntervals:    []int{1, 2, 3, 7, 10, 15, 20, 30},
		MasteredRepetitions: 5,
		MasteredInterval:    30,
	}
}

// Name implements Algorithm
func (sm *SM2) Name() string { return "sm2" }

// QualityFor maps an exercise outcome to an SM-2 quality grade
func QualityFor(o Outcome) QualityResponse {
	switch o.First() {
	case OutcomeTooEasy:
		return QualityPerfect
	case OutcomeCorrect:
		return QualityCorrectHesitation
	case OutcomeHint:
		return QualityIncorrectFamiliar
	case OutcomeWrong:
		return QualityIncorrect
	default:
		return QualityBlackout
	}
}

// Update implements Algorithm
func (sm *SM2) Update(s *models.Schedule, outcome Outcome, now time.Time, productiveEnabled bool) Result {
	next := *s
	next.LastOutcome = string(outcome)
	quality := QualityFor(outcome)

	if outcome == OutcomeTooEasy {
		return Result{Learned: true, Advanced: true}
	}

	interval, ef, reps := sm.ComputeNextInterval(quality, s.Repetitions, s.EasinessFactor, s.CoolingInterval/day)
	next.EasinessFactor = ef
	next.Repetitions = reps

	if quality < sm.PassThreshold {
		next.ConsecutiveCorrect = 0
		next.CoolingInterval = interval * day
		next.NextPracticeTime = now.Add(minutes(next.CoolingInterval))
		return Result{Schedule: &next}
	}

	next.ConsecutiveCorrect++
	if sm.isMastered(reps, quality, interval) {
		if s.LearningCycle != models.CycleProductive && productiveEnabled {
			next.LearningCycle = models.CycleProductive
			next.Repetitions = 0
			next.EasinessFactor = defaultEasiness
			next.CoolingInterval = 0
			next.NextPracticeTime = now
			return Result{Schedule: &next, Advanced: true}
		}
		return Result{Learned: true, Advanced: true}
	}
	next.CoolingInterval = interval * day
	next.NextPracticeTime = now.Add(minutes(next.CoolingInterval))
	return Result{Schedule: &next, Advanced: true}
}

// ComputeNextInterval returns the new interval in days, easiness factor
// and repetition count for an answer of the given quality.
func (sm *SM2) ComputeNextInterval(quality QualityResponse, repetitions int, currentEF float64, currentInterval int) (int, float64, int) {
	if currentEF == 0 {
		currentEF = defaultEasiness
	}
	q := float64(quality)
	newEF := currentEF + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	if newEF < 1.3 {
		newEF = 1.3
	}

	if quality < sm.PassThreshold {
		return 1, newEF, 0
	}

	newRepetitions := repetitions + 1
	var newInterval int
	if newRepetitions <= len(sm.InitialIntervals) {
		newInterval = sm.InitialIntervals[newRepetitions-1]
	} else {
		newInterval = int(float64(currentInterval) * newEF)
	}
	if newInterval > sm.MaxInterval {
		newInterval = sm.MaxInterval
	}
	return newInterval, newEF, newRepetitions
}

func (sm *SM2) isMastered(repetitions int, quality QualityResponse, interval int) bool {
	return repetitions >= sm.MasteredRepetitions &&
		quality >= QualityCorrectHesitation &&
		interval >= sm.MasteredInterval
}
