package spaced_repetition

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/zeeguu/pkg/models"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestParseOutcome(t *testing.T) {
	for in, want := range map[string]Outcome{
		"C":        OutcomeCorrect,
		" w ":      OutcomeWrong,
		"hc":       "HC",
		"TOO_EASY": OutcomeTooEasy,
		"S":        OutcomeShowSolution,
	} {
		got, err := ParseOutcome(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"", "X", "Correct", "CX"} {
		_, err := ParseOutcome(bad)
		assert.True(t, errors.Is(err, ErrUnknownOutcome), bad)
	}

	assert.True(t, Outcome("C").IsCorrect())
	assert.False(t, Outcome("HC").IsCorrect())
	assert.False(t, OutcomeTooEasy.IsCorrect())
}

func TestBasicSRCorrectAdvancesThroughLevels(t *testing.T) {
	sr := NewBasicSR()
	s := NewSchedule(1, now)

	at := now
	for _, want := range CoolingIntervals[1:] {
		res := sr.Update(s, OutcomeCorrect, at, false)
		require.False(t, res.Learned)
		require.True(t, res.Advanced)
		assert.Equal(t, want, res.Schedule.CoolingInterval)
		assert.Equal(t, at.Add(time.Duration(want)*time.Minute), res.Schedule.NextPracticeTime)
		s = res.Schedule
		at = s.NextPracticeTime
	}
	assert.Equal(t, 4, s.ConsecutiveCorrect)

	res := sr.Update(s, OutcomeCorrect, at, false)
	assert.True(t, res.Learned)
	assert.Nil(t, res.Schedule)
}

func TestBasicSRSwitchesToProductive(t *testing.T) {
	s := &models.Schedule{BookmarkID: 1, LearningCycle: models.CycleReceptive, CoolingInterval: MaxCoolingInterval, NextPracticeTime: now}
	res := NewBasicSR().Update(s, OutcomeCorrect, now, true)
	require.False(t, res.Learned)
	assert.Equal(t, models.CycleProductive, res.Schedule.LearningCycle)
	assert.Equal(t, 0, res.Schedule.CoolingInterval)

	s = &models.Schedule{BookmarkID: 1, LearningCycle: models.CycleProductive, CoolingInterval: MaxCoolingInterval, NextPracticeTime: now}
	res = NewBasicSR().Update(s, OutcomeCorrect, now, true)
	assert.True(t, res.Learned)
}

func TestBasicSREarlyCorrectDoesNotAdvance(t *testing.T) {
	due := now.Add(time.Hour)
	s := &models.Schedule{BookmarkID: 1, LearningCycle: models.CycleReceptive, CoolingInterval: day, NextPracticeTime: due}
	res := NewBasicSR().Update(s, OutcomeCorrect, now, false)
	assert.False(t, res.Advanced)
	assert.Equal(t, day, res.Schedule.CoolingInterval)
	assert.Equal(t, due, res.Schedule.NextPracticeTime)
	assert.Equal(t, "C", res.Schedule.LastOutcome)
}

func TestBasicSRMistakesStepBack(t *testing.T) {
	for _, o := range []Outcome{OutcomeWrong, OutcomeHint, OutcomeShowSolution, "HC"} {
		s := &models.Schedule{BookmarkID: 1, CoolingInterval: 4 * day, ConsecutiveCorrect: 3, NextPracticeTime: now}
		res := NewBasicSR().Update(s, o, now, false)
		require.NotNil(t, res.Schedule, o)
		assert.Equal(t, 2*day, res.Schedule.CoolingInterval, o)
		assert.Equal(t, 0, res.Schedule.ConsecutiveCorrect, o)
	}

	s := &models.Schedule{BookmarkID: 1, NextPracticeTime: now}
	res := NewBasicSR().Update(s, OutcomeWrong, now, false)
	assert.Equal(t, 0, res.Schedule.CoolingInterval)
	assert.Equal(t, now, res.Schedule.NextPracticeTime)
}

func TestBasicSRTooEasyLearns(t *testing.T) {
	res := NewBasicSR().Update(NewSchedule(1, now), OutcomeTooEasy, now, true)
	assert.True(t, res.Learned)
	assert.Nil(t, res.Schedule)
}

func TestBasicSRNormalisesUnknownInterval(t *testing.T) {
	s := &models.Schedule{BookmarkID: 1, CoolingInterval: 3 * day, NextPracticeTime: now}
	res := NewBasicSR().Update(s, OutcomeCorrect, now, false)
	assert.Equal(t, 4*day, res.Schedule.CoolingInterval)
}

func TestSM2(t *testing.T) {
	sm := NewSM2()
	s := NewSchedule(1, now)

	res := sm.Update(s, OutcomeCorrect, now, false)
	require.NotNil(t, res.Schedule)
	assert.Equal(t, 1, res.Schedule.Repetitions)
	assert.Equal(t, day, res.Schedule.CoolingInterval)

	res = sm.Update(res.Schedule, OutcomeWrong, now, false)
	assert.Equal(t, 0, res.Schedule.Repetitions)
	assert.Equal(t, day, res.Schedule.CoolingInterval)
	assert.GreaterOrEqual(t, res.Schedule.EasinessFactor, 1.3)

	s = res.Schedule
	learned := false
	for i := 0; i < 20 && !learned; i++ {
		r := sm.Update(s, OutcomeCorrect, now, false)
		learned = r.Learned
		s = r.Schedule
	}
	assert.True(t, learned)
}

func TestQualityFor(t *testing.T) {
	assert.Equal(t, QualityCorrectHesitation, QualityFor(OutcomeCorrect))
	assert.Equal(t, QualityIncorrectFamiliar, QualityFor(OutcomeHint))
	assert.Equal(t, QualityIncorrect, QualityFor(OutcomeWrong))
	assert.Equal(t, QualityBlackout, QualityFor(OutcomeShowSolution))
	assert.Equal(t, QualityPerfect, QualityFor(OutcomeTooEasy))
}

func TestPrioritize(t *testing.T) {
	mk := func(id int64, interval int, last string, next time.Time) models.ScheduledBookmark {
		sb := models.ScheduledBookmark{Schedule: &models.Schedule{BookmarkID: id, CoolingInterval: interval, LastOutcome: last, NextPracticeTime: next}}
		sb.ID = id
		return sb
	}
	due := []models.ScheduledBookmark{
		mk(1, 2*day, "C", now.Add(-time.Hour)),
		mk(2, day, "C", now.Add(-time.Minute)),
		mk(3, day, "C", now.Add(-2*time.Hour)),
		mk(4, 0, "", now),
	}
	got := Prioritize(due, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{4, 3, 2}, []int64{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, int64(1), due[0].ID, "input untouched")
}

func TestByName(t *testing.T) {
	a, err := ByName("")
	require.NoError(t, err)
	assert.Equal(t, "basic", a.Name())
	a, err = ByName("sm2")
	require.NoError(t, err)
	assert.Equal(t, "sm2", a.Name())
	_, err = ByName("leitner")
	assert.Error(t, err)
}
