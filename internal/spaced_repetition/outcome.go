package spaced_repetition

import (
	"errors"
	"fmt"
	"strings"
)

// Outcome is the result of one exercise as reported by a client.
//
// Besides the single-letter forms a client may report the sequence of
// attempts it saw, e.g. "HC" (asked for a hint, then answered correctly).
// Only the first attempt counts for scheduling.
type Outcome string

const (
	OutcomeCorrect      Outcome = "C"
	OutcomeWrong        Outcome = "W"
	OutcomeHint         Outcome = "H"
	OutcomeShowSolution Outcome = "S"
	OutcomeTooEasy      Outcome = "TOO_EASY"
)

// ErrUnknownOutcome is returned by ParseOutcome for unrecognised input
var ErrUnknownOutcome = errors.New("unknown exercise outcome")

// ParseOutcome validates a reported outcome
func ParseOutcome(s string) (Outcome, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == string(OutcomeTooEasy) {
		return OutcomeTooEasy, nil
	}
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrUnknownOutcome)
	}
	for _, r := range s {
		switch Outcome(r) {
		case OutcomeCorrect, OutcomeWrong, OutcomeHint, OutcomeShowSolution:
		default:
			return "", fmt.Errorf("%w: %q", ErrUnknownOutcome, s)
		}
	}
	return Outcome(s), nil
}

// First returns the outcome of the first attempt
func (o Outcome) First() Outcome {
	if o == OutcomeTooEasy || len(o) <= 1 {
		return o
	}
	return o[:1]
}

// IsCorrect reports whether the first attempt was right
func (o Outcome) IsCorrect() bool {
	return o.First() == OutcomeCorrect
}
