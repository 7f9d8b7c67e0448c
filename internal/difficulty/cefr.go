// Package difficulty estimates how hard a text is and maps it to CEFR levels.
package difficulty

import "strings"

// Levels are the CEFR levels from easiest to hardest
var Levels = []string{"A1", "A2", "B1", "B2", "C1", "C2"}

// LevelIndex returns the position of level in Levels, or -1
func LevelIndex(level string) int {
	level = strings.ToUpper(strings.TrimSpace(level))
	for i, l := range Levels {
		if l == level {
			return i
		}
	}
	return -1
}

// ValidLevel reports whether level is a CEFR level
func ValidLevel(level string) bool {
	return LevelIndex(level) >= 0
}

// ParseLevel normalises level, returning "" when it is not a CEFR level
func ParseLevel(level string) string {
	if i := LevelIndex(level); i >= 0 {
		return Levels[i]
	}
	return ""
}

// Distance is the number of levels between a and b, or -1 if either is invalid
func Distance(a, b string) int {
	i, j := LevelIndex(a), LevelIndex(b)
	if i < 0 || j < 0 {
		return -1
	}
	if i > j {
		return i - j
	}
	return j - i
}

// Window returns the levels within radius of level, or nil for an invalid level
func Window(level string, radius int) []string {
	i := LevelIndex(level)
	if i < 0 {
		return nil
	}
	lo, hi := i-radius, i+radius
	if lo < 0 {
		lo = 0
	}
	if hi > len(Levels)-1 {
		hi = len(Levels) - 1
	}
	return append([]string(nil), Levels[lo:hi+1]...)
}

// LevelForScore maps a 0..100 difficulty to a CEFR level
func LevelForScore(score int) string {
	switch {
	case score < 25:
		return "A1"
	case score < 40:
		return "A2"
	case score < 55:
		return "B1"
	case score < 70:
		return "B2"
	case score < 85:
		return "C1"
	default:
		return "C2"
	}
}
