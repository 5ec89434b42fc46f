package srs

import (
	"errors"
	"fmt"
	"strings"
)

// Difficulty is the user's self-reported recall rating for a single review.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var ErrInvalidDifficulty = errors.New("invalid difficulty")

func ParseDifficulty(value string) (Difficulty, error) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(value))) {
	case DifficultyEasy:
		return DifficultyEasy, nil
	case DifficultyMedium:
		return DifficultyMedium, nil
	case DifficultyHard:
		return DifficultyHard, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, value)
	}
}

// IntervalDays is the fixed reschedule interval for the rating. Intervals are
// counted from the review moment, never from the previous due date.
func (d Difficulty) IntervalDays() int {
	switch d {
	case DifficultyEasy:
		return 7
	case DifficultyMedium:
		return 3
	default:
		return 1
	}
}

// SuccessWeight is the rating's contribution to the card's running success
// rate average.
func (d Difficulty) SuccessWeight() float64 {
	switch d {
	case DifficultyEasy:
		return 1.0
	case DifficultyMedium:
		return 0.5
	default:
		return 0.0
	}
}

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}
