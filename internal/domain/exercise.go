package domain

import (
	"fmt"
	"strings"
)

// Exercise is one coding challenge in the practice arena
type Exercise struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Difficulty  Difficulty `json:"difficulty"`
	Description string     `json:"description"`
	StarterCode string     `json:"initialCode"`
	Hint        string     `json:"hint"`
	AIGenerated bool       `json:"isAiGenerated,omitempty"`
}

// Difficulty represents exercise difficulty level
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Difficulties lists the accepted levels in ascending order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Vietnamese labels appear in older content packs and in replies from models
// prompted in Vietnamese.
var difficultyAliases = map[string]Difficulty{
	"easy":       DifficultyEasy,
	"medium":     DifficultyMedium,
	"hard":       DifficultyHard,
	"dễ":         DifficultyEasy,
	"trung bình": DifficultyMedium,
	"khó":        DifficultyHard,
}

// ParseDifficulty maps a label onto a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	if d, ok := difficultyAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return "", fmt.Errorf("%w: unknown difficulty %q", ErrInvalidExercise, s)
}

// Valid reports whether d is one of the known levels.
func (d Difficulty) Valid() bool {
	for _, known := range Difficulties {
		if d == known {
			return true
		}
	}
	return false
}

// Validate checks that the exercise is complete enough to be practiced.
func (e *Exercise) Validate() error {
	switch {
	case strings.TrimSpace(e.ID) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidExercise)
	case strings.TrimSpace(e.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidExercise)
	case strings.TrimSpace(e.Description) == "":
		return fmt.Errorf("%w: description is required", ErrInvalidExercise)
	case !e.Difficulty.Valid():
		return fmt.Errorf("%w: difficulty %q", ErrInvalidExercise, e.Difficulty)
	}
	return nil
}

// Clone returns a copy that can be handed out without sharing state.
func (e *Exercise) Clone() *Exercise {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}
