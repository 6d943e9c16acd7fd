package domain

import (
	"fmt"
	"strings"
	"time"
)

// Learner is the single locally registered user of an installation.
type Learner struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	EnrolledAt time.Time `json:"enrolledAt"`

	// Completion sets are carried for a future progress feature. Nothing in
	// this repository writes to them.
	CompletedTopics    []string `json:"completedTopics"`
	CompletedExercises []string `json:"completedExercises"`
}

// EnrollmentPrecision is the resolution of EnrolledAt. It matches the
// coarsest profile backend (PostgreSQL timestamptz) so every backend loads
// back the time it saved.
const EnrollmentPrecision = time.Microsecond

// NewLearner builds a learner from registration input.
func NewLearner(name, email string, now time.Time) (*Learner, error) {
	l := &Learner{
		Name:               strings.TrimSpace(name),
		Email:              strings.TrimSpace(email),
		EnrolledAt:         now.UTC().Truncate(EnrollmentPrecision),
		CompletedTopics:    []string{},
		CompletedExercises: []string{},
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Validate checks the required registration fields.
func (l *Learner) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(l.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	return nil
}

// Normalize replaces nil completion sets with empty ones so the record
// always serializes as arrays.
func (l *Learner) Normalize() {
	if l.CompletedTopics == nil {
		l.CompletedTopics = []string{}
	}
	if l.CompletedExercises == nil {
		l.CompletedExercises = []string{}
	}
}
