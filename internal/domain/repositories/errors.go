package repositories

import "errors"

// Domain-specific repository errors
var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUserInactive is returned when a user exists but is inactive/disabled
	ErrUserInactive = errors.New("user is inactive")

	// ErrEmailTaken is returned when a new user's email is already registered
	ErrEmailTaken = errors.New("email already registered")

	// ErrAssessmentNotFound is returned when an assessment cannot be found
	ErrAssessmentNotFound = errors.New("assessment not found")
)
