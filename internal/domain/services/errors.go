package services

import (
	"errors"

	"github.com/preventix/preventix/internal/domain/repositories"
)

// IsUserInactive checks if the error indicates an inactive user.
func IsUserInactive(err error) bool {
	return errors.Is(err, repositories.ErrUserInactive)
}

// IsUserNotFound checks if the error indicates user not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, repositories.ErrUserNotFound)
}

// IsEmailTaken checks if the error indicates a duplicate registration.
func IsEmailTaken(err error) bool {
	return errors.Is(err, repositories.ErrEmailTaken)
}
