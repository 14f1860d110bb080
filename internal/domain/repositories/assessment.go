package repositories

import (
	"context"

	"github.com/preventix/preventix/internal/domain/entities"
)

// AssessmentRepository defines the interface for assessment data access
type AssessmentRepository interface {
	// Create stores a new assessment
	Create(ctx context.Context, assessment *entities.Assessment) error

	// GetByID retrieves an assessment owned by the given user
	GetByID(ctx context.Context, userID, id string) (*entities.Assessment, error)

	// ListRecent returns a user's newest assessments, newest first
	ListRecent(ctx context.Context, userID string, limit int) ([]*entities.Assessment, error)
}
