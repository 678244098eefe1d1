package subject

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the storage port for subjects.
type Repository interface {
	Create(ctx context.Context, s *Subject) error
	GetByID(ctx context.Context, id uuid.UUID) (*Subject, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Subject, error)
}
