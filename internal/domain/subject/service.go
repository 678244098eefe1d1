package subject

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicq/clinicq/internal/domain/scheduling"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, subj *Subject) error {
	if subj.Name == "" {
		return fmt.Errorf("%w: name is required", scheduling.ErrValidation)
	}
	if !validKinds[subj.Kind] {
		return fmt.Errorf("%w: invalid kind %q", scheduling.ErrValidation, subj.Kind)
	}
	if subj.Kind == KindFamily && subj.OwnerID == nil {
		return fmt.Errorf("%w: family member needs an owner", scheduling.ErrValidation)
	}
	if subj.Kind != KindFamily && subj.OwnerID != nil {
		return fmt.Errorf("%w: only family members carry an owner", scheduling.ErrValidation)
	}
	return s.repo.Create(ctx, subj)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Subject, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Subject, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Lookup implements scheduling.SubjectLookup.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (*scheduling.SubjectInfo, error) {
	subj, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	info := &scheduling.SubjectInfo{
		ID:    subj.ID,
		Kind:  string(subj.Kind),
		Name:  subj.Name,
		Phone: subj.Phone,
	}
	if subj.OwnerID != nil {
		info.OwnerID = *subj.OwnerID
	}
	return info, nil
}
