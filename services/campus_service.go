package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/matchpoint-academy/tournament-engine/models"
	"github.com/matchpoint-academy/tournament-engine/repositories"
)

type CampusService interface {
	Create(ctx context.Context, actor Actor, campus *models.Campus) (*models.Campus, error)
	GetByID(ctx context.Context, id int) (*models.Campus, error)
	List(ctx context.Context) ([]*models.Campus, error)
}

type campusService struct {
	campusRepo repositories.CampusRepository
	authorizer Authorizer
}

func NewCampusService(campusRepo repositories.CampusRepository, authorizer Authorizer) CampusService {
	return &campusService{campusRepo: campusRepo, authorizer: authorizer}
}

func (s *campusService) Create(ctx context.Context, actor Actor, campus *models.Campus) (*models.Campus, error) {
	if !s.authorizer.Can(actor, ActionManageCampus, nil) {
		return nil, ErrForbiddenOperation
	}
	if campus.Name == "" {
		return nil, fmt.Errorf("%w: campus name is required", ErrValidationFailed)
	}
	if campus.Courts < 1 {
		return nil, fmt.Errorf("%w: campus needs at least one court", ErrValidationFailed)
	}
	if err := s.campusRepo.Create(ctx, nil, campus); err != nil {
		if errors.Is(err, repositories.ErrCampusNameConflict) {
			return nil, fmt.Errorf("%w: campus name already in use", ErrValidationFailed)
		}
		return nil, err
	}
	return campus, nil
}

func (s *campusService) GetByID(ctx context.Context, id int) (*models.Campus, error) {
	campus, err := s.campusRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCampusNotFound) {
			return nil, ErrCampusNotFound
		}
		return nil, err
	}
	return campus, nil
}

func (s *campusService) List(ctx context.Context) ([]*models.Campus, error) {
	return s.campusRepo.List(ctx, nil)
}
