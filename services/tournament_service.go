package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/matchpoint-academy/tournament-engine/models"
	"github.com/matchpoint-academy/tournament-engine/repositories"
	"github.com/matchpoint-academy/tournament-engine/storage"
)

// TournamentService covers tournament CRUD plus instructor assignment
// and logo upload. Status changes live in LifecycleService.
type TournamentService interface {
	Create(ctx context.Context, actor Actor, tournament *models.Tournament) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	AssignInstructor(ctx context.Context, actor Actor, tournamentID, instructorID int) error
	UploadLogo(ctx context.Context, actor Actor, tournamentID int, contentType string, reader io.Reader) (*models.Tournament, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	stageRepo      repositories.StageRepository
	enrollmentRepo repositories.EnrollmentRepository
	userRepo       repositories.UserRepository
	authorizer     Authorizer
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	stageRepo repositories.StageRepository,
	enrollmentRepo repositories.EnrollmentRepository,
	userRepo repositories.UserRepository,
	authorizer Authorizer,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		stageRepo:      stageRepo,
		enrollmentRepo: enrollmentRepo,
		userRepo:       userRepo,
		authorizer:     authorizer,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, actor Actor, tournament *models.Tournament) (*models.Tournament, error) {
	if !s.authorizer.Can(actor, ActionManageTournament, nil) {
		return nil, ErrForbiddenOperation
	}

	tournament.Status = models.StatusDraft
	tournament.Scoring = tournament.Scoring.OrDefault()
	if err := validateTournamentConfig(tournament); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	if err := s.tournamentRepo.Create(ctx, nil, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("name", tournament.Name),
		slog.String("format", string(tournament.Format)))
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	s.populateLogoURL(tournament)
	if tournament.InstructorID != nil {
		instructor, err := s.userRepo.GetByID(ctx, nil, *tournament.InstructorID)
		if err == nil {
			instructor.PasswordHash = ""
			tournament.Instructor = instructor
		} else if !errors.Is(err, repositories.ErrUserNotFound) {
			s.logger.Warn("failed to populate instructor",
				slog.Int("tournament_id", id), slog.Any("error", err))
		}
	}
	stages, err := s.stageRepo.ListByTournament(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	for _, stage := range stages {
		tournament.Stages = append(tournament.Stages, *stage)
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		s.populateLogoURL(&tournaments[i])
	}
	return tournaments, nil
}

func (s *tournamentService) AssignInstructor(ctx context.Context, actor Actor, tournamentID, instructorID int) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	if !s.authorizer.Can(actor, ActionAssignInstructor, tournament) {
		return ErrForbiddenOperation
	}
	if tournament.Status != models.StatusSeekingInstructor {
		return &PreconditionError{
			From:   string(tournament.Status),
			To:     string(tournament.Status),
			Reason: "instructor assignment requires the seeking_instructor status",
		}
	}

	instructor, err := s.userRepo.GetByID(ctx, nil, instructorID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if instructor.Role != models.RoleInstructor {
		return ErrInstructorRoleMismatch
	}
	return s.tournamentRepo.UpdateInstructor(ctx, nil, tournamentID, &instructorID)
}

func (s *tournamentService) UploadLogo(ctx context.Context, actor Actor, tournamentID int, contentType string, reader io.Reader) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if !s.authorizer.Can(actor, ActionUploadLogo, tournament) {
		return nil, ErrForbiddenOperation
	}
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: file storage is not configured", ErrValidationFailed)
	}

	ext, err := extensionForContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	oldKey := tournament.LogoKey
	key := fmt.Sprintf("tournaments/%d/logo%s", tournamentID, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, reader); err != nil {
		return nil, fmt.Errorf("failed to upload tournament logo: %w", err)
	}
	if err := s.tournamentRepo.UpdateLogoKey(ctx, tournamentID, &key); err != nil {
		return nil, err
	}
	if oldKey != nil && *oldKey != key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.Warn("failed to delete previous logo",
				slog.Int("tournament_id", tournamentID),
				slog.String("key", *oldKey),
				slog.Any("error", delErr))
		}
	}

	tournament.LogoKey = &key
	s.populateLogoURL(tournament)
	return tournament, nil
}

func (s *tournamentService) populateLogoURL(tournament *models.Tournament) {
	if tournament.LogoKey == nil || *tournament.LogoKey == "" || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*tournament.LogoKey); url != "" {
		tournament.LogoURL = &url
	}
}

func extensionForContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/webp":
		return ".webp", nil
	case "image/svg+xml":
		return ".svg", nil
	default:
		return "", fmt.Errorf("unsupported logo content type %q", contentType)
	}
}
