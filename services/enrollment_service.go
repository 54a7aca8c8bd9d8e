package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/matchpoint-academy/tournament-engine/db"
	"github.com/matchpoint-academy/tournament-engine/models"
	"github.com/matchpoint-academy/tournament-engine/repositories"
)

// EnrollmentService coordinates enrollment against capacity,
// eligibility and the participant's credit balance. The whole check and
// charge runs as one transaction under the tournament's advisory lock,
// so two participants racing for the last slot cannot both get it.
type EnrollmentService interface {
	Enroll(ctx context.Context, actor Actor, tournamentID, participantID int) (*models.Enrollment, error)
	Withdraw(ctx context.Context, actor Actor, enrollmentID int) error
	ListByTournament(ctx context.Context, tournamentID int, activeOnly bool) ([]*models.Enrollment, error)
}

type enrollmentService struct {
	txRunner       db.TxRunner
	tournamentRepo repositories.TournamentRepository
	enrollmentRepo repositories.EnrollmentRepository
	userRepo       repositories.UserRepository
	authorizer     Authorizer
	logger         *slog.Logger
}

func NewEnrollmentService(
	txRunner db.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	enrollmentRepo repositories.EnrollmentRepository,
	userRepo repositories.UserRepository,
	authorizer Authorizer,
	logger *slog.Logger,
) EnrollmentService {
	return &enrollmentService{
		txRunner:       txRunner,
		tournamentRepo: tournamentRepo,
		enrollmentRepo: enrollmentRepo,
		userRepo:       userRepo,
		authorizer:     authorizer,
		logger:         logger,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, actor Actor, tournamentID, participantID int) (*models.Enrollment, error) {
	if !s.authorizer.Can(actor, ActionEnroll, nil) {
		return nil, ErrForbiddenOperation
	}
	// Participants enroll themselves; only an admin enrolls others.
	if actor.Role != models.RoleAdmin && actor.UserID != participantID {
		return nil, ErrForbiddenOperation
	}

	var enrollment *models.Enrollment
	err := s.txRunner.WithinTx(ctx, int64(tournamentID), func(tx *sql.Tx) error {
		tournament, txErr := s.tournamentRepo.GetByID(ctx, tx, tournamentID)
		if txErr != nil {
			if errors.Is(txErr, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return txErr
		}
		if tournament.Status != models.StatusReadyForEnrollment || !tournament.EnrollmentDeadline.After(time.Now()) {
			return ErrEnrollmentNotOpen
		}

		participant, txErr := s.userRepo.GetByID(ctx, tx, participantID)
		if txErr != nil {
			if errors.Is(txErr, repositories.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return txErr
		}
		if txErr = checkEligibility(tournament, participant); txErr != nil {
			return txErr
		}

		active, txErr := s.enrollmentRepo.CountActive(ctx, tx, tournamentID)
		if txErr != nil {
			return txErr
		}
		if active >= tournament.Capacity {
			return ErrCapacityExceeded
		}

		if tournament.EntryCost > 0 {
			if txErr = s.userRepo.AdjustCredits(ctx, tx, participantID, -tournament.EntryCost); txErr != nil {
				if errors.Is(txErr, repositories.ErrBalanceTooLow) {
					return ErrInsufficientCredits
				}
				return txErr
			}
		}

		enrollment = &models.Enrollment{
			ParticipantID:  participantID,
			TournamentID:   tournamentID,
			CreditsCharged: tournament.EntryCost,
			Status:         models.EnrollmentConfirmed,
		}
		if txErr = s.enrollmentRepo.Create(ctx, tx, enrollment); txErr != nil {
			if errors.Is(txErr, repositories.ErrEnrollmentConflict) {
				return ErrEnrollmentConflict
			}
			return txErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("participant enrolled",
		slog.Int("tournament_id", tournamentID),
		slog.Int("participant_id", participantID),
		slog.Int("credits_charged", enrollment.CreditsCharged))
	return enrollment, nil
}

func checkEligibility(tournament *models.Tournament, participant *models.User) error {
	if participant.Role != models.RoleParticipant {
		return fmt.Errorf("%w: only participants can enroll", ErrValidationFailed)
	}
	if tournament.AgeCategory != models.AgeOpen && participant.AgeCategory != tournament.AgeCategory {
		return fmt.Errorf("%w: participant age category %s does not match tournament category %s",
			ErrValidationFailed, participant.AgeCategory, tournament.AgeCategory)
	}
	if participant.LicenseID == nil || *participant.LicenseID == "" {
		return fmt.Errorf("%w: participant has no competition license", ErrValidationFailed)
	}
	return nil
}

func (s *enrollmentService) Withdraw(ctx context.Context, actor Actor, enrollmentID int) error {
	enrollment, err := s.enrollmentRepo.GetByID(ctx, nil, enrollmentID)
	if err != nil {
		if errors.Is(err, repositories.ErrEnrollmentNotFound) {
			return ErrEnrollmentNotFound
		}
		return err
	}
	if !s.authorizer.Can(actor, ActionWithdraw, nil) {
		return ErrForbiddenOperation
	}
	if actor.Role != models.RoleAdmin && actor.UserID != enrollment.ParticipantID {
		return ErrForbiddenOperation
	}

	return s.txRunner.WithinTx(ctx, int64(enrollment.TournamentID), func(tx *sql.Tx) error {
		current, txErr := s.enrollmentRepo.GetByID(ctx, tx, enrollmentID)
		if txErr != nil {
			return txErr
		}
		if !current.Active() {
			return nil
		}

		tournament, txErr := s.tournamentRepo.GetByID(ctx, tx, current.TournamentID)
		if txErr != nil {
			return txErr
		}
		// Once play starts the field is fixed.
		if tournament.Status == models.StatusOngoing || tournament.Status.Terminal() {
			return &PreconditionError{
				From:   string(tournament.Status),
				To:     string(tournament.Status),
				Reason: "withdrawal is only possible before the tournament starts",
			}
		}

		if current.CreditsCharged > 0 {
			if txErr = s.userRepo.AdjustCredits(ctx, tx, current.ParticipantID, current.CreditsCharged); txErr != nil {
				return txErr
			}
		}
		return s.enrollmentRepo.UpdateStatus(ctx, tx, enrollmentID, models.EnrollmentWithdrawn)
	})
}

func (s *enrollmentService) ListByTournament(ctx context.Context, tournamentID int, activeOnly bool) ([]*models.Enrollment, error) {
	return s.enrollmentRepo.ListByTournament(ctx, nil, tournamentID, activeOnly)
}
