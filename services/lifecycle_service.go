package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/matchpoint-academy/tournament-engine/db"
	"github.com/matchpoint-academy/tournament-engine/events"
	"github.com/matchpoint-academy/tournament-engine/models"
	"github.com/matchpoint-academy/tournament-engine/repositories"
)

// allowedTransitions is the status graph. Cancellation is reachable
// from every non-terminal status; terminal statuses have no exits.
var allowedTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.StatusDraft:               {models.StatusSeekingInstructor, models.StatusCancelled},
	models.StatusSeekingInstructor:   {models.StatusInstructorConfirmed, models.StatusCancelled},
	models.StatusInstructorConfirmed: {models.StatusReadyForEnrollment, models.StatusCancelled},
	models.StatusReadyForEnrollment:  {models.StatusOngoing, models.StatusCancelled},
	models.StatusOngoing:             {models.StatusCompleted, models.StatusCancelled},
	models.StatusCompleted:           {},
	models.StatusCancelled:           {},
}

// TransitionSnapshot carries everything a transition precondition needs,
// read once inside the transaction so the check itself stays pure.
type TransitionSnapshot struct {
	Tournament        *models.Tournament
	ActiveEnrollments int
	Instructor        *models.User
	AllStagesComplete bool
}

// CheckTransition validates a status change against the graph and the
// target's precondition. It touches nothing but the snapshot.
func CheckTransition(snap TransitionSnapshot, to models.TournamentStatus) error {
	t := snap.Tournament
	from := t.Status

	if from.Terminal() {
		return &PreconditionError{From: string(from), To: string(to), Reason: "tournament is in a terminal state"}
	}
	allowed := false
	for _, next := range allowedTransitions[from] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return &PreconditionError{From: string(from), To: string(to), Reason: "transition is not on the status graph"}
	}

	switch to {
	case models.StatusSeekingInstructor:
		if err := validateTournamentConfig(t); err != nil {
			return &PreconditionError{From: string(from), To: string(to), Reason: err.Error()}
		}
	case models.StatusInstructorConfirmed:
		if t.InstructorID == nil {
			return &PreconditionError{From: string(from), To: string(to), Reason: "no instructor assigned"}
		}
		if snap.Instructor == nil || snap.Instructor.Role != models.RoleInstructor {
			return &PreconditionError{From: string(from), To: string(to), Reason: "assigned user does not have the instructor role"}
		}
	case models.StatusReadyForEnrollment:
		if !t.EnrollmentDeadline.After(time.Now()) {
			return &PreconditionError{From: string(from), To: string(to), Reason: "enrollment deadline has already passed"}
		}
	case models.StatusOngoing:
		if minimum := t.Format.MinParticipants(); snap.ActiveEnrollments < minimum {
			return &PreconditionError{
				From:   string(from),
				To:     string(to),
				Reason: fmt.Sprintf("format %s needs %d participants, have %d", t.Format, minimum, snap.ActiveEnrollments),
			}
		}
	case models.StatusCompleted:
		if !snap.AllStagesComplete {
			return &PreconditionError{From: string(from), To: string(to), Reason: "not every session is finalized"}
		}
	case models.StatusCancelled:
		// Always reachable from a non-terminal status.
	}
	return nil
}

func validateTournamentConfig(t *models.Tournament) error {
	if t.Name == "" {
		return errors.New("tournament name is required")
	}
	if t.Capacity < t.Format.MinParticipants() {
		return fmt.Errorf("capacity %d is below the format minimum %d", t.Capacity, t.Format.MinParticipants())
	}
	if t.EntryCost < 0 {
		return errors.New("entry cost must not be negative")
	}
	if !t.EnrollmentDeadline.Before(t.StartDate) {
		return errors.New("enrollment deadline must be before the start date")
	}
	if err := t.RewardPolicy.Validate(); err != nil {
		return err
	}
	return nil
}

// LifecycleService drives the tournament status graph. Every transition
// runs under the tournament's advisory lock so concurrent operations on
// the same tournament are serialized.
type LifecycleService interface {
	Transition(ctx context.Context, actor Actor, tournamentID int, to models.TournamentStatus) (*models.Tournament, error)
	CloseExpiredEnrollments(ctx context.Context) error
}

type lifecycleService struct {
	txRunner       db.TxRunner
	tournamentRepo repositories.TournamentRepository
	stageRepo      repositories.StageRepository
	sessionRepo    repositories.SessionRepository
	enrollmentRepo repositories.EnrollmentRepository
	userRepo       repositories.UserRepository
	schedule       ScheduleService
	rewards        RewardService
	authorizer     Authorizer
	publisher      events.Publisher
	logger         *slog.Logger
}

func NewLifecycleService(
	txRunner db.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	stageRepo repositories.StageRepository,
	sessionRepo repositories.SessionRepository,
	enrollmentRepo repositories.EnrollmentRepository,
	userRepo repositories.UserRepository,
	schedule ScheduleService,
	rewards RewardService,
	authorizer Authorizer,
	publisher events.Publisher,
	logger *slog.Logger,
) LifecycleService {
	return &lifecycleService{
		txRunner:       txRunner,
		tournamentRepo: tournamentRepo,
		stageRepo:      stageRepo,
		sessionRepo:    sessionRepo,
		enrollmentRepo: enrollmentRepo,
		userRepo:       userRepo,
		schedule:       schedule,
		rewards:        rewards,
		authorizer:     authorizer,
		publisher:      publisher,
		logger:         logger,
	}
}

func (s *lifecycleService) Transition(ctx context.Context, actor Actor, tournamentID int, to models.TournamentStatus) (*models.Tournament, error) {
	if _, ok := allowedTransitions[to]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	action := ActionTransitionStatus
	if to == models.StatusInstructorConfirmed {
		action = ActionConfirmInstructor
	}
	if !s.authorizer.Can(actor, action, tournament) {
		return nil, ErrForbiddenOperation
	}
	// An instructor confirms only their own assignment.
	if to == models.StatusInstructorConfirmed && actor.Role == models.RoleInstructor {
		if tournament.InstructorID == nil || *tournament.InstructorID != actor.UserID {
			return nil, ErrForbiddenOperation
		}
	}

	var updated *models.Tournament
	err = s.txRunner.WithinTx(ctx, int64(tournamentID), func(tx *sql.Tx) error {
		current, txErr := s.tournamentRepo.GetByID(ctx, tx, tournamentID)
		if txErr != nil {
			return txErr
		}

		snap, txErr := s.buildSnapshot(ctx, tx, current, to)
		if txErr != nil {
			return txErr
		}
		if txErr = CheckTransition(snap, to); txErr != nil {
			return txErr
		}

		switch to {
		case models.StatusOngoing:
			participants := make([]int, 0, snap.ActiveEnrollments)
			enrollments, listErr := s.enrollmentRepo.ListByTournament(ctx, tx, tournamentID, true)
			if listErr != nil {
				return listErr
			}
			for _, e := range enrollments {
				participants = append(participants, e.ParticipantID)
			}
			if txErr = s.schedule.GenerateInitialSchedule(ctx, tx, current, participants); txErr != nil {
				return txErr
			}
		case models.StatusCancelled:
			if txErr = s.cancelTournament(ctx, tx, current); txErr != nil {
				return txErr
			}
		}

		if txErr = s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, current.Status, to); txErr != nil {
			if errors.Is(txErr, repositories.ErrTournamentNotFound) {
				return db.ErrConcurrentModification
			}
			return txErr
		}
		current.Status = to
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament status changed",
		slog.Int("tournament_id", tournamentID),
		slog.String("from", string(tournament.Status)),
		slog.String("to", string(to)))
	s.publisher.Publish(events.New(events.TypeTournamentStateChanged, tournamentID, events.TournamentStateChangedPayload{
		From: string(tournament.Status),
		To:   string(to),
	}))

	if to == models.StatusCompleted {
		// Distribution is idempotent and can be re-run by an admin if
		// this attempt fails after the commit above.
		if _, distErr := s.rewards.Distribute(ctx, tournamentID); distErr != nil {
			s.logger.Error("reward distribution after completion failed",
				slog.Int("tournament_id", tournamentID),
				slog.Any("error", distErr))
		}
	}
	return updated, nil
}

func (s *lifecycleService) buildSnapshot(ctx context.Context, tx *sql.Tx, tournament *models.Tournament, to models.TournamentStatus) (TransitionSnapshot, error) {
	snap := TransitionSnapshot{Tournament: tournament}

	switch to {
	case models.StatusInstructorConfirmed:
		if tournament.InstructorID != nil {
			instructor, err := s.userRepo.GetByID(ctx, tx, *tournament.InstructorID)
			if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
				return snap, err
			}
			snap.Instructor = instructor
		}
	case models.StatusOngoing:
		count, err := s.enrollmentRepo.CountActive(ctx, tx, tournament.ID)
		if err != nil {
			return snap, err
		}
		snap.ActiveEnrollments = count
	case models.StatusCompleted:
		complete, err := s.allStagesComplete(ctx, tx, tournament.ID)
		if err != nil {
			return snap, err
		}
		snap.AllStagesComplete = complete
	}
	return snap, nil
}

func (s *lifecycleService) allStagesComplete(ctx context.Context, tx *sql.Tx, tournamentID int) (bool, error) {
	stages, err := s.stageRepo.ListByTournament(ctx, tx, tournamentID)
	if err != nil {
		return false, err
	}
	if len(stages) == 0 {
		return false, nil
	}
	for _, stage := range stages {
		sessions, err := s.sessionRepo.ListByStage(ctx, tx, stage.ID, nil)
		if err != nil {
			return false, err
		}
		if len(sessions) == 0 {
			return false, nil
		}
		for _, session := range sessions {
			if session.Status == models.SessionVoid || session.IsBye() {
				continue
			}
			if !session.Finalized {
				return false, nil
			}
		}
	}
	return true, nil
}

// cancelTournament voids every pending session and refunds the entry
// cost of every live enrollment. Sessions are kept for the audit trail,
// never deleted.
func (s *lifecycleService) cancelTournament(ctx context.Context, tx *sql.Tx, tournament *models.Tournament) error {
	voided, err := s.sessionRepo.VoidByTournament(ctx, tx, tournament.ID)
	if err != nil {
		return err
	}

	enrollments, err := s.enrollmentRepo.ListByTournament(ctx, tx, tournament.ID, true)
	if err != nil {
		return err
	}
	for _, enrollment := range enrollments {
		if enrollment.CreditsCharged > 0 {
			if err := s.userRepo.AdjustCredits(ctx, tx, enrollment.ParticipantID, enrollment.CreditsCharged); err != nil {
				return err
			}
		}
		if err := s.enrollmentRepo.UpdateStatus(ctx, tx, enrollment.ID, models.EnrollmentWithdrawn); err != nil {
			return err
		}
	}

	s.logger.Info("tournament cancelled",
		slog.Int("tournament_id", tournament.ID),
		slog.Int64("voided_sessions", voided),
		slog.Int("refunded_enrollments", len(enrollments)))
	return nil
}

// CloseExpiredEnrollments is the scheduler tick: tournaments whose
// enrollment deadline has passed either start, when the field is big
// enough, or get cancelled with refunds.
func (s *lifecycleService) CloseExpiredEnrollments(ctx context.Context) error {
	expired, err := s.tournamentRepo.ListWithExpiredDeadline(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to list tournaments with expired deadlines: %w", err)
	}

	system := Actor{Role: models.RoleAdmin}
	for _, tournament := range expired {
		count, err := s.enrollmentRepo.CountActive(ctx, nil, tournament.ID)
		if err != nil {
			s.logger.Error("failed to count enrollments for deadline close",
				slog.Int("tournament_id", tournament.ID), slog.Any("error", err))
			continue
		}

		target := models.StatusOngoing
		if count < tournament.Format.MinParticipants() {
			target = models.StatusCancelled
		}
		if _, err := s.Transition(ctx, system, tournament.ID, target); err != nil {
			s.logger.Error("automatic enrollment close failed",
				slog.Int("tournament_id", tournament.ID),
				slog.String("target", string(target)),
				slog.Any("error", err))
		}
	}
	return nil
}
