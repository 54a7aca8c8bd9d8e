package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/matchpoint-academy/tournament-engine/db"
	"github.com/matchpoint-academy/tournament-engine/events"
	"github.com/matchpoint-academy/tournament-engine/models"
	"github.com/matchpoint-academy/tournament-engine/repositories"
)

// ResultsService accepts match-result submissions and serves standings.
// Submissions are serialized per tournament; a duplicate submission of
// an already finalized session returns the stored session unchanged.
type ResultsService interface {
	SubmitResult(ctx context.Context, actor Actor, sessionID int, result *models.MatchResult) (*models.Session, error)
	FinalizeStage(ctx context.Context, actor Actor, stageID int) error
	StageStandings(ctx context.Context, stageID int) (*models.StageStandings, error)
}

type resultsService struct {
	txRunner       db.TxRunner
	tournamentRepo repositories.TournamentRepository
	stageRepo      repositories.StageRepository
	sessionRepo    repositories.SessionRepository
	enrollmentRepo repositories.EnrollmentRepository
	schedule       ScheduleService
	authorizer     Authorizer
	publisher      events.Publisher
	logger         *slog.Logger
}

func NewResultsService(
	txRunner db.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	stageRepo repositories.StageRepository,
	sessionRepo repositories.SessionRepository,
	enrollmentRepo repositories.EnrollmentRepository,
	schedule ScheduleService,
	authorizer Authorizer,
	publisher events.Publisher,
	logger *slog.Logger,
) ResultsService {
	return &resultsService{
		txRunner:       txRunner,
		tournamentRepo: tournamentRepo,
		stageRepo:      stageRepo,
		sessionRepo:    sessionRepo,
		enrollmentRepo: enrollmentRepo,
		schedule:       schedule,
		authorizer:     authorizer,
		publisher:      publisher,
		logger:         logger,
	}
}

func (s *resultsService) SubmitResult(ctx context.Context, actor Actor, sessionID int, result *models.MatchResult) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, nil, sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, session.TournamentID)
	if err != nil {
		return nil, err
	}
	if !s.authorizer.Can(actor, ActionSubmitResult, tournament) {
		return nil, ErrForbiddenOperation
	}
	if tournament.Status != models.StatusOngoing {
		return nil, &PreconditionError{
			From:   string(tournament.Status),
			To:     string(tournament.Status),
			Reason: "results can only be submitted while the tournament is ongoing",
		}
	}

	var stored *models.Session
	var winnerID *int

	err = s.txRunner.WithinTx(ctx, int64(tournament.ID), func(tx *sql.Tx) error {
		current, txErr := s.sessionRepo.GetByID(ctx, tx, sessionID)
		if txErr != nil {
			return txErr
		}
		if current.Finalized {
			// Duplicate submission: hand back what is stored.
			stored = current
			return nil
		}
		if current.Status == models.SessionVoid {
			return fmt.Errorf("%w: session %d is void", ErrValidationFailed, sessionID)
		}
		if current.IsBye() {
			return ErrResultForByeSession
		}

		stage, txErr := s.stageRepo.GetByID(ctx, tx, current.StageID)
		if txErr != nil {
			return txErr
		}
		if txErr := validateResultShape(stage, current, result); txErr != nil {
			return fmt.Errorf("%w: %v", ErrValidationFailed, txErr)
		}

		result.SubmittedBy = actor.UserID
		result.SubmittedAt = time.Now().UTC()

		if txErr := s.sessionRepo.Finalize(ctx, tx, sessionID, result); txErr != nil {
			if errors.Is(txErr, repositories.ErrSessionAlreadyFinalized) {
				stored, txErr = s.sessionRepo.GetByID(ctx, tx, sessionID)
				return txErr
			}
			return txErr
		}

		current.Finalized = true
		current.Status = models.SessionCompleted
		current.Result = result
		stored = current
		winnerID = result.WinnerID(current)

		if txErr := s.propagateWinner(ctx, tx, current, winnerID); txErr != nil {
			return txErr
		}
		return s.continueStage(ctx, tx, tournament, stage)
	})
	if err != nil {
		return nil, err
	}

	if stored.Result != nil && stored.Result.SubmittedAt.Equal(result.SubmittedAt) {
		s.publisher.Publish(events.New(events.TypeMatchFinalized, tournament.ID, events.MatchFinalizedPayload{
			SessionID: stored.ID,
			StageID:   stored.StageID,
			WinnerID:  winnerID,
		}))
	}
	return stored, nil
}

// validateResultShape checks the submitted result against the session
// and the stage format. Knockout sessions cannot end in a draw; ranked
// placement lists are accepted only on group sessions.
func validateResultShape(stage *models.Stage, session *models.Session, result *models.MatchResult) error {
	if len(result.Placements) > 0 {
		if session.GroupIndex == nil {
			return fmt.Errorf("placements are only valid for group sessions")
		}
		return result.ValidatePlacements(sessionParticipants(session))
	}
	if err := result.ValidateHeadToHead(session); err != nil {
		return err
	}
	if stage.Format == models.FormatKnockout && result.Outcome == models.OutcomeDraw {
		return fmt.Errorf("knockout sessions cannot end in a draw")
	}
	return nil
}

func sessionParticipants(session *models.Session) []int {
	ids := make([]int, 0, 2)
	if session.P1ParticipantID != nil {
		ids = append(ids, *session.P1ParticipantID)
	}
	if session.P2ParticipantID != nil {
		ids = append(ids, *session.P2ParticipantID)
	}
	return ids
}

// propagateWinner feeds the winner of a decided knockout session into
// its slot of the next bracket session.
func (s *resultsService) propagateWinner(ctx context.Context, tx *sql.Tx, session *models.Session, winnerID *int) error {
	if session.NextSessionID == nil || session.WinnerToSlot == nil || winnerID == nil {
		return nil
	}
	var p1, p2 *int
	switch *session.WinnerToSlot {
	case 1:
		p1 = winnerID
	case 2:
		p2 = winnerID
	default:
		return fmt.Errorf("%w: session %d has winner slot %d", ErrDataIntegrityViolation, session.ID, *session.WinnerToSlot)
	}
	return s.sessionRepo.UpdateParticipants(ctx, tx, *session.NextSessionID, p1, p2)
}

// continueStage moves the tournament forward after a finalization when
// the stage allows it: the next swiss round once the current one is
// done, or the knockout field of a group tournament once the groups
// finish.
func (s *resultsService) continueStage(ctx context.Context, tx *sql.Tx, tournament *models.Tournament, stage *models.Stage) error {
	participants, err := s.enrolledParticipants(ctx, tx, tournament.ID)
	if err != nil {
		return err
	}

	if stage.Format == models.FormatSwiss {
		round, err := s.schedule.GenerateNextSwissRound(ctx, tx, tournament, stage, participants)
		if err != nil {
			if errors.Is(err, ErrStageNotComplete) || errors.Is(err, ErrNoFurtherRounds) {
				return nil
			}
			return err
		}
		s.logger.Info("swiss round generated",
			slog.Int("tournament_id", tournament.ID),
			slog.Int("stage_id", stage.ID),
			slog.Int("round", round))
		return nil
	}

	if stage.Advancement.Kind == "" {
		return nil
	}
	return s.advanceIfComplete(ctx, tx, tournament, stage, participants)
}

// advanceIfComplete fills the next stage once every session of the
// current one is finalized and the next stage is still empty.
func (s *resultsService) advanceIfComplete(ctx context.Context, tx *sql.Tx, tournament *models.Tournament, stage *models.Stage, participants []int) error {
	sessions, err := s.sessionRepo.ListByStage(ctx, tx, stage.ID, nil)
	if err != nil {
		return err
	}
	standings := ComputeStandings(stage, sessions, participants, tournament.Scoring)
	if standings.Incomplete {
		return nil
	}

	stages, err := s.stageRepo.ListByTournament(ctx, tx, tournament.ID)
	if err != nil {
		return err
	}
	var next *models.Stage
	for _, candidate := range stages {
		if candidate.Index == stage.Index+1 {
			next = candidate
			break
		}
	}
	if next == nil {
		return nil
	}
	existing, err := s.sessionRepo.ListByStage(ctx, tx, next.ID, nil)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	required := 2
	if stage.Advancement.Kind == models.AdvanceTopN {
		required = stage.Advancement.TopN
	}
	advancers, err := Advance(standings, stage.Advancement, required)
	if err != nil {
		return err
	}
	s.logger.Info("stage advancement",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("from_stage", stage.ID),
		slog.Int("to_stage", next.ID),
		slog.Int("advancers", len(advancers)))
	return s.schedule.GenerateKnockoutStage(ctx, tx, tournament, next, advancers)
}

// FinalizeStage explicitly pushes a stage forward: the next swiss round
// or the knockout fill that normally happens on the last result
// submission. Useful when that continuation was interrupted. Requires
// every session of the stage to be finalized; re-running against an
// already continued stage is a no-op.
func (s *resultsService) FinalizeStage(ctx context.Context, actor Actor, stageID int) error {
	stage, err := s.stageRepo.GetByID(ctx, nil, stageID)
	if err != nil {
		if errors.Is(err, repositories.ErrStageNotFound) {
			return ErrStageNotFound
		}
		return err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, stage.TournamentID)
	if err != nil {
		return err
	}
	if !s.authorizer.Can(actor, ActionSubmitResult, tournament) {
		return ErrForbiddenOperation
	}
	if tournament.Status != models.StatusOngoing {
		return &PreconditionError{
			From:   string(tournament.Status),
			To:     string(tournament.Status),
			Reason: "stages can only be finalized while the tournament is ongoing",
		}
	}

	return s.txRunner.WithinTx(ctx, int64(tournament.ID), func(tx *sql.Tx) error {
		sessions, txErr := s.sessionRepo.ListByStage(ctx, tx, stage.ID, nil)
		if txErr != nil {
			return txErr
		}
		for _, session := range sessions {
			if session.Status == models.SessionVoid || session.IsBye() {
				continue
			}
			if !session.Finalized {
				return ErrStageNotComplete
			}
		}
		return s.continueStage(ctx, tx, tournament, stage)
	})
}

func (s *resultsService) StageStandings(ctx context.Context, stageID int) (*models.StageStandings, error) {
	stage, err := s.stageRepo.GetByID(ctx, nil, stageID)
	if err != nil {
		if errors.Is(err, repositories.ErrStageNotFound) {
			return nil, ErrStageNotFound
		}
		return nil, err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, stage.TournamentID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessionRepo.ListByStage(ctx, nil, stageID, nil)
	if err != nil {
		return nil, err
	}

	var participants []int
	if stage.Index == 1 {
		participants, err = s.enrolledParticipants(ctx, nil, tournament.ID)
		if err != nil {
			return nil, err
		}
	} else {
		participants = participantsFromSessions(sessions)
	}
	return ComputeStandings(stage, sessions, participants, tournament.Scoring), nil
}

// enrolledParticipants is the active field in enrollment order, which
// is also the seeding order for every generator.
func (s *resultsService) enrolledParticipants(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]int, error) {
	enrollments, err := s.enrollmentRepo.ListByTournament(ctx, exec, tournamentID, true)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.ParticipantID)
	}
	return ids, nil
}

func participantsFromSessions(sessions []*models.Session) []int {
	seen := make(map[int]bool)
	ids := make([]int, 0)
	for _, session := range sessions {
		for _, id := range sessionParticipants(session) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Ints(ids)
	return ids
}
