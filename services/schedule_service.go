package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/matchpoint-academy/tournament-engine/brackets"
	"github.com/matchpoint-academy/tournament-engine/models"
	"github.com/matchpoint-academy/tournament-engine/repositories"
)

// ScheduleService turns a tournament configuration and a participant
// list into persisted stage and session records. All methods run on the
// caller's executor so schedule generation joins the caller's
// transaction.
type ScheduleService interface {
	GenerateInitialSchedule(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, participants []int) error
	GenerateKnockoutStage(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, stage *models.Stage, participants []int) error
	GenerateNextSwissRound(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, stage *models.Stage, participants []int) (int, error)
}

type scheduleService struct {
	stageRepo   repositories.StageRepository
	sessionRepo repositories.SessionRepository
	campusRepo  repositories.CampusRepository
	logger      *slog.Logger
}

func NewScheduleService(
	stageRepo repositories.StageRepository,
	sessionRepo repositories.SessionRepository,
	campusRepo repositories.CampusRepository,
	logger *slog.Logger,
) ScheduleService {
	return &scheduleService{
		stageRepo:   stageRepo,
		sessionRepo: sessionRepo,
		campusRepo:  campusRepo,
		logger:      logger,
	}
}

func (s *scheduleService) GenerateInitialSchedule(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, participants []int) error {
	if len(participants) < tournament.Format.MinParticipants() {
		return fmt.Errorf("%w: format %s needs %d participants, have %d",
			ErrFormatFieldTooSmall, tournament.Format, tournament.Format.MinParticipants(), len(participants))
	}

	campuses, err := s.campusRepo.List(ctx, exec)
	if err != nil {
		return fmt.Errorf("failed to list campuses: %w", err)
	}
	if len(campuses) == 0 {
		return fmt.Errorf("%w: no campus available for scheduling", ErrValidationFailed)
	}

	switch tournament.Format {
	case models.FormatRoundRobin:
		return s.generateSingleStage(ctx, exec, tournament, participants, campuses,
			models.FormatRoundRobin, models.AdvancementRule{},
			brackets.NewRoundRobinGenerator(1))

	case models.FormatKnockout:
		return s.generateSingleStage(ctx, exec, tournament, participants, campuses,
			models.FormatKnockout, models.AdvancementRule{},
			brackets.NewSingleEliminationGenerator())

	case models.FormatSwiss:
		stage := &models.Stage{TournamentID: tournament.ID, Index: 1, Format: models.FormatSwiss}
		if err := s.stageRepo.Create(ctx, exec, stage); err != nil {
			return fmt.Errorf("failed to create swiss stage: %w", err)
		}
		matches, err := brackets.SwissPairRound(brackets.SwissInput{
			Participants: participants,
			Round:        1,
		})
		if err != nil {
			return err
		}
		_, err = s.persistMatches(ctx, exec, tournament, stage, matches, campuses)
		return err

	case models.FormatGroupAndKnockout:
		return s.generateGroupAndKnockout(ctx, exec, tournament, participants, campuses)

	default:
		return fmt.Errorf("%w: unknown tournament format %q", ErrValidationFailed, tournament.Format)
	}
}

func (s *scheduleService) generateSingleStage(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournament *models.Tournament,
	participants []int,
	campuses []*models.Campus,
	format models.TournamentFormat,
	rule models.AdvancementRule,
	generator brackets.Generator,
) error {
	stage := &models.Stage{
		TournamentID: tournament.ID,
		Index:        1,
		Format:       format,
		Advancement:  rule,
	}
	if err := s.stageRepo.Create(ctx, exec, stage); err != nil {
		return fmt.Errorf("failed to create stage: %w", err)
	}

	matches, err := generator.Generate(participants)
	if err != nil {
		return err
	}
	_, err = s.persistMatches(ctx, exec, tournament, stage, matches, campuses)
	return err
}

// generateGroupAndKnockout creates both stages up front but schedules
// sessions for the group stage only. The knockout stage is filled once
// the groups finish and the advancement rule selects its field.
func (s *scheduleService) generateGroupAndKnockout(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournament *models.Tournament,
	participants []int,
	campuses []*models.Campus,
) error {
	groupSize := tournament.GroupSize
	if groupSize < 2 {
		groupSize = 4
	}
	groups, err := brackets.GroupDistribution(participants, groupSize)
	if err != nil {
		return err
	}

	groupStage := &models.Stage{
		TournamentID: tournament.ID,
		Index:        1,
		Format:       models.FormatGroupAndKnockout,
		Advancement:  models.AdvancementRule{Kind: models.AdvanceTopN, TopN: knockoutFieldSize(len(groups), len(participants))},
	}
	if err := s.stageRepo.Create(ctx, exec, groupStage); err != nil {
		return fmt.Errorf("failed to create group stage: %w", err)
	}
	knockoutStage := &models.Stage{
		TournamentID: tournament.ID,
		Index:        2,
		Format:       models.FormatKnockout,
	}
	if err := s.stageRepo.Create(ctx, exec, knockoutStage); err != nil {
		return fmt.Errorf("failed to create knockout stage: %w", err)
	}

	generator := brackets.NewGroupStageGenerator(groupSize)
	matches, err := generator.Generate(participants)
	if err != nil {
		return err
	}
	_, err = s.persistMatches(ctx, exec, tournament, groupStage, matches, campuses)
	return err
}

// knockoutFieldSize picks how many participants leave the group stage:
// two per group, rounded down to a power of two so the bracket starts
// even, never below two and never the whole field.
func knockoutFieldSize(numGroups, totalParticipants int) int {
	field := 2 * numGroups
	if field >= totalParticipants {
		field = totalParticipants / 2
	}
	if field < 2 {
		return 2
	}
	power := 1
	for power*2 <= field {
		power *= 2
	}
	return power
}

func (s *scheduleService) GenerateKnockoutStage(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, stage *models.Stage, participants []int) error {
	campuses, err := s.campusRepo.List(ctx, exec)
	if err != nil {
		return fmt.Errorf("failed to list campuses: %w", err)
	}
	if len(campuses) == 0 {
		return fmt.Errorf("%w: no campus available for scheduling", ErrValidationFailed)
	}

	matches, err := brackets.NewSingleEliminationGenerator().Generate(participants)
	if err != nil {
		return err
	}
	_, err = s.persistMatches(ctx, exec, tournament, stage, matches, campuses)
	return err
}

// GenerateNextSwissRound pairs and persists the next round of a swiss
// stage from its finalized sessions. It returns the round number it
// generated, ErrStageNotComplete when the current round is still open,
// and ErrNoFurtherRounds when the stage has run its course.
func (s *scheduleService) GenerateNextSwissRound(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, stage *models.Stage, participants []int) (int, error) {
	sessions, err := s.sessionRepo.ListByStage(ctx, exec, stage.ID, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list swiss sessions: %w", err)
	}

	input := brackets.SwissInput{
		Participants: participants,
		Scores:       make(map[int]int),
		ScoreDiffs:   make(map[int]int),
		Played:       make(map[int]map[int]bool),
		HadBye:       make(map[int]bool),
	}

	scoring := tournament.Scoring.OrDefault()
	lastRound := 0
	for _, session := range sessions {
		if session.Round > lastRound {
			lastRound = session.Round
		}
		if session.Status == models.SessionVoid {
			continue
		}
		if session.IsBye() {
			input.HadBye[*session.P1ParticipantID] = true
			continue
		}
		if !session.Finalized || session.Result == nil {
			return 0, fmt.Errorf("%w: session %d of round %d", ErrStageNotComplete, session.ID, session.Round)
		}

		p1, p2 := *session.P1ParticipantID, *session.P2ParticipantID
		markPlayed(input.Played, p1, p2)
		input.ScoreDiffs[p1] += session.Result.P1Score - session.Result.P2Score
		input.ScoreDiffs[p2] += session.Result.P2Score - session.Result.P1Score
		switch session.Result.Outcome {
		case models.OutcomeP1Win:
			input.Scores[p1] += scoring.Win
			input.Scores[p2] += scoring.Loss
		case models.OutcomeP2Win:
			input.Scores[p2] += scoring.Win
			input.Scores[p1] += scoring.Loss
		case models.OutcomeDraw:
			input.Scores[p1] += scoring.Draw
			input.Scores[p2] += scoring.Draw
		}
	}

	totalRounds := SwissRoundCount(tournament, len(participants))
	if lastRound >= totalRounds {
		return 0, ErrNoFurtherRounds
	}
	input.Round = lastRound + 1

	campuses, err := s.campusRepo.List(ctx, exec)
	if err != nil {
		return 0, fmt.Errorf("failed to list campuses: %w", err)
	}
	if len(campuses) == 0 {
		return 0, fmt.Errorf("%w: no campus available for scheduling", ErrValidationFailed)
	}

	matches, err := brackets.SwissPairRound(input)
	if err != nil {
		return 0, err
	}
	if _, err := s.persistMatches(ctx, exec, tournament, stage, matches, campuses); err != nil {
		return 0, err
	}
	return input.Round, nil
}

// SwissRoundCount is the number of rounds a swiss stage runs: the
// configured count, or ceil(log2(n)) if the tournament does not set one.
func SwissRoundCount(tournament *models.Tournament, fieldSize int) int {
	if tournament.SwissRounds > 0 {
		return tournament.SwissRounds
	}
	if fieldSize < 2 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(fieldSize))))
}

func markPlayed(played map[int]map[int]bool, a, b int) {
	if played[a] == nil {
		played[a] = make(map[int]bool)
	}
	if played[b] == nil {
		played[b] = make(map[int]bool)
	}
	played[a][b] = true
	played[b][a] = true
}

// persistMatches stores generated matches as sessions, rotating campus
// assignment for an even spread, then links knockout sessions to the
// sessions their winners advance into. Bye matches are stored completed
// so nothing waits on them.
func (s *scheduleService) persistMatches(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournament *models.Tournament,
	stage *models.Stage,
	matches []*brackets.Match,
	campuses []*models.Campus,
) (map[string]int, error) {
	idsByUID := make(map[string]int, len(matches))

	for i, match := range matches {
		status := models.SessionScheduled
		if match.IsBye {
			status = models.SessionCompleted
		}
		uid := match.UID
		session := &models.Session{
			TournamentID:    tournament.ID,
			StageID:         stage.ID,
			Round:           match.Round,
			GroupIndex:      match.Group,
			P1ParticipantID: match.Participant1ID,
			P2ParticipantID: match.Participant2ID,
			CampusID:        campuses[i%len(campuses)].ID,
			StartTime:       sessionStartTime(tournament, match.Round),
			Status:          status,
			BracketUID:      &uid,
		}
		if err := s.sessionRepo.Create(ctx, exec, session); err != nil {
			return nil, fmt.Errorf("failed to create session %s: %w", uid, err)
		}
		idsByUID[uid] = session.ID
	}

	for _, match := range matches {
		targetID := idsByUID[match.UID]
		if match.SourceMatch1UID != nil {
			sourceID, ok := idsByUID[*match.SourceMatch1UID]
			if !ok {
				return nil, fmt.Errorf("%w: bracket source %s missing", ErrDataIntegrityViolation, *match.SourceMatch1UID)
			}
			if err := s.sessionRepo.UpdateNextSessionInfo(ctx, exec, sourceID, &targetID, intPtr(1)); err != nil {
				return nil, fmt.Errorf("failed to link session %d: %w", sourceID, err)
			}
		}
		if match.SourceMatch2UID != nil {
			sourceID, ok := idsByUID[*match.SourceMatch2UID]
			if !ok {
				return nil, fmt.Errorf("%w: bracket source %s missing", ErrDataIntegrityViolation, *match.SourceMatch2UID)
			}
			if err := s.sessionRepo.UpdateNextSessionInfo(ctx, exec, sourceID, &targetID, intPtr(2)); err != nil {
				return nil, fmt.Errorf("failed to link session %d: %w", sourceID, err)
			}
		}
	}

	s.logger.Info("schedule generated",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("stage_id", stage.ID),
		slog.Int("sessions", len(matches)))

	return idsByUID, nil
}

// sessionStartTime plans one round per day starting at the tournament
// start date.
func sessionStartTime(tournament *models.Tournament, round int) time.Time {
	return tournament.StartDate.AddDate(0, 0, round-1)
}

func intPtr(v int) *int { return &v }
