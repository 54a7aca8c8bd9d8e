package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matchpoint-academy/tournament-engine/db"
	"github.com/matchpoint-academy/tournament-engine/events"
	"github.com/matchpoint-academy/tournament-engine/models"
	"github.com/matchpoint-academy/tournament-engine/repositories"
	"github.com/matchpoint-academy/tournament-engine/storage"
)

// New profiles start in the middle of the usable rating band.
const initialSkillValue = 60.0

const rewardWorkers = 4

// RewardService converts final placements into XP, credits, skill
// updates and badges. Each participant is one transaction: a failure
// rolls back that participant only, and a re-run skips everyone who
// already holds a RewardTransaction for the tournament.
type RewardService interface {
	Distribute(ctx context.Context, tournamentID int) (*DistributionReport, error)
	Transactions(ctx context.Context, actor Actor, tournamentID int) ([]*models.RewardTransaction, error)
}

// DistributionReport summarizes one distribution run.
type DistributionReport struct {
	TournamentID int   `json:"tournament_id"`
	Applied      []int `json:"applied"`
	Skipped      []int `json:"skipped"`
	Failed       []int `json:"failed"`
}

type rewardService struct {
	txRunner       db.TxRunner
	tournamentRepo repositories.TournamentRepository
	stageRepo      repositories.StageRepository
	sessionRepo    repositories.SessionRepository
	enrollmentRepo repositories.EnrollmentRepository
	rewardRepo     repositories.RewardTransactionRepository
	skillRepo      repositories.SkillProfileRepository
	userRepo       repositories.UserRepository
	authorizer     Authorizer
	publisher      events.Publisher
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewRewardService(
	txRunner db.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	stageRepo repositories.StageRepository,
	sessionRepo repositories.SessionRepository,
	enrollmentRepo repositories.EnrollmentRepository,
	rewardRepo repositories.RewardTransactionRepository,
	skillRepo repositories.SkillProfileRepository,
	userRepo repositories.UserRepository,
	authorizer Authorizer,
	publisher events.Publisher,
	uploader storage.FileUploader,
	logger *slog.Logger,
) RewardService {
	return &rewardService{
		txRunner:       txRunner,
		tournamentRepo: tournamentRepo,
		stageRepo:      stageRepo,
		sessionRepo:    sessionRepo,
		enrollmentRepo: enrollmentRepo,
		rewardRepo:     rewardRepo,
		skillRepo:      skillRepo,
		userRepo:       userRepo,
		authorizer:     authorizer,
		publisher:      publisher,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *rewardService) Distribute(ctx context.Context, tournamentID int) (*DistributionReport, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.Status != models.StatusCompleted {
		return nil, &PreconditionError{
			From:   string(tournament.Status),
			To:     string(models.StatusCompleted),
			Reason: "rewards are distributed only for completed tournaments",
		}
	}
	if err := tournament.RewardPolicy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRewardPolicyInvalid, err)
	}

	placements, err := s.finalPlacements(ctx, tournament)
	if err != nil {
		return nil, err
	}

	report := &DistributionReport{TournamentID: tournamentID}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rewardWorkers)
	for _, placement := range placements {
		placement := placement
		g.Go(func() error {
			outcome, applyErr := s.applyParticipantReward(gctx, tournament, placement, len(placements))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case applyErr != nil:
				// One participant's failure never aborts the rest.
				s.logger.Error("reward application failed",
					slog.Int("tournament_id", tournamentID),
					slog.Int("participant_id", placement.ParticipantID),
					slog.Any("error", applyErr))
				report.Failed = append(report.Failed, placement.ParticipantID)
			case outcome == nil:
				report.Skipped = append(report.Skipped, placement.ParticipantID)
			default:
				report.Applied = append(report.Applied, placement.ParticipantID)
				s.publisher.Publish(events.New(events.TypeRewardDistributed, tournamentID, events.RewardDistributedPayload{
					ParticipantID: outcome.ParticipantID,
					Placement:     outcome.Placement,
					XPDelta:       outcome.XPDelta,
					CreditsDelta:  outcome.CreditsDelta,
				}))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("reward distribution finished",
		slog.Int("tournament_id", tournamentID),
		slog.Int("applied", len(report.Applied)),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("failed", len(report.Failed)))
	return report, nil
}

// applyParticipantReward runs one participant's reward as a single
// transaction under the tournament's advisory lock, so distribution
// never interleaves with a status transition on the same tournament.
// Returns the stored transaction, or nil when a reward for this
// participant and tournament already exists.
func (s *rewardService) applyParticipantReward(ctx context.Context, tournament *models.Tournament, placement models.Placement, totalParticipants int) (*models.RewardTransaction, error) {
	var txn *models.RewardTransaction

	err := s.txRunner.WithinTx(ctx, int64(tournament.ID), func(tx *sql.Tx) error {
		exists, txErr := s.rewardRepo.Exists(ctx, tx, placement.ParticipantID, tournament.ID)
		if txErr != nil {
			return txErr
		}
		if exists {
			return nil
		}

		policy := tournament.RewardPolicy
		bucket := policy.BucketFor(placement.Position)

		skillDeltas, txErr := s.applySkillProgression(ctx, tx, policy, placement, totalParticipants)
		if txErr != nil {
			return txErr
		}

		if bucket.XP != 0 {
			if txErr = s.userRepo.AddXP(ctx, tx, placement.ParticipantID, bucket.XP); txErr != nil {
				return txErr
			}
		}
		if bucket.Credits != 0 {
			if txErr = s.userRepo.AdjustCredits(ctx, tx, placement.ParticipantID, bucket.Credits); txErr != nil {
				return txErr
			}
		}

		record := &models.RewardTransaction{
			ParticipantID: placement.ParticipantID,
			TournamentID:  tournament.ID,
			Placement:     placement.Position,
			XPDelta:       bucket.XP,
			CreditsDelta:  bucket.Credits,
			SkillDeltas:   skillDeltas,
			Badges:        s.badgesFor(placement, totalParticipants),
		}
		if txErr = s.rewardRepo.Create(ctx, tx, record); txErr != nil {
			if errors.Is(txErr, repositories.ErrRewardAlreadyApplied) {
				return nil
			}
			return txErr
		}
		txn = record
		return nil
	})
	return txn, err
}

// applySkillProgression runs the EMA update for every configured skill,
// dominant skills strictly before supporting ones. The recorded delta
// is the post-clamp movement actually applied to the profile.
func (s *rewardService) applySkillProgression(ctx context.Context, tx *sql.Tx, policy models.RewardPolicy, placement models.Placement, totalParticipants int) (map[string]float64, error) {
	deltas := make(map[string]float64, len(policy.DominantSkills)+len(policy.SupportingSkills))
	factor := placementFactor(placement.Position, totalParticipants)

	apply := func(skill string, weight float64) error {
		profile, err := s.skillRepo.GetOrCreate(ctx, tx, placement.ParticipantID, skill, initialSkillValue)
		if err != nil {
			return fmt.Errorf("skill %s: %w", skill, err)
		}
		observed := models.ClampSkill(profile.Value + weight*factor)
		deltas[skill] = profile.ApplyEMA(observed, policy.Alpha)
		if err := s.skillRepo.Update(ctx, tx, profile); err != nil {
			return fmt.Errorf("skill %s: %w", skill, err)
		}
		return nil
	}

	for _, skill := range policy.DominantSkills {
		if err := apply(skill, policy.DominantDelta); err != nil {
			return nil, err
		}
	}
	for _, skill := range policy.SupportingSkills {
		if err := apply(skill, policy.SupportingDelta); err != nil {
			return nil, err
		}
	}
	return deltas, nil
}

// placementFactor maps a placement onto (0, 1]: winners observe the
// full configured delta, the last place a sliver of it, losses (a
// negative configured delta) scale the same way.
func placementFactor(position, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return float64(total-position+1) / float64(total)
}

func (s *rewardService) badgesFor(placement models.Placement, totalParticipants int) []models.Badge {
	if placement.Position != 1 {
		return nil
	}
	badge := models.Badge{
		Code: models.BadgeChampion,
		Metadata: models.BadgeMetadata{
			Placement:         placement.Position,
			TotalParticipants: totalParticipants,
		},
	}
	if s.uploader != nil {
		if url := s.uploader.GetPublicURL("badges/" + models.BadgeChampion + ".png"); url != "" {
			badge.IconURL = &url
		}
	}
	return []models.Badge{badge}
}

// finalPlacements derives the tournament's final order from its last
// stage: the bracket decides knockout formats, the standings table
// everything else.
func (s *rewardService) finalPlacements(ctx context.Context, tournament *models.Tournament) ([]models.Placement, error) {
	stages, err := s.stageRepo.ListByTournament(ctx, nil, tournament.ID)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("%w: tournament %d has no stages", ErrDataIntegrityViolation, tournament.ID)
	}
	final := stages[0]
	for _, stage := range stages {
		if stage.Index > final.Index {
			final = stage
		}
	}

	sessions, err := s.sessionRepo.ListByStage(ctx, nil, final.ID, nil)
	if err != nil {
		return nil, err
	}

	enrollments, err := s.enrollmentRepo.ListByTournament(ctx, nil, tournament.ID, true)
	if err != nil {
		return nil, err
	}
	participants := make([]int, 0, len(enrollments))
	for _, e := range enrollments {
		participants = append(participants, e.ParticipantID)
	}

	if final.Format == models.FormatKnockout {
		placements, err := KnockoutPlacements(sessions)
		if err != nil {
			return nil, err
		}
		// Participants eliminated before the bracket still place, in
		// their group-stage standings order.
		return s.appendGroupEliminated(ctx, tournament, stages, final, placements, participants)
	}

	standings := ComputeStandings(final, sessions, participants, tournament.Scoring)
	if standings.Incomplete {
		return nil, ErrStageNotComplete
	}
	placements := make([]models.Placement, len(standings.Entries))
	for i, entry := range standings.Entries {
		placements[i] = models.Placement{
			ParticipantID: entry.ParticipantID,
			Position:      entry.Rank,
			Score:         entry.ScoreDiff(),
		}
	}
	return placements, nil
}

func (s *rewardService) appendGroupEliminated(
	ctx context.Context,
	tournament *models.Tournament,
	stages []*models.Stage,
	final *models.Stage,
	placements []models.Placement,
	participants []int,
) ([]models.Placement, error) {
	placed := make(map[int]bool, len(placements))
	for _, p := range placements {
		placed[p.ParticipantID] = true
	}
	remaining := make([]int, 0)
	for _, id := range participants {
		if !placed[id] {
			remaining = append(remaining, id)
		}
	}
	if len(remaining) == 0 {
		return placements, nil
	}

	var previous *models.Stage
	for _, stage := range stages {
		if stage.Index == final.Index-1 {
			previous = stage
			break
		}
	}
	if previous == nil {
		return nil, fmt.Errorf("%w: %d enrolled participants missing from the bracket of tournament %d",
			ErrDataIntegrityViolation, len(remaining), tournament.ID)
	}

	groupSessions, err := s.sessionRepo.ListByStage(ctx, nil, previous.ID, nil)
	if err != nil {
		return nil, err
	}
	groupStandings := ComputeStandings(previous, groupSessions, participants, tournament.Scoring)
	if groupStandings.Incomplete {
		return nil, ErrStageNotComplete
	}
	for _, entry := range groupStandings.Entries {
		if placed[entry.ParticipantID] {
			continue
		}
		placements = append(placements, models.Placement{
			ParticipantID: entry.ParticipantID,
			Position:      len(placements) + 1,
			Score:         entry.ScoreDiff(),
		})
	}
	return placements, nil
}

func (s *rewardService) Transactions(ctx context.Context, actor Actor, tournamentID int) ([]*models.RewardTransaction, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if !s.authorizer.Can(actor, ActionViewRewardAudit, tournament) {
		return nil, ErrForbiddenOperation
	}
	return s.rewardRepo.ListByTournament(ctx, nil, tournamentID)
}
