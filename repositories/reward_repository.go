package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/matchpoint-academy/tournament-engine/models"
)

var (
	ErrRewardTransactionNotFound = errors.New("reward transaction not found")
	ErrRewardAlreadyApplied      = errors.New("reward transaction already exists for this participant and tournament")
)

type RewardTransactionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, txn *models.RewardTransaction) error
	Exists(ctx context.Context, exec SQLExecutor, participantID, tournamentID int) (bool, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.RewardTransaction, error)
}

type postgresRewardTransactionRepository struct {
	db *sql.DB
}

func NewPostgresRewardTransactionRepository(db *sql.DB) RewardTransactionRepository {
	return &postgresRewardTransactionRepository{db: db}
}

func (r *postgresRewardTransactionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts the audit record. The unique constraint on
// (participant_id, tournament_id) is the idempotency key: a duplicate
// insert surfaces as ErrRewardAlreadyApplied and must not abort the
// caller's batch.
func (r *postgresRewardTransactionRepository) Create(ctx context.Context, exec SQLExecutor, txn *models.RewardTransaction) error {
	executor := r.getExecutor(exec)

	skillDeltas, err := json.Marshal(txn.SkillDeltas)
	if err != nil {
		return fmt.Errorf("marshal skill deltas: %w", err)
	}
	badges, err := json.Marshal(txn.Badges)
	if err != nil {
		return fmt.Errorf("marshal badges: %w", err)
	}

	query := `
		INSERT INTO reward_transactions
			(participant_id, tournament_id, placement, xp_delta, credits_delta, skill_deltas, badges)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err = executor.QueryRowContext(ctx, query,
		txn.ParticipantID, txn.TournamentID, txn.Placement, txn.XPDelta, txn.CreditsDelta, skillDeltas, badges,
	).Scan(&txn.ID, &txn.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrRewardAlreadyApplied
	}
	return err
}

func (r *postgresRewardTransactionRepository) Exists(ctx context.Context, exec SQLExecutor, participantID, tournamentID int) (bool, error) {
	executor := r.getExecutor(exec)
	query := `SELECT EXISTS(SELECT 1 FROM reward_transactions WHERE participant_id = $1 AND tournament_id = $2)`
	var exists bool
	err := executor.QueryRowContext(ctx, query, participantID, tournamentID).Scan(&exists)
	return exists, err
}

func (r *postgresRewardTransactionRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.RewardTransaction, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, participant_id, tournament_id, placement, xp_delta, credits_delta, skill_deltas, badges, created_at
		FROM reward_transactions WHERE tournament_id = $1
		ORDER BY placement, participant_id`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := make([]*models.RewardTransaction, 0)
	for rows.Next() {
		txn := &models.RewardTransaction{}
		var skillDeltas, badges []byte
		if scanErr := rows.Scan(
			&txn.ID, &txn.ParticipantID, &txn.TournamentID, &txn.Placement,
			&txn.XPDelta, &txn.CreditsDelta, &skillDeltas, &badges, &txn.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		if len(skillDeltas) > 0 {
			if err := json.Unmarshal(skillDeltas, &txn.SkillDeltas); err != nil {
				return nil, fmt.Errorf("unmarshal skill deltas for transaction %d: %w", txn.ID, err)
			}
		}
		if len(badges) > 0 {
			if err := json.Unmarshal(badges, &txn.Badges); err != nil {
				return nil, fmt.Errorf("unmarshal badges for transaction %d: %w", txn.ID, err)
			}
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}
