package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/matchpoint-academy/tournament-engine/models"
)

var ErrStageNotFound = errors.New("stage not found")

type StageRepository interface {
	Create(ctx context.Context, exec SQLExecutor, stage *models.Stage) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Stage, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Stage, error)
}

type postgresStageRepository struct {
	db *sql.DB
}

func NewPostgresStageRepository(db *sql.DB) StageRepository {
	return &postgresStageRepository{db: db}
}

func (r *postgresStageRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStageRepository) Create(ctx context.Context, exec SQLExecutor, stage *models.Stage) error {
	executor := r.getExecutor(exec)

	advancement, err := stage.AdvancementJSON()
	if err != nil {
		return fmt.Errorf("marshal advancement rule: %w", err)
	}

	query := `
		INSERT INTO stages (tournament_id, stage_index, format, advancement)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return executor.QueryRowContext(ctx, query,
		stage.TournamentID, stage.Index, stage.Format, advancement,
	).Scan(&stage.ID, &stage.CreatedAt)
}

func (r *postgresStageRepository) scanStage(row interface{ Scan(...interface{}) error }) (*models.Stage, error) {
	s := &models.Stage{}
	var advancement []byte
	err := row.Scan(&s.ID, &s.TournamentID, &s.Index, &s.Format, &advancement, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStageNotFound
		}
		return nil, err
	}
	if err := s.SetAdvancementJSON(advancement); err != nil {
		return nil, fmt.Errorf("unmarshal advancement rule for stage %d: %w", s.ID, err)
	}
	return s, nil
}

func (r *postgresStageRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Stage, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, stage_index, format, advancement, created_at
		FROM stages WHERE id = $1`
	return r.scanStage(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresStageRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Stage, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, stage_index, format, advancement, created_at
		FROM stages WHERE tournament_id = $1
		ORDER BY stage_index`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stages := make([]*models.Stage, 0)
	for rows.Next() {
		s, scanErr := r.scanStage(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}
