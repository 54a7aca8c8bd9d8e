package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/matchpoint-academy/tournament-engine/models"
)

var ErrSkillProfileNotFound = errors.New("skill profile not found")

type SkillProfileRepository interface {
	GetOrCreate(ctx context.Context, exec SQLExecutor, participantID int, skill string, initial float64) (*models.SkillProfile, error)
	Update(ctx context.Context, exec SQLExecutor, profile *models.SkillProfile) error
	ListByParticipant(ctx context.Context, exec SQLExecutor, participantID int) ([]*models.SkillProfile, error)
}

type postgresSkillProfileRepository struct {
	db *sql.DB
}

func NewPostgresSkillProfileRepository(db *sql.DB) SkillProfileRepository {
	return &postgresSkillProfileRepository{db: db}
}

func (r *postgresSkillProfileRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSkillProfileRepository) get(ctx context.Context, executor SQLExecutor, participantID int, skill string) (*models.SkillProfile, error) {
	query := `
		SELECT id, participant_id, skill, value, prev_value, updated_at
		FROM skill_profiles WHERE participant_id = $1 AND skill = $2`

	p := &models.SkillProfile{}
	err := executor.QueryRowContext(ctx, query, participantID, skill).Scan(
		&p.ID, &p.ParticipantID, &p.Skill, &p.Value, &p.PrevValue, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSkillProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresSkillProfileRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, participantID int, skill string, initial float64) (*models.SkillProfile, error) {
	executor := r.getExecutor(exec)

	profile, err := r.get(ctx, executor, participantID, skill)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ErrSkillProfileNotFound) {
		return nil, err
	}

	p := &models.SkillProfile{
		ParticipantID: participantID,
		Skill:         skill,
		Value:         models.ClampSkill(initial),
		PrevValue:     models.ClampSkill(initial),
		UpdatedAt:     time.Now(),
	}
	query := `
		INSERT INTO skill_profiles (participant_id, skill, value, prev_value, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (participant_id, skill) DO UPDATE SET participant_id = EXCLUDED.participant_id
		RETURNING id, value, prev_value, updated_at`

	err = executor.QueryRowContext(ctx, query,
		p.ParticipantID, p.Skill, p.Value, p.PrevValue, p.UpdatedAt,
	).Scan(&p.ID, &p.Value, &p.PrevValue, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create skill profile for participant %d skill %q: %w", participantID, skill, err)
	}
	return p, nil
}

func (r *postgresSkillProfileRepository) Update(ctx context.Context, exec SQLExecutor, profile *models.SkillProfile) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE skill_profiles SET value = $1, prev_value = $2, updated_at = NOW()
		WHERE id = $3`
	res, err := executor.ExecContext(ctx, query, profile.Value, profile.PrevValue, profile.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(res, ErrSkillProfileNotFound)
}

func (r *postgresSkillProfileRepository) ListByParticipant(ctx context.Context, exec SQLExecutor, participantID int) ([]*models.SkillProfile, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, participant_id, skill, value, prev_value, updated_at
		FROM skill_profiles WHERE participant_id = $1
		ORDER BY skill`

	rows, err := executor.QueryContext(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]*models.SkillProfile, 0)
	for rows.Next() {
		p := &models.SkillProfile{}
		if scanErr := rows.Scan(&p.ID, &p.ParticipantID, &p.Skill, &p.Value, &p.PrevValue, &p.UpdatedAt); scanErr != nil {
			return nil, scanErr
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
