package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/matchpoint-academy/tournament-engine/models"
)

var (
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrEnrollmentConflict = errors.New("participant already has an active enrollment for this tournament")
)

type EnrollmentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, e *models.Enrollment) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Enrollment, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, activeOnly bool) ([]*models.Enrollment, error)
	CountActive(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.EnrollmentStatus) error
}

type postgresEnrollmentRepository struct {
	db *sql.DB
}

func NewPostgresEnrollmentRepository(db *sql.DB) EnrollmentRepository {
	return &postgresEnrollmentRepository{db: db}
}

func (r *postgresEnrollmentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresEnrollmentRepository) Create(ctx context.Context, exec SQLExecutor, e *models.Enrollment) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO enrollments (participant_id, tournament_id, credits_charged, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, enrolled_at`

	err := executor.QueryRowContext(ctx, query,
		e.ParticipantID, e.TournamentID, e.CreditsCharged, e.Status,
	).Scan(&e.ID, &e.EnrolledAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		// Partial unique index on (participant_id, tournament_id)
		// WHERE status <> 'withdrawn'.
		return ErrEnrollmentConflict
	}
	return err
}

func (r *postgresEnrollmentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Enrollment, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, participant_id, tournament_id, credits_charged, status, enrolled_at
		FROM enrollments WHERE id = $1`

	e := &models.Enrollment{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.ParticipantID, &e.TournamentID, &e.CreditsCharged, &e.Status, &e.EnrolledAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, err
	}
	return e, nil
}

// ListByTournament returns enrollments in enrollment order, which is
// also the seeding order the schedule generator uses.
func (r *postgresEnrollmentRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, activeOnly bool) ([]*models.Enrollment, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, participant_id, tournament_id, credits_charged, status, enrolled_at
		FROM enrollments WHERE tournament_id = $1`
	if activeOnly {
		query += ` AND status <> 'withdrawn'`
	}
	query += ` ORDER BY id`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	enrollments := make([]*models.Enrollment, 0)
	for rows.Next() {
		e := &models.Enrollment{}
		if scanErr := rows.Scan(
			&e.ID, &e.ParticipantID, &e.TournamentID, &e.CreditsCharged, &e.Status, &e.EnrolledAt,
		); scanErr != nil {
			return nil, scanErr
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

func (r *postgresEnrollmentRepository) CountActive(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	query := `SELECT COUNT(*) FROM enrollments WHERE tournament_id = $1 AND status <> 'withdrawn'`
	var count int
	err := executor.QueryRowContext(ctx, query, tournamentID).Scan(&count)
	return count, err
}

func (r *postgresEnrollmentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.EnrollmentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE enrollments SET status = $1 WHERE id = $2`
	res, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(res, ErrEnrollmentNotFound)
}
