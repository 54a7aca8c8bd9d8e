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
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrTournamentInUse        = errors.New("tournament is referenced by other records")
	ErrInstructorInvalid      = errors.New("invalid instructor reference")
)

type ListTournamentsFilter struct {
	Status       *models.TournamentStatus
	Format       *models.TournamentFormat
	InstructorID *int
	Limit        int
	Offset       int
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentStatus) error
	UpdateInstructor(ctx context.Context, exec SQLExecutor, id int, instructorID *int) error
	UpdateLogoKey(ctx context.Context, id int, logoKey *string) error
	ListWithExpiredDeadline(ctx context.Context, exec SQLExecutor) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, discipline, format, age_category, capacity, entry_cost,
	group_size, swiss_rounds, status, instructor_id, scoring, reward_policy,
	enrollment_deadline, start_date, created_at, logo_key`

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)

	scoring, err := json.Marshal(t.Scoring)
	if err != nil {
		return fmt.Errorf("marshal scoring: %w", err)
	}
	policy, err := json.Marshal(t.RewardPolicy)
	if err != nil {
		return fmt.Errorf("marshal reward policy snapshot: %w", err)
	}

	query := `
		INSERT INTO tournaments (
			name, discipline, format, age_category, capacity, entry_cost,
			group_size, swiss_rounds, status, instructor_id, scoring, reward_policy,
			enrollment_deadline, start_date, logo_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at`

	err = executor.QueryRowContext(ctx, query,
		t.Name, t.Discipline, t.Format, t.AgeCategory, t.Capacity, t.EntryCost,
		t.GroupSize, t.SwissRounds, t.Status, t.InstructorID, scoring, policy,
		t.EnrollmentDeadline, t.StartDate, t.LogoKey,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) scanTournament(row interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	t := &models.Tournament{}
	var scoring, policy []byte
	err := row.Scan(
		&t.ID, &t.Name, &t.Discipline, &t.Format, &t.AgeCategory, &t.Capacity, &t.EntryCost,
		&t.GroupSize, &t.SwissRounds, &t.Status, &t.InstructorID, &scoring, &policy,
		&t.EnrollmentDeadline, &t.StartDate, &t.CreatedAt, &t.LogoKey,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if len(scoring) > 0 {
		if err := json.Unmarshal(scoring, &t.Scoring); err != nil {
			return nil, fmt.Errorf("unmarshal scoring for tournament %d: %w", t.ID, err)
		}
	}
	if len(policy) > 0 {
		if err := json.Unmarshal(policy, &t.RewardPolicy); err != nil {
			return nil, fmt.Errorf("unmarshal reward policy for tournament %d: %w", t.ID, err)
		}
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return r.scanTournament(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Format != nil {
		query += fmt.Sprintf(" AND format = $%d", argID)
		args = append(args, *filter.Format)
		argID++
	}
	if filter.InstructorID != nil {
		query += fmt.Sprintf(" AND instructor_id = $%d", argID)
		args = append(args, *filter.InstructorID)
		argID++
	}

	query += " ORDER BY start_date DESC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, scanErr := r.scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, *t)
	}
	return tournaments, rows.Err()
}

// UpdateStatus moves the row from one status to another. The WHERE on
// the current status makes a lost-update visible as a zero-row result.
func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1 WHERE id = $2 AND status = $3`
	result, err := executor.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateInstructor(ctx context.Context, exec SQLExecutor, id int, instructorID *int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET instructor_id = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, instructorID, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	query := `UPDATE tournaments SET logo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, logoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament logo key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// ListWithExpiredDeadline returns tournaments still open for enrollment
// whose deadline has passed, for the auto-close scheduler.
func (r *postgresTournamentRepository) ListWithExpiredDeadline(ctx context.Context, exec SQLExecutor) ([]*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + tournamentColumns + `
		FROM tournaments
		WHERE status = $1 AND enrollment_deadline <= NOW()`

	rows, err := executor.QueryContext(ctx, query, models.StatusReadyForEnrollment)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments with expired deadline: %w", err)
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		t, scanErr := r.scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "tournaments_name_key" {
				return ErrTournamentNameConflict
			}
		case "23503":
			if pqErr.Constraint == "tournaments_instructor_id_fkey" {
				return ErrInstructorInvalid
			}
			return ErrTournamentInUse
		}
	}
	return err
}
