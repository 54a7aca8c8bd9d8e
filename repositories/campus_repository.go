package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/matchpoint-academy/tournament-engine/models"
)

var (
	ErrCampusNotFound     = errors.New("campus not found")
	ErrCampusNameConflict = errors.New("campus with this name already exists")
)

type CampusRepository interface {
	Create(ctx context.Context, exec SQLExecutor, campus *models.Campus) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Campus, error)
	List(ctx context.Context, exec SQLExecutor) ([]*models.Campus, error)
}

type postgresCampusRepository struct {
	db *sql.DB
}

func NewPostgresCampusRepository(db *sql.DB) CampusRepository {
	return &postgresCampusRepository{db: db}
}

func (r *postgresCampusRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresCampusRepository) Create(ctx context.Context, exec SQLExecutor, campus *models.Campus) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO campuses (name, city, courts)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query, campus.Name, campus.City, campus.Courts).
		Scan(&campus.ID, &campus.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrCampusNameConflict
	}
	return err
}

func (r *postgresCampusRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Campus, error) {
	executor := r.getExecutor(exec)
	query := `SELECT id, name, city, courts, created_at FROM campuses WHERE id = $1`

	campus := &models.Campus{}
	err := executor.QueryRowContext(ctx, query, id).
		Scan(&campus.ID, &campus.Name, &campus.City, &campus.Courts, &campus.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCampusNotFound
	}
	if err != nil {
		return nil, err
	}
	return campus, nil
}

func (r *postgresCampusRepository) List(ctx context.Context, exec SQLExecutor) ([]*models.Campus, error) {
	executor := r.getExecutor(exec)
	query := `SELECT id, name, city, courts, created_at FROM campuses ORDER BY name`

	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campuses := make([]*models.Campus, 0)
	for rows.Next() {
		campus := &models.Campus{}
		if scanErr := rows.Scan(&campus.ID, &campus.Name, &campus.City, &campus.Courts, &campus.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		campuses = append(campuses, campus)
	}
	return campuses, rows.Err()
}
