package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/matchpoint-academy/tournament-engine/models"
)

var (
	ErrSessionNotFound           = errors.New("session not found")
	ErrSessionAlreadyFinalized   = errors.New("session is already finalized")
	ErrSessionParticipantInvalid = errors.New("session participant conflict or invalid")
)

type SessionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, session *models.Session) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Session, error)
	ListByStage(ctx context.Context, exec SQLExecutor, stageID int, round *int) ([]*models.Session, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Session, error)
	Finalize(ctx context.Context, exec SQLExecutor, id int, result *models.MatchResult) error
	UpdateNextSessionInfo(ctx context.Context, exec SQLExecutor, id int, nextSessionID, winnerToSlot *int) error
	UpdateParticipants(ctx context.Context, exec SQLExecutor, id int, p1, p2 *int) error
	VoidByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error)
}

type postgresSessionRepository struct {
	db *sql.DB
}

func NewPostgresSessionRepository(db *sql.DB) SessionRepository {
	return &postgresSessionRepository{db: db}
}

func (r *postgresSessionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const sessionColumns = `
	id, tournament_id, stage_id, round, group_index, p1_participant_id,
	p2_participant_id, campus_id, start_time, status, finalized, result,
	bracket_uid, next_session_id, winner_to_slot, created_at`

func (r *postgresSessionRepository) Create(ctx context.Context, exec SQLExecutor, s *models.Session) error {
	executor := r.getExecutor(exec)

	query := `
		INSERT INTO sessions (
			tournament_id, stage_id, round, group_index, p1_participant_id,
			p2_participant_id, campus_id, start_time, status, bracket_uid
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		s.TournamentID, s.StageID, s.Round, s.GroupIndex, s.P1ParticipantID,
		s.P2ParticipantID, s.CampusID, s.StartTime, s.Status, s.BracketUID,
	).Scan(&s.ID, &s.CreatedAt)

	return r.handleSessionError(err)
}

func (r *postgresSessionRepository) scanSession(row interface{ Scan(...interface{}) error }) (*models.Session, error) {
	s := &models.Session{}
	var result []byte
	err := row.Scan(
		&s.ID, &s.TournamentID, &s.StageID, &s.Round, &s.GroupIndex, &s.P1ParticipantID,
		&s.P2ParticipantID, &s.CampusID, &s.StartTime, &s.Status, &s.Finalized, &result,
		&s.BracketUID, &s.NextSessionID, &s.WinnerToSlot, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if len(result) > 0 {
		s.Result = &models.MatchResult{}
		if err := json.Unmarshal(result, s.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result for session %d: %w", s.ID, err)
		}
	}
	return s, nil
}

func (r *postgresSessionRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Session, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + sessionColumns + ` FROM sessions WHERE id = $1`
	return r.scanSession(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresSessionRepository) ListByStage(ctx context.Context, exec SQLExecutor, stageID int, round *int) ([]*models.Session, error) {
	executor := r.getExecutor(exec)

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + sessionColumns + ` FROM sessions WHERE stage_id = $1`)
	args := []interface{}{stageID}
	if round != nil {
		queryBuilder.WriteString(" AND round = $" + strconv.Itoa(len(args)+1))
		args = append(args, *round)
	}
	queryBuilder.WriteString(" ORDER BY round, group_index NULLS FIRST, id")

	return r.querySessions(ctx, executor, queryBuilder.String(), args...)
}

func (r *postgresSessionRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Session, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + sessionColumns + ` FROM sessions WHERE tournament_id = $1 ORDER BY stage_id, round, id`
	return r.querySessions(ctx, executor, query, tournamentID)
}

func (r *postgresSessionRepository) querySessions(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) ([]*models.Session, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]*models.Session, 0)
	for rows.Next() {
		s, scanErr := r.scanSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Finalize stores the result and flips the finalized flag. The WHERE on
// finalized = FALSE makes a duplicate finalization a zero-row update, so
// first write wins and the caller can branch on ErrSessionAlreadyFinalized.
func (r *postgresSessionRepository) Finalize(ctx context.Context, exec SQLExecutor, id int, result *models.MatchResult) error {
	executor := r.getExecutor(exec)

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result for session %d: %w", id, err)
	}

	query := `
		UPDATE sessions SET result = $1, finalized = TRUE, status = $2
		WHERE id = $3 AND finalized = FALSE`
	res, err := executor.ExecContext(ctx, query, payload, models.SessionCompleted, id)
	if err != nil {
		return r.handleSessionError(err)
	}
	return checkAffectedRows(res, ErrSessionAlreadyFinalized)
}

func (r *postgresSessionRepository) UpdateNextSessionInfo(ctx context.Context, exec SQLExecutor, id int, nextSessionID, winnerToSlot *int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE sessions SET next_session_id = $1, winner_to_slot = $2 WHERE id = $3`
	res, err := executor.ExecContext(ctx, query, nextSessionID, winnerToSlot, id)
	if err != nil {
		return r.handleSessionError(err)
	}
	return checkAffectedRows(res, ErrSessionNotFound)
}

// UpdateParticipants fills bracket slots as winners advance. Finalized
// sessions are immutable, hence the guard.
func (r *postgresSessionRepository) UpdateParticipants(ctx context.Context, exec SQLExecutor, id int, p1, p2 *int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE sessions SET
			p1_participant_id = COALESCE($1, p1_participant_id),
			p2_participant_id = COALESCE($2, p2_participant_id)
		WHERE id = $3 AND finalized = FALSE`
	res, err := executor.ExecContext(ctx, query, p1, p2, id)
	if err != nil {
		return r.handleSessionError(err)
	}
	return checkAffectedRows(res, ErrSessionNotFound)
}

// VoidByTournament marks all unfinalized sessions void. Finalized
// results stay untouched for auditability.
func (r *postgresSessionRepository) VoidByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error) {
	executor := r.getExecutor(exec)
	query := `UPDATE sessions SET status = $1 WHERE tournament_id = $2 AND finalized = FALSE`
	res, err := executor.ExecContext(ctx, query, models.SessionVoid, tournamentID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *postgresSessionRepository) handleSessionError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		return ErrSessionParticipantInvalid
	}
	return err
}
