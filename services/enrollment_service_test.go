package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpoint-academy/tournament-engine/models"
	"github.com/matchpoint-academy/tournament-engine/repositories"
)

// fakeTxRunner serializes callbacks the way the advisory lock does in
// production, without a database, and records the lock keys it saw.
type fakeTxRunner struct {
	mu   sync.Mutex
	keys []int64
}

func (r *fakeTxRunner) WithinTx(_ context.Context, lockKey int64, fn func(tx *sql.Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, lockKey)
	return fn(nil)
}

type fakeTournamentRepo struct {
	mu          sync.Mutex
	tournaments map[int]*models.Tournament
}

func (r *fakeTournamentRepo) Create(context.Context, repositories.SQLExecutor, *models.Tournament) error {
	panic("not used")
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTournamentRepo) List(context.Context, repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	panic("not used")
}

func (r *fakeTournamentRepo) UpdateStatus(context.Context, repositories.SQLExecutor, int, models.TournamentStatus, models.TournamentStatus) error {
	panic("not used")
}

func (r *fakeTournamentRepo) UpdateInstructor(context.Context, repositories.SQLExecutor, int, *int) error {
	panic("not used")
}

func (r *fakeTournamentRepo) UpdateLogoKey(context.Context, int, *string) error {
	panic("not used")
}

func (r *fakeTournamentRepo) ListWithExpiredDeadline(context.Context, repositories.SQLExecutor) ([]*models.Tournament, error) {
	panic("not used")
}

type fakeEnrollmentRepo struct {
	mu          sync.Mutex
	nextID      int
	enrollments map[int]*models.Enrollment
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{nextID: 1, enrollments: make(map[int]*models.Enrollment)}
}

func (r *fakeEnrollmentRepo) Create(_ context.Context, _ repositories.SQLExecutor, e *models.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.enrollments {
		if existing.ParticipantID == e.ParticipantID && existing.TournamentID == e.TournamentID && existing.Active() {
			return repositories.ErrEnrollmentConflict
		}
	}
	e.ID = r.nextID
	e.EnrolledAt = time.Now()
	r.nextID++
	copied := *e
	r.enrollments[e.ID] = &copied
	return nil
}

func (r *fakeEnrollmentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[id]
	if !ok {
		return nil, repositories.ErrEnrollmentNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *fakeEnrollmentRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, activeOnly bool) ([]*models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Enrollment, 0)
	for _, e := range r.enrollments {
		if e.TournamentID != tournamentID {
			continue
		}
		if activeOnly && !e.Active() {
			continue
		}
		copied := *e
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeEnrollmentRepo) CountActive(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.enrollments {
		if e.TournamentID == tournamentID && e.Active() {
			count++
		}
	}
	return count, nil
}

func (r *fakeEnrollmentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.EnrollmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[id]
	if !ok {
		return repositories.ErrEnrollmentNotFound
	}
	e.Status = status
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[int]*models.User
}

func (r *fakeUserRepo) Create(context.Context, *models.User) error { panic("not used") }

func (r *fakeUserRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(context.Context, string) (*models.User, error) {
	panic("not used")
}

func (r *fakeUserRepo) AdjustCredits(_ context.Context, _ repositories.SQLExecutor, id int, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	if u.Credits+delta < 0 {
		return repositories.ErrBalanceTooLow
	}
	u.Credits += delta
	return nil
}

func (r *fakeUserRepo) AddXP(_ context.Context, _ repositories.SQLExecutor, id int, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.XP += delta
	return nil
}

func licensed(id int, credits int) *models.User {
	license := "LIC-0042"
	return &models.User{
		ID:          id,
		Role:        models.RoleParticipant,
		AgeCategory: models.AgeOpen,
		LicenseID:   &license,
		Credits:     credits,
	}
}

type enrollmentFixture struct {
	service     EnrollmentService
	tournaments *fakeTournamentRepo
	enrollments *fakeEnrollmentRepo
	users       *fakeUserRepo
}

func newEnrollmentFixture(tournament *models.Tournament, users ...*models.User) *enrollmentFixture {
	tournamentRepo := &fakeTournamentRepo{tournaments: map[int]*models.Tournament{tournament.ID: tournament}}
	enrollmentRepo := newFakeEnrollmentRepo()
	userRepo := &fakeUserRepo{users: make(map[int]*models.User)}
	for _, u := range users {
		userRepo.users[u.ID] = u
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewEnrollmentService(&fakeTxRunner{}, tournamentRepo, enrollmentRepo, userRepo, NewRoleAuthorizer(), logger)
	return &enrollmentFixture{
		service:     service,
		tournaments: tournamentRepo,
		enrollments: enrollmentRepo,
		users:       userRepo,
	}
}

func openTournament(capacity, entryCost int) *models.Tournament {
	return &models.Tournament{
		ID:                 1,
		Name:               "Autumn Cup",
		Format:             models.FormatRoundRobin,
		AgeCategory:        models.AgeOpen,
		Capacity:           capacity,
		EntryCost:          entryCost,
		Status:             models.StatusReadyForEnrollment,
		EnrollmentDeadline: time.Now().Add(time.Hour),
		StartDate:          time.Now().Add(24 * time.Hour),
	}
}

func TestEnrollChargesEntryCost(t *testing.T) {
	fx := newEnrollmentFixture(openTournament(4, 30), licensed(10, 100))

	enrollment, err := fx.service.Enroll(context.Background(), Actor{UserID: 10, Role: models.RoleParticipant}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 30, enrollment.CreditsCharged)
	assert.Equal(t, models.EnrollmentConfirmed, enrollment.Status)
	assert.Equal(t, 70, fx.users.users[10].Credits)
}

func TestEnrollRejectsInsufficientCredits(t *testing.T) {
	fx := newEnrollmentFixture(openTournament(4, 50), licensed(10, 20))

	_, err := fx.service.Enroll(context.Background(), Actor{UserID: 10, Role: models.RoleParticipant}, 1, 10)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.Equal(t, 20, fx.users.users[10].Credits, "balance untouched on rejection")
}

func TestEnrollRejectsWhenNotOpen(t *testing.T) {
	tournament := openTournament(4, 0)
	tournament.Status = models.StatusOngoing
	fx := newEnrollmentFixture(tournament, licensed(10, 0))

	_, err := fx.service.Enroll(context.Background(), Actor{UserID: 10, Role: models.RoleParticipant}, 1, 10)
	assert.ErrorIs(t, err, ErrEnrollmentNotOpen)

	tournament = openTournament(4, 0)
	tournament.EnrollmentDeadline = time.Now().Add(-time.Minute)
	fx = newEnrollmentFixture(tournament, licensed(10, 0))

	_, err = fx.service.Enroll(context.Background(), Actor{UserID: 10, Role: models.RoleParticipant}, 1, 10)
	assert.ErrorIs(t, err, ErrEnrollmentNotOpen)
}

func TestEnrollEligibility(t *testing.T) {
	tournament := openTournament(4, 0)
	tournament.AgeCategory = models.AgeU14

	wrongAge := licensed(10, 0)
	wrongAge.AgeCategory = models.AgeU18
	unlicensed := licensed(11, 0)
	unlicensed.LicenseID = nil
	unlicensed.AgeCategory = models.AgeU14

	fx := newEnrollmentFixture(tournament, wrongAge, unlicensed)

	_, err := fx.service.Enroll(context.Background(), Actor{UserID: 10, Role: models.RoleParticipant}, 1, 10)
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = fx.service.Enroll(context.Background(), Actor{UserID: 11, Role: models.RoleParticipant}, 1, 11)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestEnrollOnlySelfUnlessAdmin(t *testing.T) {
	fx := newEnrollmentFixture(openTournament(4, 0), licensed(10, 0), licensed(11, 0))

	_, err := fx.service.Enroll(context.Background(), Actor{UserID: 11, Role: models.RoleParticipant}, 1, 10)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	_, err = fx.service.Enroll(context.Background(), Actor{UserID: 99, Role: models.RoleAdmin}, 1, 10)
	assert.NoError(t, err)
}

func TestEnrollRejectsDuplicate(t *testing.T) {
	fx := newEnrollmentFixture(openTournament(4, 0), licensed(10, 0))
	actor := Actor{UserID: 10, Role: models.RoleParticipant}

	_, err := fx.service.Enroll(context.Background(), actor, 1, 10)
	require.NoError(t, err)

	_, err = fx.service.Enroll(context.Background(), actor, 1, 10)
	assert.ErrorIs(t, err, ErrEnrollmentConflict)
}

func TestEnrollCapacityUnderContention(t *testing.T) {
	const capacity = 3
	const contenders = 10

	users := make([]*models.User, 0, contenders)
	for i := 1; i <= contenders; i++ {
		users = append(users, licensed(i, 10))
	}
	fx := newEnrollmentFixture(openTournament(capacity, 10), users...)

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 1; i <= contenders; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, errs[id-1] = fx.service.Enroll(context.Background(), Actor{UserID: id, Role: models.RoleParticipant}, 1, id)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrCapacityExceeded)
		}
	}
	assert.Equal(t, capacity, succeeded)

	count, err := fx.enrollments.CountActive(context.Background(), nil, 1)
	require.NoError(t, err)
	assert.Equal(t, capacity, count)

	// Exactly the winners were charged.
	charged := 0
	for _, u := range fx.users.users {
		if u.Credits == 0 {
			charged++
		}
	}
	assert.Equal(t, capacity, charged)
}

func TestWithdrawRefundsAndFreesSlot(t *testing.T) {
	fx := newEnrollmentFixture(openTournament(1, 25), licensed(10, 25), licensed(11, 25))
	actor := Actor{UserID: 10, Role: models.RoleParticipant}

	enrollment, err := fx.service.Enroll(context.Background(), actor, 1, 10)
	require.NoError(t, err)

	_, err = fx.service.Enroll(context.Background(), Actor{UserID: 11, Role: models.RoleParticipant}, 1, 11)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	require.NoError(t, fx.service.Withdraw(context.Background(), actor, enrollment.ID))
	assert.Equal(t, 25, fx.users.users[10].Credits, "entry cost refunded")

	// Withdrawing twice is a no-op, not an error.
	require.NoError(t, fx.service.Withdraw(context.Background(), actor, enrollment.ID))
	assert.Equal(t, 25, fx.users.users[10].Credits)

	_, err = fx.service.Enroll(context.Background(), Actor{UserID: 11, Role: models.RoleParticipant}, 1, 11)
	assert.NoError(t, err, "withdrawal frees the slot")
}

func TestWithdrawRefusedOnceOngoing(t *testing.T) {
	tournament := openTournament(4, 10)
	fx := newEnrollmentFixture(tournament, licensed(10, 10))
	actor := Actor{UserID: 10, Role: models.RoleParticipant}

	enrollment, err := fx.service.Enroll(context.Background(), actor, 1, 10)
	require.NoError(t, err)

	fx.tournaments.tournaments[1].Status = models.StatusOngoing

	err = fx.service.Withdraw(context.Background(), actor, enrollment.ID)
	var precondition *PreconditionError
	assert.ErrorAs(t, err, &precondition)
	assert.Equal(t, 0, fx.users.users[10].Credits, "no refund once play started")
}

func TestWithdrawOnlySelfUnlessAdmin(t *testing.T) {
	fx := newEnrollmentFixture(openTournament(4, 0), licensed(10, 0))

	enrollment, err := fx.service.Enroll(context.Background(), Actor{UserID: 10, Role: models.RoleParticipant}, 1, 10)
	require.NoError(t, err)

	err = fx.service.Withdraw(context.Background(), Actor{UserID: 11, Role: models.RoleParticipant}, enrollment.ID)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	err = fx.service.Withdraw(context.Background(), Actor{UserID: 99, Role: models.RoleAdmin}, enrollment.ID)
	assert.NoError(t, err)
}
