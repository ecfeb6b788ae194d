//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/repository"
	"github.com/stemsi/quizhub-backend/internal/service"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) string {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quizhub", "POSTGRES_PASSWORD": "quizhub_secret", "POSTGRES_DB": "quizhub"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return fmt.Sprintf("postgres://quizhub:quizhub_secret@%s:%s/quizhub?sslmode=disable", host, port.Port())
}

func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	requireDocker(t)
	ctx := context.Background()
	dsn := startPostgres(t, ctx)

	m, err := migrate.New("file://../../migrations", dsn)
	if err != nil {
		t.Fatalf("migrate init: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("migrate up: %v", err)
	}
	_, _ = m.Close()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

type fixture struct {
	users    *repository.UserRepository
	quizzes  *repository.QuizRepository
	attempts *repository.AttemptRepository
	results  *repository.ResultRepository

	admin, player *model.User
	quiz          *model.Quiz
}

func newFixture(t *testing.T, pool *pgxpool.Pool, maxAttempts *int) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		users:    repository.NewUserRepository(pool),
		quizzes:  repository.NewQuizRepository(pool),
		attempts: repository.NewAttemptRepository(pool),
		results:  repository.NewResultRepository(pool),
	}

	mkUser := func(name string, role model.Role) *model.User {
		u := &model.User{Email: name + "@example.com", Username: name, PasswordHash: "x", Role: role, IsActive: true}
		if err := f.users.Create(ctx, u); err != nil {
			t.Fatalf("create user %s: %v", name, err)
		}
		return u
	}
	f.admin = mkUser("admin", model.RoleAdmin)
	f.player = mkUser("player", model.RoleUser)

	f.quiz = &model.Quiz{
		Title: "Go fundamentals", Description: "Slices, maps and goroutines.", CreatedBy: f.admin.ID,
		DurationMinutes: 10, PassingScore: 50, IsPublic: true, MaxAttempts: maxAttempts,
		Questions: []model.Question{
			{Text: "len of nil slice?", Type: model.QuestionTypeMCQ, Options: []string{"0", "panic"}, CorrectAnswer: "0", Points: 1, Order: 1},
			{Text: "Maps are goroutine safe.", Type: model.QuestionTypeTrueFalse, Options: []string{"true", "false"}, CorrectAnswer: "false", Points: 2, Order: 2},
		},
	}
	if err := f.quizzes.Create(ctx, f.quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if ok, err := f.quizzes.Publish(ctx, f.quiz.ID); err != nil || !ok {
		t.Fatalf("publish: %v %v", ok, err)
	}
	return f
}

func (f *fixture) newAttempt(now time.Time) *model.Attempt {
	return &model.Attempt{
		QuizID:    f.quiz.ID,
		UserID:    f.player.ID,
		StartedAt: now,
		ExpiresAt: now.Add(time.Duration(f.quiz.DurationMinutes) * time.Minute),
	}
}

func (f *fixture) grade(now time.Time) repository.GradeFunc {
	return func(a *model.Attempt, answers []model.Answer) (*model.Finalization, error) {
		summary, graded := service.Score(f.quiz.Questions, answers, f.quiz.PassingScore)
		return &model.Finalization{
			Result: model.Result{
				Score:       summary.Score,
				TotalPoints: summary.TotalPoints,
				Percentage:  summary.Percentage,
				Passed:      summary.Passed,
			},
			Graded:           graded,
			SubmittedAt:      now,
			TimeTakenSeconds: int(now.Sub(a.StartedAt).Seconds()),
		}, nil
	}
}

func TestAttemptLifecycleAgainstPostgres(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	one := 1
	f := newFixture(t, pool, &one)
	now := time.Now().UTC()

	// Concurrent starts: exactly one wins.
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started []*model.Attempt
		errs    []error
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := f.newAttempt(now)
			err := f.attempts.CreateExclusive(ctx, a, f.quiz.MaxAttempts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			started = append(started, a)
		}()
	}
	wg.Wait()
	if len(started) != 1 {
		t.Fatalf("started %d attempts, want 1 (errs %v)", len(started), errs)
	}
	for _, err := range errs {
		if !errors.Is(err, repository.ErrActiveAttemptExists) {
			t.Fatalf("unexpected start error: %v", err)
		}
	}
	attempt := started[0]

	// Answers overwrite per question.
	answer := func(q model.Question, sel string) {
		t.Helper()
		ans := &model.Answer{AttemptID: attempt.ID, QuestionID: q.ID, SelectedAnswer: sel, AnsweredAt: now.Add(time.Minute)}
		if err := f.attempts.UpsertAnswer(ctx, ans); err != nil {
			t.Fatalf("upsert answer: %v", err)
		}
	}
	answer(f.quiz.Questions[0], "panic")
	answer(f.quiz.Questions[0], "0")
	answer(f.quiz.Questions[1], "true")

	saved, err := f.attempts.ListAnswers(ctx, attempt.ID)
	if err != nil || len(saved) != 2 {
		t.Fatalf("answers = %d, %v", len(saved), err)
	}

	// Concurrent submits: one result, the rest see ErrAlreadySubmitted.
	var (
		results   []*model.Result
		submitErr []error
	)
	submitAt := now.Add(2 * time.Minute)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.attempts.Finalize(ctx, attempt.ID, f.grade(submitAt))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				submitErr = append(submitErr, err)
				return
			}
			results = append(results, res)
		}()
	}
	wg.Wait()
	if len(results) != 1 {
		t.Fatalf("finalized %d times, want 1 (errs %v)", len(results), submitErr)
	}
	for _, err := range submitErr {
		if !errors.Is(err, repository.ErrAlreadySubmitted) {
			t.Fatalf("unexpected submit error: %v", err)
		}
	}
	if r := results[0]; r.Score != 1 || r.TotalPoints != 3 || r.Passed {
		t.Fatalf("result = %+v", r)
	}

	if err := f.attempts.UpsertAnswer(ctx, &model.Answer{AttemptID: attempt.ID, QuestionID: f.quiz.Questions[1].ID, SelectedAnswer: "false", AnsweredAt: submitAt}); !errors.Is(err, repository.ErrAlreadySubmitted) {
		t.Fatalf("answer after submit: %v", err)
	}

	// max_attempts=1 counts the submitted attempt.
	if err := f.attempts.CreateExclusive(ctx, f.newAttempt(submitAt), f.quiz.MaxAttempts); !errors.Is(err, repository.ErrAttemptLimitReached) {
		t.Fatalf("second attempt: %v", err)
	}

	// Ranks and leaderboard.
	if n, err := f.results.SyncRanks(ctx); err != nil || n != 1 {
		t.Fatalf("sync ranks = %d, %v", n, err)
	}
	board, err := f.results.Leaderboard(ctx, &f.quiz.ID, 10)
	if err != nil || len(board) != 1 || board[0].Username != "player" || board[0].Rank != 1 {
		t.Fatalf("leaderboard = %+v, %v", board, err)
	}
	if global, err := f.results.Leaderboard(ctx, nil, 10); err != nil || len(global) != 1 {
		t.Fatalf("global leaderboard = %+v, %v", global, err)
	}
	if _, err := pool.Exec(ctx, `UPDATE quizzes SET is_public = FALSE WHERE id = $1`, f.quiz.ID); err != nil {
		t.Fatal(err)
	}
	if global, err := f.results.Leaderboard(ctx, nil, 10); err != nil || len(global) != 0 {
		t.Fatalf("global leaderboard after hiding quiz = %+v, %v", global, err)
	}

	// Metadata edits: published quizzes are frozen and missing ones are not found.
	if err := f.quizzes.Update(ctx, f.quiz); !errors.Is(err, repository.ErrQuizPublished) {
		t.Fatalf("update published: %v", err)
	}
	if err := f.quizzes.Update(ctx, &model.Quiz{ID: uuid.New(), Title: "ghost"}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}

	// Delete removes every dependent row.
	if err := f.quizzes.Delete(ctx, f.quiz.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.quizzes.GetByID(ctx, f.quiz.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("quiz after delete: %v", err)
	}
	if _, err := f.attempts.GetByID(ctx, attempt.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("attempt after delete: %v", err)
	}
	if mine, err := f.results.ListByUser(ctx, f.player.ID); err != nil || len(mine) != 0 {
		t.Fatalf("results after delete = %d, %v", len(mine), err)
	}
}

func TestListExpired(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	f := newFixture(t, pool, nil)

	past := time.Now().UTC().Add(-time.Hour)
	a := f.newAttempt(past)
	if err := f.attempts.CreateExclusive(ctx, a, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	ids, err := f.attempts.ListExpired(ctx, time.Now().UTC(), 500)
	if err != nil || len(ids) != 1 || ids[0] != a.ID {
		t.Fatalf("expired = %v, %v", ids, err)
	}

	if _, err := f.attempts.Finalize(ctx, a.ID, f.grade(time.Now().UTC())); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if ids, _ := f.attempts.ListExpired(ctx, time.Now().UTC(), 500); len(ids) != 0 {
		t.Fatalf("submitted attempt still listed: %v", ids)
	}
}

func TestAssignmentsAgainstPostgres(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	f := newFixture(t, pool, nil)
	assignments := repository.NewAssignmentRepository(pool)

	other := &model.User{Email: "other@example.com", Username: "other", PasswordHash: "x", Role: model.RoleUser, IsActive: true}
	if err := f.users.Create(ctx, other); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	soon := now.Add(2 * time.Hour)
	batch := []model.Assignment{
		{QuizID: f.quiz.ID, UserID: f.player.ID, AssignedBy: f.admin.ID, DueDate: &soon},
		{QuizID: f.quiz.ID, UserID: other.ID, AssignedBy: f.admin.ID, DueDate: &soon},
	}
	if err := assignments.UpsertMany(ctx, batch); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	for _, a := range batch {
		if a.ID == uuid.Nil || !a.IsActive {
			t.Fatalf("assignment = %+v", a)
		}
	}

	// An unknown user fails the whole batch.
	ghost := []model.Assignment{
		{QuizID: f.quiz.ID, UserID: f.admin.ID, AssignedBy: f.admin.ID},
		{QuizID: f.quiz.ID, UserID: uuid.New(), AssignedBy: f.admin.ID},
	}
	if err := assignments.UpsertMany(ctx, ghost); err == nil {
		t.Fatal("batch with unknown user must fail")
	}

	list, err := assignments.ListByQuiz(ctx, f.quiz.ID)
	if err != nil || len(list) != 2 {
		t.Fatalf("list = %+v, %v", list, err)
	}
	names := map[uuid.UUID]string{}
	for _, row := range list {
		names[row.UserID] = row.Username + " " + row.Email
	}
	if names[f.player.ID] != "player player@example.com" || names[other.ID] != "other other@example.com" {
		t.Fatalf("joined users = %v", names)
	}

	// Users with a result are not reminded; everyone else exactly once.
	a := f.newAttempt(now)
	if err := f.attempts.CreateExclusive(ctx, a, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := f.attempts.Finalize(ctx, a.ID, f.grade(now)); err != nil {
		t.Fatal(err)
	}
	due, err := assignments.ClaimDueSoon(ctx, now, now.Add(24*time.Hour), 100)
	if err != nil || len(due) != 1 || due[0].UserID != other.ID || due[0].QuizTitle != f.quiz.Title {
		t.Fatalf("due = %+v, %v", due, err)
	}
	if again, err := assignments.ClaimDueSoon(ctx, now, now.Add(24*time.Hour), 100); err != nil || len(again) != 0 {
		t.Fatalf("second claim = %+v, %v", again, err)
	}

	// Re-assigning re-arms the reminder.
	if err := assignments.UpsertMany(ctx, batch[1:]); err != nil {
		t.Fatal(err)
	}
	if rearmed, err := assignments.ClaimDueSoon(ctx, now, now.Add(24*time.Hour), 100); err != nil || len(rearmed) != 1 {
		t.Fatalf("re-armed claim = %+v, %v", rearmed, err)
	}
}
