package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizhub-backend/internal/database"
	"github.com/stemsi/quizhub-backend/internal/model"
)

// GradeFunc computes the submission payload for a locked attempt and its answers.
type GradeFunc func(a *model.Attempt, answers []model.Answer) (*model.Finalization, error)

// AttemptRepository handles attempt and answer data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, quiz_id, user_id, started_at, expires_at, submitted_at, is_submitted, status, time_taken_seconds`

func scanAttempt(row interface{ Scan(...any) error }) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := row.Scan(&a.ID, &a.QuizID, &a.UserID, &a.StartedAt, &a.ExpiresAt, &a.SubmittedAt, &a.IsSubmitted, &a.Status, &a.TimeTakenSeconds)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// CreateExclusive inserts an in-progress attempt unless the user already has
// one for the quiz or has used up maxAttempts. The checks and the insert run
// under a transaction-scoped advisory lock keyed on (user, quiz); the partial
// unique index uq_attempts_active backs this up.
func (r *AttemptRepository) CreateExclusive(ctx context.Context, a *model.Attempt, maxAttempts *int) error {
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		lockKey := a.UserID.String() + ":" + a.QuizID.String()
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
			return fmt.Errorf("lock attempt slot: %w", err)
		}

		var active, total int
		err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FILTER (WHERE status = 'in_progress'), COUNT(*)
			 FROM attempts WHERE user_id = $1 AND quiz_id = $2`,
			a.UserID, a.QuizID,
		).Scan(&active, &total)
		if err != nil {
			return fmt.Errorf("count attempts: %w", err)
		}
		if active > 0 {
			return ErrActiveAttemptExists
		}
		if maxAttempts != nil && total >= *maxAttempts {
			return ErrAttemptLimitReached
		}

		a.Status = model.AttemptStatusInProgress
		return tx.QueryRow(ctx,
			`INSERT INTO attempts (quiz_id, user_id, started_at, expires_at, status)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			a.QuizID, a.UserID, a.StartedAt, a.ExpiresAt, a.Status,
		).Scan(&a.ID)
	})
	if isUniqueViolation(err, "uq_attempts_active") {
		return ErrActiveAttemptExists
	}
	return err
}

// GetByID retrieves an attempt by ID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id))
}

// ListByUser retrieves a user's attempts, newest first, optionally for one quiz.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID uuid.UUID, quizID *uuid.UUID) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE user_id = $1 AND ($2::uuid IS NULL OR quiz_id = $2)
		 ORDER BY started_at DESC`, userID, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// UpsertAnswer records the latest selection for (attempt, question). The
// attempt row is share-locked so the write cannot interleave with Finalize.
func (r *AttemptRepository) UpsertAnswer(ctx context.Context, ans *model.Answer) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			status    model.AttemptStatus
			expiresAt time.Time
		)
		err := tx.QueryRow(ctx,
			`SELECT status, expires_at FROM attempts WHERE id = $1 FOR SHARE`, ans.AttemptID,
		).Scan(&status, &expiresAt)
		if err != nil {
			return notFound(err)
		}
		if status == model.AttemptStatusSubmitted {
			return ErrAlreadySubmitted
		}
		if ans.AnsweredAt.After(expiresAt) {
			return ErrAttemptExpired
		}

		return tx.QueryRow(ctx,
			`INSERT INTO answers (attempt_id, question_id, selected_answer, answered_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (attempt_id, question_id) DO UPDATE
			 SET selected_answer = EXCLUDED.selected_answer,
			     answered_at     = EXCLUDED.answered_at,
			     is_correct      = NULL
			 RETURNING id`,
			ans.AttemptID, ans.QuestionID, ans.SelectedAnswer, ans.AnsweredAt,
		).Scan(&ans.ID)
	})
}

// ListAnswers retrieves every answer of an attempt.
func (r *AttemptRepository) ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	return listAnswers(ctx, r.pool, attemptID)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listAnswers(ctx context.Context, q querier, attemptID uuid.UUID) ([]model.Answer, error) {
	rows, err := q.Query(ctx,
		`SELECT id, attempt_id, question_id, selected_answer, is_correct, answered_at
		 FROM answers WHERE attempt_id = $1
		 ORDER BY answered_at`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &a.SelectedAnswer, &a.IsCorrect, &a.AnsweredAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Finalize submits an attempt exactly once. The attempt row is locked FOR
// UPDATE for the whole check-grade-write sequence; a second caller blocks,
// then sees the submitted row and gets ErrAlreadySubmitted.
func (r *AttemptRepository) Finalize(ctx context.Context, attemptID uuid.UUID, grade GradeFunc) (*model.Result, error) {
	var result *model.Result
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		a, err := scanAttempt(tx.QueryRow(ctx,
			`SELECT `+attemptColumns+` FROM attempts WHERE id = $1 FOR UPDATE`, attemptID))
		if err != nil {
			return err
		}
		if a.IsSubmitted || a.Status == model.AttemptStatusSubmitted {
			return ErrAlreadySubmitted
		}

		answers, err := listAnswers(ctx, tx, attemptID)
		if err != nil {
			return fmt.Errorf("load answers: %w", err)
		}

		f, err := grade(a, answers)
		if err != nil {
			return err
		}

		if err := bulkMarkAnswers(ctx, tx, f.Graded); err != nil {
			return err
		}

		res := f.Result
		res.AttemptID, res.UserID, res.QuizID = a.ID, a.UserID, a.QuizID
		err = tx.QueryRow(ctx,
			`INSERT INTO results (attempt_id, user_id, quiz_id, score, total_points, percentage, passed)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id, created_at`,
			res.AttemptID, res.UserID, res.QuizID, res.Score, res.TotalPoints, res.Percentage, res.Passed,
		).Scan(&res.ID, &res.CreatedAt)
		if isUniqueViolation(err, "") {
			return ErrAlreadySubmitted
		}
		if err != nil {
			return fmt.Errorf("insert result: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE attempts
			 SET status = $2, is_submitted = TRUE, submitted_at = $3, time_taken_seconds = $4
			 WHERE id = $1`,
			a.ID, model.AttemptStatusSubmitted, f.SubmittedAt, f.TimeTakenSeconds)
		if err != nil {
			return fmt.Errorf("mark submitted: %w", err)
		}

		result = &res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// bulkMarkAnswers writes is_correct for every graded answer in one statement.
func bulkMarkAnswers(ctx context.Context, tx pgx.Tx, graded []model.Answer) error {
	if len(graded) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(graded))
	flags := make([]bool, 0, len(graded))
	for _, a := range graded {
		if a.IsCorrect == nil {
			continue
		}
		ids = append(ids, a.ID)
		flags = append(flags, *a.IsCorrect)
	}
	if len(ids) == 0 {
		return nil
	}

	_, err := tx.Exec(ctx,
		`UPDATE answers AS a
		 SET is_correct = t.is_correct
		 FROM UNNEST($1::uuid[], $2::bool[]) AS t (id, is_correct)
		 WHERE a.id = t.id`, ids, flags)
	if err != nil {
		return fmt.Errorf("mark answers: %w", err)
	}
	return nil
}

// ListExpired returns in-progress attempts whose deadline passed before now,
// oldest first.
func (r *AttemptRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM attempts
		 WHERE status = 'in_progress' AND expires_at < $1
		 ORDER BY expires_at
		 LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}
