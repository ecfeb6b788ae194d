package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizhub-backend/internal/database"
	"github.com/stemsi/quizhub-backend/internal/model"
)

// ErrQuizPublished is returned when a mutation targets a published quiz.
var ErrQuizPublished = errors.New("quiz is published")

// QuizRepository handles quiz and question data access.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

const quizColumns = `q.id, q.title, q.description, q.created_by, q.duration_minutes, q.passing_score,
	q.is_published, q.is_public, q.max_attempts, q.randomize_questions, q.randomize_options,
	(SELECT COUNT(*) FROM questions qs WHERE qs.quiz_id = q.id), q.created_at, q.updated_at`

func scanQuiz(row interface{ Scan(...any) error }) (*model.Quiz, error) {
	q := &model.Quiz{}
	err := row.Scan(&q.ID, &q.Title, &q.Description, &q.CreatedBy, &q.DurationMinutes, &q.PassingScore,
		&q.IsPublished, &q.IsPublic, &q.MaxAttempts, &q.RandomizeQuestions, &q.RandomizeOptions,
		&q.QuestionCount, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return q, nil
}

// Create inserts a quiz and its questions in one transaction.
func (r *QuizRepository) Create(ctx context.Context, q *model.Quiz) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO quizzes (title, description, created_by, duration_minutes, passing_score,
			                      is_public, max_attempts, randomize_questions, randomize_options)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id, is_published, created_at, updated_at`,
			q.Title, q.Description, q.CreatedBy, q.DurationMinutes, q.PassingScore,
			q.IsPublic, q.MaxAttempts, q.RandomizeQuestions, q.RandomizeOptions,
		).Scan(&q.ID, &q.IsPublished, &q.CreatedAt, &q.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}
		if err := insertQuestions(ctx, tx, q.ID, q.Questions); err != nil {
			return err
		}
		q.QuestionCount = len(q.Questions)
		return nil
	})
}

func insertQuestions(ctx context.Context, tx pgx.Tx, quizID uuid.UUID, questions []model.Question) error {
	batch := &pgx.Batch{}
	for i := range questions {
		qq := &questions[i]
		qq.QuizID = quizID
		batch.Queue(
			`INSERT INTO questions (quiz_id, question_text, question_type, options, correct_answer, points, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id, created_at`,
			quizID, qq.Text, qq.Type, qq.Options, qq.CorrectAnswer, qq.Points, qq.Order,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&qq.ID, &qq.CreatedAt)
		})
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}
	return nil
}

// GetByID retrieves a quiz with its questions ordered by position.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q, err := scanQuiz(r.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes q WHERE q.id = $1`, id))
	if err != nil {
		return nil, err
	}
	q.Questions, err = r.ListQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListQuestions retrieves all questions of a quiz, ordered by position.
func (r *QuizRepository) ListQuestions(ctx context.Context, quizID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, quiz_id, question_text, question_type, options, correct_answer, points, order_num, created_at
		 FROM questions WHERE quiz_id = $1
		 ORDER BY order_num, created_at`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.Type, &q.Options, &q.CorrectAnswer, &q.Points, &q.Order, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// List returns a page of quizzes, newest first, and the total count.
func (r *QuizRepository) List(ctx context.Context, publishedOnly bool, limit, offset int) ([]model.Quiz, int, error) {
	where := ""
	if publishedOnly {
		where = "WHERE q.is_published"
	}
	return r.page(ctx, where, nil, limit, offset)
}

// ListForUser returns published quizzes the user may take: public ones and
// those with an active, unexpired assignment.
func (r *QuizRepository) ListForUser(ctx context.Context, userID uuid.UUID, now time.Time, limit, offset int) ([]model.Quiz, int, error) {
	where := `WHERE q.is_published AND (q.is_public OR EXISTS (
		SELECT 1 FROM quiz_assignments a
		WHERE a.quiz_id = q.id AND a.user_id = $1 AND a.is_active
		  AND (a.due_date IS NULL OR a.due_date >= $2)))`
	return r.page(ctx, where, []any{userID, now}, limit, offset)
}

func (r *QuizRepository) page(ctx context.Context, where string, args []any, limit, offset int) ([]model.Quiz, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quizzes q `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count quizzes: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM quizzes q %s ORDER BY q.created_at DESC LIMIT $%d OFFSET $%d`,
		quizColumns, where, n+1, n+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	quizzes := make([]model.Quiz, 0, limit)
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, 0, err
		}
		quizzes = append(quizzes, *q)
	}
	return quizzes, total, rows.Err()
}

// Update writes quiz metadata. Returns ErrNotFound if the quiz is gone and
// ErrQuizPublished if it was published in the meantime.
func (r *QuizRepository) Update(ctx context.Context, q *model.Quiz) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockDraft(ctx, tx, q.ID); err != nil {
			return err
		}
		return tx.QueryRow(ctx,
			`UPDATE quizzes
			 SET title = $2, description = $3, duration_minutes = $4, passing_score = $5, is_public = $6,
			     max_attempts = $7, randomize_questions = $8, randomize_options = $9, updated_at = NOW()
			 WHERE id = $1
			 RETURNING updated_at`,
			q.ID, q.Title, q.Description, q.DurationMinutes, q.PassingScore, q.IsPublic,
			q.MaxAttempts, q.RandomizeQuestions, q.RandomizeOptions,
		).Scan(&q.UpdatedAt)
	})
}

// lockDraft row-locks a quiz for the rest of tx and fails unless it exists
// and is still unpublished.
func lockDraft(ctx context.Context, tx pgx.Tx, quizID uuid.UUID) error {
	var published bool
	err := tx.QueryRow(ctx, `SELECT is_published FROM quizzes WHERE id = $1 FOR UPDATE`, quizID).Scan(&published)
	if err != nil {
		return notFound(err)
	}
	if published {
		return ErrQuizPublished
	}
	return nil
}

// ReplaceQuestions swaps the question list of an unpublished quiz.
func (r *QuizRepository) ReplaceQuestions(ctx context.Context, quizID uuid.UUID, questions []model.Question) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockDraft(ctx, tx, quizID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE quiz_id = $1`, quizID); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		if err := insertQuestions(ctx, tx, quizID, questions); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE quizzes SET updated_at = NOW() WHERE id = $1`, quizID)
		return err
	})
}

// Publish flips is_published. Returns false if the quiz was already published.
func (r *QuizRepository) Publish(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quizzes SET is_published = TRUE, updated_at = NOW()
		 WHERE id = $1 AND NOT is_published`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes a quiz and everything that hangs off it, children first.
func (r *QuizRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		steps := []struct {
			name  string
			query string
		}{
			{"answers", `DELETE FROM answers WHERE attempt_id IN (SELECT id FROM attempts WHERE quiz_id = $1)`},
			{"results", `DELETE FROM results WHERE quiz_id = $1`},
			{"attempts", `DELETE FROM attempts WHERE quiz_id = $1`},
			{"assignments", `DELETE FROM quiz_assignments WHERE quiz_id = $1`},
			{"questions", `DELETE FROM questions WHERE quiz_id = $1`},
		}
		for _, s := range steps {
			if _, err := tx.Exec(ctx, s.query, id); err != nil {
				return fmt.Errorf("delete %s: %w", s.name, err)
			}
		}

		tag, err := tx.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete quiz: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
