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

// AssignmentRepository handles quiz assignment data access.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

const upsertAssignment = `INSERT INTO quiz_assignments (quiz_id, user_id, assigned_by, due_date, is_active)
	VALUES ($1, $2, $3, $4, TRUE)
	ON CONFLICT (quiz_id, user_id) DO UPDATE
	SET assigned_by = EXCLUDED.assigned_by,
	    due_date    = EXCLUDED.due_date,
	    assigned_at = NOW(),
	    is_active   = TRUE,
	    reminded_at = NULL
	RETURNING id, assigned_at, is_active`

// UpsertMany assigns a quiz to several users in one transaction. An existing
// row for a pair is re-activated, its due date and assigner replaced and its
// deadline reminder re-armed.
func (r *AssignmentRepository) UpsertMany(ctx context.Context, as []model.Assignment) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i := range as {
			a := &as[i]
			batch.Queue(upsertAssignment, a.QuizID, a.UserID, a.AssignedBy, a.DueDate).
				QueryRow(func(row pgx.Row) error {
					return row.Scan(&a.ID, &a.AssignedAt, &a.IsActive)
				})
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upsert assignments: %w", err)
		}
		return nil
	})
}

// Get retrieves the assignment for a (quiz, user) pair, active or not.
func (r *AssignmentRepository) Get(ctx context.Context, quizID, userID uuid.UUID) (*model.Assignment, error) {
	a := &model.Assignment{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, quiz_id, user_id, assigned_by, assigned_at, due_date, is_active
		 FROM quiz_assignments WHERE quiz_id = $1 AND user_id = $2`, quizID, userID,
	).Scan(&a.ID, &a.QuizID, &a.UserID, &a.AssignedBy, &a.AssignedAt, &a.DueDate, &a.IsActive)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// Revoke deactivates an assignment without deleting it.
func (r *AssignmentRepository) Revoke(ctx context.Context, quizID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quiz_assignments SET is_active = FALSE WHERE quiz_id = $1 AND user_id = $2`,
		quizID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByQuiz retrieves every assignment of a quiz with the assignee's email
// and username, newest first.
func (r *AssignmentRepository) ListByQuiz(ctx context.Context, quizID uuid.UUID) ([]model.AssignmentWithUser, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.quiz_id, a.user_id, a.assigned_by, a.assigned_at, a.due_date, a.is_active,
		        u.email, u.username
		 FROM quiz_assignments a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.quiz_id = $1
		 ORDER BY a.assigned_at DESC`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AssignmentWithUser
	for rows.Next() {
		var a model.AssignmentWithUser
		if err := rows.Scan(&a.ID, &a.QuizID, &a.UserID, &a.AssignedBy, &a.AssignedAt, &a.DueDate, &a.IsActive,
			&a.Email, &a.Username); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ClaimDueSoon marks up to limit active assignments of published quizzes due in
// (now, until] as reminded and returns them. Users who already have a result
// are skipped. Each assignment is claimed once per due date, and SKIP LOCKED
// keeps concurrent replicas from claiming the same rows.
func (r *AssignmentRepository) ClaimDueSoon(ctx context.Context, now, until time.Time, limit int) ([]model.DueAssignment, error) {
	rows, err := r.pool.Query(ctx,
		`WITH due AS (
		     SELECT a.id FROM quiz_assignments a
		     JOIN quizzes q ON q.id = a.quiz_id
		     WHERE a.is_active AND q.is_published AND a.reminded_at IS NULL
		       AND a.due_date > $1 AND a.due_date <= $2
		       AND NOT EXISTS (SELECT 1 FROM results r WHERE r.quiz_id = a.quiz_id AND r.user_id = a.user_id)
		     ORDER BY a.due_date
		     LIMIT $3
		     FOR UPDATE OF a SKIP LOCKED)
		 UPDATE quiz_assignments a SET reminded_at = $1
		 FROM due, quizzes q
		 WHERE a.id = due.id AND q.id = a.quiz_id
		 RETURNING a.user_id, a.quiz_id, q.title, a.due_date`,
		now, until, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DueAssignment
	for rows.Next() {
		var d model.DueAssignment
		if err := rows.Scan(&d.UserID, &d.QuizID, &d.QuizTitle, &d.DueDate); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
