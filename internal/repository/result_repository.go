package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizhub-backend/internal/model"
)

// ResultRepository handles result and leaderboard data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

const resultColumns = `id, attempt_id, user_id, quiz_id, score, total_points, percentage, passed, rank, created_at`

func scanResult(row interface{ Scan(...any) error }) (*model.Result, error) {
	res := &model.Result{}
	err := row.Scan(&res.ID, &res.AttemptID, &res.UserID, &res.QuizID, &res.Score, &res.TotalPoints,
		&res.Percentage, &res.Passed, &res.Rank, &res.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return res, nil
}

// GetByAttempt retrieves the result of an attempt.
func (r *ResultRepository) GetByAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Result, error) {
	return scanResult(r.pool.QueryRow(ctx, `SELECT `+resultColumns+` FROM results WHERE attempt_id = $1`, attemptID))
}

// ListByUser retrieves a user's results, newest first.
func (r *ResultRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Result, error) {
	return r.list(ctx, `SELECT `+resultColumns+` FROM results WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListByQuiz retrieves every result of a quiz in leaderboard order.
func (r *ResultRepository) ListByQuiz(ctx context.Context, quizID uuid.UUID) ([]model.Result, error) {
	return r.list(ctx, `SELECT `+resultColumns+` FROM results WHERE quiz_id = $1 ORDER BY score DESC, created_at ASC`, quizID)
}

func (r *ResultRepository) list(ctx context.Context, query string, args ...any) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// Leaderboard ranks results by score descending, earliest first on ties.
// A nil quizID ranks across published public quizzes. Rank is the row's
// ordinal position.
func (r *ResultRepository) Leaderboard(ctx context.Context, quizID *uuid.UUID, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ROW_NUMBER() OVER (ORDER BY r.score DESC, r.created_at ASC, r.id),
		        r.user_id, u.username, r.quiz_id, r.score, r.total_points, r.percentage, r.created_at
		 FROM results r
		 JOIN users u ON u.id = r.user_id
		 JOIN quizzes q ON q.id = r.quiz_id
		 WHERE ($1::uuid IS NULL AND q.is_published AND q.is_public) OR r.quiz_id = $1
		 ORDER BY r.score DESC, r.created_at ASC, r.id
		 LIMIT $2`, quizID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		var rank int64
		if err := rows.Scan(&rank, &e.UserID, &e.Username, &e.QuizID, &e.Score, &e.TotalPoints, &e.Percentage, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Rank = int(rank)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SyncRanks recomputes the cached per-quiz rank column and returns how many
// rows changed.
func (r *ResultRepository) SyncRanks(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE results AS r
		 SET rank = ranked.pos
		 FROM (
		   SELECT id, ROW_NUMBER() OVER (PARTITION BY quiz_id ORDER BY score DESC, created_at ASC, id) AS pos
		   FROM results
		 ) AS ranked
		 WHERE r.id = ranked.id AND r.rank IS DISTINCT FROM ranked.pos`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
