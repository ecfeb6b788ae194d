package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/apperror"
	"github.com/stemsi/quizhub-backend/internal/config"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/repository"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	leaderboardCacheTTL     = 30 * time.Second
)

// LeaderboardService ranks results live from storage and caches the top-N
// lists in Redis for a short time. A cache failure falls through to storage.
type LeaderboardService struct {
	results ResultStore
	quizzes QuizStore
	policy  *AccessPolicy
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewLeaderboardService creates a new LeaderboardService. rdb may be nil to
// disable caching.
func NewLeaderboardService(results ResultStore, quizzes QuizStore, policy *AccessPolicy, rdb *redis.Client, log zerolog.Logger) *LeaderboardService {
	return &LeaderboardService{
		results: results,
		quizzes: quizzes,
		policy:  policy,
		rdb:     rdb,
		log:     log.With().Str("component", "leaderboard_service").Logger(),
	}
}

// ClampLimit applies the default and maximum list sizes.
func ClampLimit(limit int) int {
	if limit < 1 {
		return defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		return maxLeaderboardLimit
	}
	return limit
}

// ForQuiz returns the top entries of one quiz. Non-admins see only boards of
// published quizzes they may take: drafts read as QUIZ_NOT_FOUND and private
// quizzes without a valid assignment as QUIZ_ACCESS_DENIED.
func (s *LeaderboardService) ForQuiz(ctx context.Context, userID uuid.UUID, isAdmin bool, quizID uuid.UUID, limit int) ([]model.LeaderboardEntry, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	if !isAdmin {
		if !quiz.IsPublished {
			return nil, apperror.ErrQuizNotFound
		}
		ok, err := s.policy.CanAccess(ctx, userID, quiz)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperror.ErrQuizAccessDenied
		}
	}

	limit = ClampLimit(limit)
	return s.cached(ctx, config.CacheKey.QuizLeaderboardKey(quizID.String(), limit), &quizID, limit)
}

// Global returns the top entries across published public quizzes.
func (s *LeaderboardService) Global(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	limit = ClampLimit(limit)
	return s.cached(ctx, config.CacheKey.GlobalLeaderboardKey(limit), nil, limit)
}

func (s *LeaderboardService) cached(ctx context.Context, key string, quizID *uuid.UUID, limit int) ([]model.LeaderboardEntry, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var entries []model.LeaderboardEntry
			if jsonErr := json.Unmarshal(raw, &entries); jsonErr == nil {
				return entries, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("key", key).Msg("Leaderboard cache read failed")
		}
	}

	entries, err := s.results.Leaderboard(ctx, quizID, limit)
	if err != nil {
		return nil, fmt.Errorf("rank results: %w", err)
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(entries); err == nil {
			if err := s.rdb.Set(ctx, key, raw, leaderboardCacheTTL).Err(); err != nil {
				s.log.Warn().Err(err).Str("key", key).Msg("Leaderboard cache write failed")
			}
		}
	}
	return entries, nil
}

// Invalidate drops cached lists of the quiz and the global lists.
func (s *LeaderboardService) Invalidate(ctx context.Context, quizID uuid.UUID) {
	s.deletePattern(ctx, config.CacheKey.QuizLeaderboardPattern(quizID.String()))
	s.deletePattern(ctx, config.CacheKey.GlobalLeaderboardPattern())
}

// SyncRanks recomputes the persisted rank column and flushes every cached list.
func (s *LeaderboardService) SyncRanks(ctx context.Context) (int64, error) {
	n, err := s.results.SyncRanks(ctx)
	if err != nil {
		return 0, fmt.Errorf("sync ranks: %w", err)
	}
	if n > 0 {
		s.deletePattern(ctx, config.CacheKey.LeaderboardPattern())
	}
	return n, nil
}

func (s *LeaderboardService) deletePattern(ctx context.Context, pattern string) {
	if s.rdb == nil {
		return
	}
	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.log.Warn().Err(err).Str("pattern", pattern).Msg("Leaderboard cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn().Err(err).Str("pattern", pattern).Msg("Leaderboard cache invalidation failed")
	}
}
