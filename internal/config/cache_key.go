package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserNotificationChannel returns the Redis PubSub channel carrying a user's live notifications
func (r *CacheKeyStruct) UserNotificationChannel(userID string) string {
	return fmt.Sprintf("notifications:user:%s", userID)
}

// QuizLeaderboardKey returns the cache key for a quiz's top-N leaderboard
func (r *CacheKeyStruct) QuizLeaderboardKey(quizID string, limit int) string {
	return fmt.Sprintf("leaderboard:quiz:%s:top:%d", quizID, limit)
}

// GlobalLeaderboardKey returns the cache key for the global top-N leaderboard
func (r *CacheKeyStruct) GlobalLeaderboardKey(limit int) string {
	return fmt.Sprintf("leaderboard:global:top:%d", limit)
}

// QuizLeaderboardPattern matches every cached top-N list of one quiz
func (r *CacheKeyStruct) QuizLeaderboardPattern(quizID string) string {
	return fmt.Sprintf("leaderboard:quiz:%s:*", quizID)
}

// GlobalLeaderboardPattern matches every cached global top-N list
func (r *CacheKeyStruct) GlobalLeaderboardPattern() string {
	return "leaderboard:global:*"
}

// LeaderboardPattern matches every cached leaderboard, used for invalidation
func (r *CacheKeyStruct) LeaderboardPattern() string {
	return "leaderboard:*"
}

var CacheKey = NewCacheKeyStruct()
