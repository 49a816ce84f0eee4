// Package storage provides persistence for conversations, evaluations,
// leaderboard standings, and roster assignments.
package storage

import (
	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/roster"
)

// Storage defines the interface for arena persistence.
type Storage interface {
	// Initialize sets up the storage (creates tables, etc.)
	Initialize() error

	// Close closes the storage connection.
	Close() error

	// Conversation operations
	CreateConversation(conv *core.Conversation) error
	GetConversation(id string) (*core.Conversation, error)
	UpdateConversation(conv *core.Conversation) error
	ListConversations(limit, offset int) ([]*core.Conversation, error)

	// Message operations
	AddMessage(msg *core.ChatMessage) error
	GetMessages(conversationID string, limit int) ([]*core.ChatMessage, error)

	// Evaluation operations
	SaveEvaluation(eval *core.EvaluationResult) error
	GetEvaluations(taskID string) ([]*core.EvaluationResult, error)

	// Leaderboard operations
	SaveLeaderboardEntries(entries []core.LeaderboardEntry) error
	LoadLeaderboardEntries() ([]core.LeaderboardEntry, error)

	// Roster returns the role assignment repository.
	Roster() roster.Repository
}

var _ Storage = (*SQLiteStorage)(nil)
