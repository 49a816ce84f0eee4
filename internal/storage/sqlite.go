package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/roster"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLiteStorage{
		db:   db,
		path: dbPath,
	}, nil
}

// Initialize creates the database schema.
func (s *SQLiteStorage) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		message_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		model_id TEXT,
		content TEXT NOT NULL,
		mentions_json TEXT,
		parent_message_id TEXT,
		evaluation_score REAL,
		meta_json TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		model_id TEXT NOT NULL,
		judge_model_id TEXT NOT NULL,
		overall_score REAL NOT NULL,
		criteria_json TEXT,
		rank INTEGER NOT NULL,
		total_competitors INTEGER NOT NULL,
		response_time_ms INTEGER NOT NULL,
		token_cost REAL NOT NULL,
		strength_summary TEXT,
		weakness_summary TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leaderboard_entries (
		model_id TEXT NOT NULL,
		category TEXT NOT NULL,
		average_score REAL NOT NULL,
		total_evaluations INTEGER NOT NULL,
		total_wins INTEGER NOT NULL,
		win_rate REAL NOT NULL,
		avg_response_time_ms REAL NOT NULL,
		avg_token_cost REAL NOT NULL,
		trend TEXT NOT NULL,
		last_evaluated_at DATETIME NOT NULL,
		PRIMARY KEY (model_id, category)
	);

	CREATE TABLE IF NOT EXISTS roster_entries (
		role TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		model_id TEXT NOT NULL,
		assignment_type TEXT NOT NULL,
		assigned_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_evaluations_task_id ON evaluations(task_id);
	CREATE INDEX IF NOT EXISTS idx_evaluations_model_id ON evaluations(model_id);
	CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// CreateConversation inserts a new conversation.
func (s *SQLiteStorage) CreateConversation(conv *core.Conversation) error {
	query := `
	INSERT INTO conversations (id, title, status, message_count, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		conv.ID,
		conv.Title,
		conv.Status,
		conv.MessageCount,
		conv.CreatedAt,
		conv.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}

	return nil
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStorage) GetConversation(id string) (*core.Conversation, error) {
	query := `
	SELECT id, title, status, message_count, created_at, updated_at
	FROM conversations
	WHERE id = ?
	`

	var conv core.Conversation
	err := s.db.QueryRow(query, id).Scan(
		&conv.ID,
		&conv.Title,
		&conv.Status,
		&conv.MessageCount,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return &conv, nil
}

// UpdateConversation updates an existing conversation.
func (s *SQLiteStorage) UpdateConversation(conv *core.Conversation) error {
	conv.UpdatedAt = time.Now()

	query := `
	UPDATE conversations
	SET title = ?, status = ?, message_count = ?, updated_at = ?
	WHERE id = ?
	`

	_, err := s.db.Exec(query,
		conv.Title,
		conv.Status,
		conv.MessageCount,
		conv.UpdatedAt,
		conv.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	return nil
}

// ListConversations returns conversations, most recently updated first.
func (s *SQLiteStorage) ListConversations(limit, offset int) ([]*core.Conversation, error) {
	query := `
	SELECT id, title, status, message_count, created_at, updated_at
	FROM conversations
	ORDER BY updated_at DESC
	LIMIT ? OFFSET ?
	`

	rows, err := s.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var convs []*core.Conversation
	for rows.Next() {
		var conv core.Conversation
		err := rows.Scan(
			&conv.ID,
			&conv.Title,
			&conv.Status,
			&conv.MessageCount,
			&conv.CreatedAt,
			&conv.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, &conv)
	}

	return convs, nil
}

// AddMessage inserts a chat message.
func (s *SQLiteStorage) AddMessage(msg *core.ChatMessage) error {
	var mentionsJSON *string
	if len(msg.Mentions) > 0 {
		data, err := json.Marshal(msg.Mentions)
		if err != nil {
			return fmt.Errorf("failed to marshal mentions: %w", err)
		}
		str := string(data)
		mentionsJSON = &str
	}

	var metaJSON *string
	if !msg.Meta.IsZero() {
		data, err := json.Marshal(msg.Meta)
		if err != nil {
			return fmt.Errorf("failed to marshal message meta: %w", err)
		}
		str := string(data)
		metaJSON = &str
	}

	query := `
	INSERT INTO messages (id, conversation_id, role, model_id, content, mentions_json, parent_message_id, evaluation_score, meta_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		msg.ID,
		msg.ConversationID,
		msg.Role,
		nullable(msg.ModelID),
		msg.Content,
		mentionsJSON,
		nullable(msg.ParentMessageID),
		msg.EvaluationScore,
		metaJSON,
		msg.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

// GetMessages returns a conversation's messages in order. A positive limit
// returns only the most recent messages.
func (s *SQLiteStorage) GetMessages(conversationID string, limit int) ([]*core.ChatMessage, error) {
	query := `
	SELECT id, conversation_id, role, model_id, content, mentions_json, parent_message_id, evaluation_score, meta_json, created_at
	FROM messages
	WHERE conversation_id = ?
	ORDER BY created_at ASC
	`

	rows, err := s.db.Query(query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []*core.ChatMessage
	for rows.Next() {
		var msg core.ChatMessage
		var modelID, mentionsJSON, parentID, metaJSON sql.NullString
		var score sql.NullFloat64

		err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Role,
			&modelID,
			&msg.Content,
			&mentionsJSON,
			&parentID,
			&score,
			&metaJSON,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg.ModelID = modelID.String
		msg.ParentMessageID = parentID.String
		if score.Valid {
			v := score.Float64
			msg.EvaluationScore = &v
		}
		if mentionsJSON.Valid {
			if err := json.Unmarshal([]byte(mentionsJSON.String), &msg.Mentions); err != nil {
				return nil, fmt.Errorf("failed to unmarshal mentions: %w", err)
			}
		}
		if metaJSON.Valid {
			if err := json.Unmarshal([]byte(metaJSON.String), &msg.Meta); err != nil {
				return nil, fmt.Errorf("failed to unmarshal message meta: %w", err)
			}
		}

		messages = append(messages, &msg)
	}

	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	return messages, nil
}

// SaveEvaluation inserts a judge verdict.
func (s *SQLiteStorage) SaveEvaluation(eval *core.EvaluationResult) error {
	criteriaJSON, err := json.Marshal(eval.Criteria)
	if err != nil {
		return fmt.Errorf("failed to marshal criteria: %w", err)
	}

	query := `
	INSERT INTO evaluations (id, task_id, model_id, judge_model_id, overall_score, criteria_json, rank, total_competitors, response_time_ms, token_cost, strength_summary, weakness_summary, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		eval.ID,
		eval.TaskID,
		eval.ModelID,
		eval.JudgeModelID,
		eval.OverallScore,
		string(criteriaJSON),
		eval.Rank,
		eval.TotalCompetitors,
		eval.ResponseTimeMs,
		eval.TokenCost,
		eval.StrengthSummary,
		eval.WeaknessSummary,
		eval.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert evaluation: %w", err)
	}

	return nil
}

// GetEvaluations returns all evaluations for a task, best rank first.
func (s *SQLiteStorage) GetEvaluations(taskID string) ([]*core.EvaluationResult, error) {
	query := `
	SELECT id, task_id, model_id, judge_model_id, overall_score, criteria_json, rank, total_competitors, response_time_ms, token_cost, strength_summary, weakness_summary, created_at
	FROM evaluations
	WHERE task_id = ?
	ORDER BY rank ASC
	`

	rows, err := s.db.Query(query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluations: %w", err)
	}
	defer rows.Close()

	var evals []*core.EvaluationResult
	for rows.Next() {
		var eval core.EvaluationResult
		var criteriaJSON string

		err := rows.Scan(
			&eval.ID,
			&eval.TaskID,
			&eval.ModelID,
			&eval.JudgeModelID,
			&eval.OverallScore,
			&criteriaJSON,
			&eval.Rank,
			&eval.TotalCompetitors,
			&eval.ResponseTimeMs,
			&eval.TokenCost,
			&eval.StrengthSummary,
			&eval.WeaknessSummary,
			&eval.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}

		if err := json.Unmarshal([]byte(criteriaJSON), &eval.Criteria); err != nil {
			return nil, fmt.Errorf("failed to unmarshal criteria: %w", err)
		}

		evals = append(evals, &eval)
	}

	return evals, nil
}

// SaveLeaderboardEntries upserts the full set of leaderboard summaries.
func (s *SQLiteStorage) SaveLeaderboardEntries(entries []core.LeaderboardEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO leaderboard_entries (model_id, category, average_score, total_evaluations, total_wins, win_rate, avg_response_time_ms, avg_token_cost, trend, last_evaluated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(model_id, category) DO UPDATE SET
		average_score = excluded.average_score,
		total_evaluations = excluded.total_evaluations,
		total_wins = excluded.total_wins,
		win_rate = excluded.win_rate,
		avg_response_time_ms = excluded.avg_response_time_ms,
		avg_token_cost = excluded.avg_token_cost,
		trend = excluded.trend,
		last_evaluated_at = excluded.last_evaluated_at
	`

	for _, entry := range entries {
		_, err := tx.Exec(query,
			entry.ModelID,
			entry.Category,
			entry.AverageScore,
			entry.TotalEvaluations,
			entry.TotalWins,
			entry.WinRate,
			entry.AvgResponseTime,
			entry.AvgTokenCost,
			entry.Trend,
			entry.LastEvaluatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert leaderboard entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit leaderboard entries: %w", err)
	}

	return nil
}

// LoadLeaderboardEntries returns every persisted leaderboard summary.
func (s *SQLiteStorage) LoadLeaderboardEntries() ([]core.LeaderboardEntry, error) {
	query := `
	SELECT model_id, category, average_score, total_evaluations, total_wins, win_rate, avg_response_time_ms, avg_token_cost, trend, last_evaluated_at
	FROM leaderboard_entries
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard entries: %w", err)
	}
	defer rows.Close()

	var entries []core.LeaderboardEntry
	for rows.Next() {
		var entry core.LeaderboardEntry
		err := rows.Scan(
			&entry.ModelID,
			&entry.Category,
			&entry.AverageScore,
			&entry.TotalEvaluations,
			&entry.TotalWins,
			&entry.WinRate,
			&entry.AvgResponseTime,
			&entry.AvgTokenCost,
			&entry.Trend,
			&entry.LastEvaluatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Roster returns the role assignment repository backed by this database.
func (s *SQLiteStorage) Roster() roster.Repository {
	return &rosterRepo{db: s.db}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "arena.db"
	}
	return filepath.Join(home, ".arena", "arena.db")
}
