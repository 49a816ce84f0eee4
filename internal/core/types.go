// Package core contains the core domain types for arena.
package core

import (
	"time"
)

// TaskCategory classifies what kind of request the user made.
type TaskCategory string

const (
	CategoryStrategy       TaskCategory = "strategy"
	CategoryTechnical      TaskCategory = "technical"
	CategoryMarketAnalysis TaskCategory = "market-analysis"
	CategoryFinancial      TaskCategory = "financial"
	CategoryLegal          TaskCategory = "legal"
	CategoryCreative       TaskCategory = "creative"
	CategoryResearch       TaskCategory = "research"
	CategoryPlanning       TaskCategory = "planning"
	CategoryGeneral        TaskCategory = "general"
)

// AllCategories lists every valid task category.
var AllCategories = []TaskCategory{
	CategoryStrategy,
	CategoryTechnical,
	CategoryMarketAnalysis,
	CategoryFinancial,
	CategoryLegal,
	CategoryCreative,
	CategoryResearch,
	CategoryPlanning,
	CategoryGeneral,
}

// ValidCategory reports whether c is a known task category.
func ValidCategory(c TaskCategory) bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// TaskComplexity describes how involved a request is.
type TaskComplexity string

const (
	ComplexitySimple      TaskComplexity = "simple"
	ComplexityModerate    TaskComplexity = "moderate"
	ComplexityComplex     TaskComplexity = "complex"
	ComplexityMultiDomain TaskComplexity = "multi-domain"
)

// ValidComplexity reports whether c is a known complexity level.
func ValidComplexity(c TaskComplexity) bool {
	switch c {
	case ComplexitySimple, ComplexityModerate, ComplexityComplex, ComplexityMultiDomain:
		return true
	}
	return false
}

// TaskStatus tracks a task through its lifecycle.
type TaskStatus string

const (
	TaskAnalyzing  TaskStatus = "analyzing"
	TaskCompeting  TaskStatus = "competing"
	TaskDiscussing TaskStatus = "discussing"
	TaskComplete   TaskStatus = "complete"
)

// SubtaskStatus tracks a subtask's lifecycle.
type SubtaskStatus string

const (
	SubtaskPending    SubtaskStatus = "pending"
	SubtaskInProgress SubtaskStatus = "in-progress"
	SubtaskComplete   SubtaskStatus = "complete"
	SubtaskFailed     SubtaskStatus = "failed"
)

// Capability tags what a model is good at.
type Capability string

const (
	CapStrategy         Capability = "strategy"
	CapTechArchitecture Capability = "technical-architecture"
	CapCodeGeneration   Capability = "code-generation"
	CapCodeReview       Capability = "code-review"
	CapMarketAnalysis   Capability = "market-analysis"
	CapFinancialModel   Capability = "financial-modeling"
	CapLegalAnalysis    Capability = "legal-analysis"
	CapCreativeWriting  Capability = "creative-writing"
	CapDataAnalysis     Capability = "data-analysis"
	CapResearch         Capability = "research"
	CapDebate           Capability = "debate"
	CapSynthesis        Capability = "synthesis"
	CapPlanning         Capability = "planning"
	CapMathReasoning    Capability = "math-reasoning"
)

// Subtask is one unit of a decomposed task.
type Subtask struct {
	ID                   string        `json:"id"`
	ParentTaskID         string        `json:"parent_task_id"`
	Category             TaskCategory  `json:"category"`
	Description          string        `json:"description"`
	RequiredCapabilities []Capability  `json:"required_capabilities"`
	Priority             int           `json:"priority"` // 1-10
	Status               SubtaskStatus `json:"status"`
}

// Task is the analysis result of one user request.
type Task struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	UserMessage    string         `json:"user_message"`
	Category       TaskCategory   `json:"category"`
	Complexity     TaskComplexity `json:"complexity"`
	Subtasks       []Subtask      `json:"subtasks,omitempty"`
	Status         TaskStatus     `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
}

// ModelTier groups models by capability/cost class.
type ModelTier string

const (
	TierFrontier  ModelTier = "frontier"
	TierStrong    ModelTier = "strong"
	TierEfficient ModelTier = "efficient"
	TierBudget    ModelTier = "budget"
)

// ModelEntry describes one model known to the system.
type ModelEntry struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Provider           string       `json:"provider"`
	ContextWindow      int          `json:"context_window"`
	MaxOutputTokens    int          `json:"max_output_tokens"`
	CostPerInputToken  float64      `json:"cost_per_input_token"`
	CostPerOutputToken float64      `json:"cost_per_output_token"`
	Capabilities       []Capability `json:"capabilities"`
	Tier               ModelTier    `json:"tier"`
	Active             bool         `json:"active"`
}

// ChatRole identifies who authored a chat message.
type ChatRole string

const (
	RoleUser   ChatRole = "user"
	RoleModel  ChatRole = "model"
	RoleSystem ChatRole = "system"
	RoleJudge  ChatRole = "judge"
)

// Mention marks an @model reference inside a message's content.
type Mention struct {
	ModelID    string `json:"model_id"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

// DebateRole is an advisory seat in a structured debate.
type DebateRole string

const (
	RoleStrategy  DebateRole = "strategy"
	RoleTech      DebateRole = "tech"
	RoleProduct   DebateRole = "product"
	RoleExecution DebateRole = "execution"
)

// TurnReason explains why a model was chosen to speak.
type TurnReason string

const (
	ReasonMentioned    TurnReason = "mentioned"
	ReasonBattleWinner TurnReason = "battle_winner"
	ReasonSpecialist   TurnReason = "specialist"
	ReasonFollowUp     TurnReason = "follow_up"
	ReasonChallenger   TurnReason = "challenger"
)

// DebateMeta tags messages produced inside a debate round.
type DebateMeta struct {
	Role  DebateRole `json:"role"`
	Round int        `json:"round"`
	Error bool       `json:"error,omitempty"`
}

// TurnMeta tags follow-up responses with the turn decision that produced them.
type TurnMeta struct {
	Reason TurnReason `json:"reason"`
}

// RecommendationMeta tags the final summary message of a debate.
type RecommendationMeta struct {
	DebateSessionID string  `json:"debate_session_id"`
	Status          string  `json:"status"`
	TotalRounds     int     `json:"total_rounds"`
	ConsensusScore  float64 `json:"consensus_score,omitempty"`
}

// MessageMeta is a closed union of per-context message annotations. At most
// one pointer field is set per message.
type MessageMeta struct {
	Debate           *DebateMeta         `json:"debate,omitempty"`
	Turn             *TurnMeta           `json:"turn,omitempty"`
	Recommendation   *RecommendationMeta `json:"recommendation,omitempty"`
	ConsensusSummary bool                `json:"consensus_summary,omitempty"`
}

// IsZero reports whether no annotation is set.
func (m MessageMeta) IsZero() bool {
	return m.Debate == nil && m.Turn == nil && m.Recommendation == nil && !m.ConsensusSummary
}

// ChatMessage is one append-only entry in a conversation. Messages are never
// mutated after creation.
type ChatMessage struct {
	ID              string      `json:"id"`
	ConversationID  string      `json:"conversation_id"`
	Role            ChatRole    `json:"role"`
	ModelID         string      `json:"model_id,omitempty"`
	Content         string      `json:"content"`
	Mentions        []Mention   `json:"mentions,omitempty"`
	ParentMessageID string      `json:"parent_message_id,omitempty"`
	EvaluationScore *float64    `json:"evaluation_score,omitempty"`
	Meta            MessageMeta `json:"meta,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// ContextMessage is the minimal shape handed to completion providers.
type ContextMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationStatus tracks a conversation's lifecycle.
type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationArchived ConversationStatus = "archived"
)

// Conversation is one chat session.
type Conversation struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Status       ConversationStatus `json:"status"`
	MessageCount int                `json:"message_count"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// EvaluationCriterion is one named sub-score from a judging pass.
type EvaluationCriterion struct {
	Name      string  `json:"name"`
	Score     float64 `json:"score"` // 0-100
	Reasoning string  `json:"reasoning"`
}

// EvaluationResult is a judge's verdict on one model response.
type EvaluationResult struct {
	ID               string                `json:"id"`
	TaskID           string                `json:"task_id"`
	ModelID          string                `json:"model_id"`
	JudgeModelID     string                `json:"judge_model_id"`
	OverallScore     float64               `json:"overall_score"` // 0-100
	Criteria         []EvaluationCriterion `json:"criteria"`
	Rank             int                   `json:"rank"` // 1 = best
	TotalCompetitors int                   `json:"total_competitors"`
	ResponseTimeMs   int64                 `json:"response_time_ms"`
	TokenCost        float64               `json:"token_cost"`
	StrengthSummary  string                `json:"strength_summary,omitempty"`
	WeaknessSummary  string                `json:"weakness_summary,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
}

// Trend describes a model's recent score direction.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// LeaderboardEntry is the public per-(model, category) summary.
type LeaderboardEntry struct {
	ModelID          string    `json:"model_id"`
	Category         string    `json:"category"`
	AverageScore     float64   `json:"average_score"`
	TotalEvaluations int       `json:"total_evaluations"`
	TotalWins        int       `json:"total_wins"`
	WinRate          float64   `json:"win_rate"`
	AvgResponseTime  float64   `json:"avg_response_time_ms"`
	AvgTokenCost     float64   `json:"avg_token_cost"`
	Trend            Trend     `json:"trend"`
	LastEvaluatedAt  time.Time `json:"last_evaluated_at"`
}

// ConsensusResult is the detector's verdict on one debate round.
type ConsensusResult struct {
	HasConsensus        bool     `json:"has_consensus"`
	ConsensusScore      float64  `json:"consensus_score"` // 0.0-1.0
	Reasoning           string   `json:"reasoning"`
	AreasOfAgreement    []string `json:"areas_of_agreement"`
	AreasOfDisagreement []string `json:"areas_of_disagreement"`
}

// DebateRound holds one round's responses plus its optional consensus check.
type DebateRound struct {
	RoundNumber    int              `json:"round_number"`
	Responses      []ChatMessage    `json:"responses"`
	ConsensusCheck *ConsensusResult `json:"consensus_check,omitempty"`
}
