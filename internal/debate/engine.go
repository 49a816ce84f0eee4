// Package debate runs multi-round structured debates between role-assigned
// advisor models, with judge-driven consensus detection.
package debate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/immutable"
	"github.com/alienxp03/arena/internal/provider"
)

// Status is the terminal state of a debate.
type Status string

const (
	StatusConsensusReached  Status = "consensus_reached"
	StatusMaxRoundsExceeded Status = "max_rounds_exceeded"
	StatusError             Status = "error"
)

// Config controls debate length and convergence.
type Config struct {
	MaxRounds            int
	ConsensusThreshold   float64
	EnableConsensusCheck bool
	TurnOrder            []core.DebateRole
}

// DefaultConfig returns the standard debate settings.
func DefaultConfig() Config {
	return Config{
		MaxRounds:            5,
		ConsensusThreshold:   0.8,
		EnableConsensusCheck: true,
		TurnOrder:            []core.DebateRole{core.RoleStrategy, core.RoleTech, core.RoleProduct, core.RoleExecution},
	}
}

// Result is the complete outcome of one debate.
type Result struct {
	Rounds              []core.DebateRound `json:"rounds"`
	Status              Status             `json:"status"`
	FinalRecommendation string             `json:"final_recommendation"`
	TotalRounds         int                `json:"total_rounds"`
	ConsensusScore      float64            `json:"consensus_score,omitempty"`
	AreasOfAgreement    []string           `json:"areas_of_agreement"`
}

// SpecialistLookup resolves a debate role to its assigned model. An empty
// model ID means the role is unassigned.
type SpecialistLookup interface {
	SpecialistForRole(ctx context.Context, role core.DebateRole) (string, error)
}

// Engine runs structured debates.
type Engine struct {
	lookup   provider.Lookup
	roster   SpecialistLookup
	detector *Detector
	config   Config
	logger   *slog.Logger
}

// NewEngine creates a debate engine. Zero-valued config fields take their
// defaults from DefaultConfig.
func NewEngine(lookup provider.Lookup, roster SpecialistLookup, detector *Detector, config Config, logger *slog.Logger) *Engine {
	defaults := DefaultConfig()
	if config.MaxRounds <= 0 {
		config.MaxRounds = defaults.MaxRounds
	}
	if config.ConsensusThreshold <= 0 {
		config.ConsensusThreshold = defaults.ConsensusThreshold
	}
	if len(config.TurnOrder) == 0 {
		config.TurnOrder = defaults.TurnOrder
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{lookup: lookup, roster: roster, detector: detector, config: config, logger: logger}
}

// InitiateDebate runs up to MaxRounds rounds of advisor responses. Within a
// round each role speaks in turn order and sees everything said before it,
// including earlier speakers of the same round. Unassigned roles are skipped;
// a failed advisor becomes an error-tagged system message and the debate
// continues. Consensus is checked from round two onward.
func (e *Engine) InitiateDebate(ctx context.Context, conversationID, userMessage, userMessageID string, conversationContext []core.ContextMessage, onRound func(core.DebateRound)) (*Result, error) {
	var rounds []core.DebateRound
	var debateHistory []core.ChatMessage

	currentContext := immutable.Append(conversationContext, core.ContextMessage{Role: "user", Content: userMessage})

	for roundNum := 1; roundNum <= e.config.MaxRounds; roundNum++ {
		historyBefore := len(debateHistory)
		var roundResponses []core.ChatMessage

		for _, role := range e.config.TurnOrder {
			modelID, err := e.roster.SpecialistForRole(ctx, role)
			if err != nil {
				return nil, fmt.Errorf("resolve specialist for %s: %w", role, err)
			}
			if modelID == "" {
				continue
			}

			msg := e.runAdvisor(ctx, conversationID, userMessageID, modelID, role, roundNum, userMessage, currentContext, debateHistory)
			roundResponses = append(roundResponses, msg)
			if !msg.Meta.Debate.Error {
				debateHistory = append(debateHistory, msg)
			}
		}

		var consensusCheck *core.ConsensusResult
		if e.config.EnableConsensusCheck && roundNum > 1 {
			check, err := e.detector.Detect(ctx, debateHistory[:historyBefore], roundResponses)
			if err != nil {
				e.logger.Warn("consensus detection failed, continuing debate", "round", roundNum, "error", err)
			} else {
				consensusCheck = check
			}
		}

		round := core.DebateRound{
			RoundNumber:    roundNum,
			Responses:      roundResponses,
			ConsensusCheck: consensusCheck,
		}
		rounds = append(rounds, round)
		if onRound != nil {
			onRound(round)
		}

		if consensusCheck != nil && consensusCheck.HasConsensus && consensusCheck.ConsensusScore >= e.config.ConsensusThreshold {
			return &Result{
				Rounds:              rounds,
				Status:              StatusConsensusReached,
				FinalRecommendation: synthesizeRecommendation(roundResponses, consensusCheck),
				TotalRounds:         roundNum,
				ConsensusScore:      consensusCheck.ConsensusScore,
				AreasOfAgreement:    consensusCheck.AreasOfAgreement,
			}, nil
		}
	}

	result := &Result{
		Rounds:           rounds,
		Status:           StatusMaxRoundsExceeded,
		TotalRounds:      e.config.MaxRounds,
		AreasOfAgreement: []string{},
	}
	if len(rounds) > 0 {
		last := rounds[len(rounds)-1]
		result.FinalRecommendation = synthesizeRecommendation(last.Responses, last.ConsensusCheck)
		if last.ConsensusCheck != nil {
			result.ConsensusScore = last.ConsensusCheck.ConsensusScore
			result.AreasOfAgreement = last.ConsensusCheck.AreasOfAgreement
		}
	} else {
		result.FinalRecommendation = synthesizeRecommendation(nil, nil)
	}
	return result, nil
}

func (e *Engine) runAdvisor(ctx context.Context, conversationID, userMessageID, modelID string, role core.DebateRole, roundNum int, userMessage string, currentContext []core.ContextMessage, debateHistory []core.ChatMessage) core.ChatMessage {
	fullContext := make([]core.ContextMessage, 0, len(currentContext)+len(debateHistory)+1)
	fullContext = append(fullContext, currentContext...)
	for _, m := range debateHistory {
		fullContext = append(fullContext, core.ContextMessage{Role: string(m.Role), Content: m.Content})
	}
	fullContext = append(fullContext, core.ContextMessage{
		Role:    "user",
		Content: buildRolePrompt(role, userMessage, debateHistory, roundNum),
	})

	resp, err := e.complete(ctx, modelID, fullContext)
	if err != nil {
		e.logger.Warn("advisor failed, continuing with remaining roles",
			"role", role, "model", modelID, "round", roundNum, "error", err)
		return core.ChatMessage{
			ID:              core.NewID(),
			ConversationID:  conversationID,
			Role:            core.RoleSystem,
			Content:         fmt.Sprintf("[%s advisor error: %s]", role, err.Error()),
			ParentMessageID: userMessageID,
			Meta: core.MessageMeta{
				Debate: &core.DebateMeta{Role: role, Round: roundNum, Error: true},
			},
			CreatedAt: time.Now(),
		}
	}

	return core.ChatMessage{
		ID:              core.NewID(),
		ConversationID:  conversationID,
		Role:            core.RoleModel,
		ModelID:         modelID,
		Content:         resp.Content,
		ParentMessageID: userMessageID,
		Meta: core.MessageMeta{
			Debate: &core.DebateMeta{Role: role, Round: roundNum},
		},
		CreatedAt: time.Now(),
	}
}

func (e *Engine) complete(ctx context.Context, modelID string, messages []core.ContextMessage) (*provider.CompletionResponse, error) {
	p, ok := e.lookup(modelID)
	if !ok {
		return nil, fmt.Errorf("no provider found for model: %s", modelID)
	}
	return p.Complete(ctx, &provider.CompletionRequest{
		ModelID:     modelID,
		Messages:    messages,
		MaxTokens:   2000,
		Temperature: 0.7,
	})
}
