// Package discussion ties the chat surface together: it stores user
// messages, runs a debate or a battle, and decides which model responses
// land in the conversation.
package discussion

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/alienxp03/arena/internal/battle"
	"github.com/alienxp03/arena/internal/conversation"
	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/debate"
	"github.com/alienxp03/arena/internal/memory"
	"github.com/alienxp03/arena/internal/registry"
	"github.com/alienxp03/arena/internal/roster"
	"github.com/alienxp03/arena/internal/turns"
)

// EventType tags events streamed during one discussion turn.
type EventType string

const (
	EventUserMessage         EventType = "user_message"
	EventModelResponse       EventType = "model_response"
	EventBattleProgress      EventType = "battle_progress"
	EventEvaluation          EventType = "evaluation"
	EventDebateStarted       EventType = "debate_started"
	EventAdvisorResponse     EventType = "advisor_response"
	EventDebateRoundComplete EventType = "debate_round_complete"
	EventConsensusReached    EventType = "consensus_reached"
	EventError               EventType = "error"
)

// Event is one streamed discussion update. Which fields are set depends on
// Type.
type Event struct {
	Type            EventType         `json:"type"`
	Message         *core.ChatMessage `json:"message,omitempty"`
	BattleResult    *battle.Result    `json:"battle_result,omitempty"`
	DebateResult    *debate.Result    `json:"debate_result,omitempty"`
	DebateRound     *core.DebateRound `json:"debate_round,omitempty"`
	DebateSessionID string            `json:"debate_session_id,omitempty"`
	Phase           string            `json:"phase,omitempty"`
	Detail          string            `json:"detail,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// State is the discussion's full mutable surface, threaded through each turn
// as an immutable value.
type State struct {
	Conversations *conversation.Manager
	Leaderboard   *battle.Leaderboard
	Registry      *registry.ModelRegistry
	Memory        *memory.Manager
}

const (
	recentContextSize          = 10
	topSpecialistCount         = 3
	memoryContextItems         = 3
	defaultConsensusImportance = 0.5
)

// Orchestrator drives one discussion turn at a time.
type Orchestrator struct {
	battle  *battle.Orchestrator
	turns   *turns.Manager
	debate  *debate.Engine
	roster  *roster.Service
	battleO battle.Options
	logger  *slog.Logger
}

// NewOrchestrator wires a discussion orchestrator. debateEngine and
// rosterService may be nil, which disables debate mode.
func NewOrchestrator(battleOrch *battle.Orchestrator, turnManager *turns.Manager, debateEngine *debate.Engine, rosterService *roster.Service, battleOpts battle.Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		battle:  battleOrch,
		turns:   turnManager,
		debate:  debateEngine,
		roster:  rosterService,
		battleO: battleOpts,
		logger:  logger,
	}
}

// HandleUserMessage processes one user message end to end and returns the
// updated state. The user message is always persisted, even when everything
// downstream fails. Debate mode runs when a debate engine is wired and the
// roster has at least one assignment; a debate failure falls back to a
// battle.
func (o *Orchestrator) HandleUserMessage(ctx context.Context, state State, conversationID, content string, onEvent func(Event)) (State, error) {
	userMessage := core.ChatMessage{
		ID:             core.NewID(),
		ConversationID: conversationID,
		Role:           core.RoleUser,
		Content:        content,
		Mentions:       core.ParseMentions(content, state.Registry.ActiveIDs()),
		CreatedAt:      time.Now(),
	}
	state.Conversations = state.Conversations.AddMessage(userMessage)
	o.emit(onEvent, Event{Type: EventUserMessage, Message: &userMessage})

	recentContext := state.Conversations.RecentContext(conversationID, recentContextSize)
	if remembered := o.rememberedContext(&state, content); remembered != nil {
		recentContext = append([]core.ContextMessage{*remembered}, recentContext...)
	}

	if o.debateModeEnabled(ctx) {
		return o.handleDebate(ctx, state, conversationID, content, userMessage, recentContext, onEvent)
	}
	return o.handleBattle(ctx, state, conversationID, content, userMessage, recentContext, onEvent)
}

func (o *Orchestrator) debateModeEnabled(ctx context.Context) bool {
	if o.debate == nil || o.roster == nil {
		return false
	}
	assignments, err := o.roster.AllAssignments(ctx)
	if err != nil {
		o.logger.Warn("roster lookup failed, debate mode disabled for this turn", "error", err)
		return false
	}
	return len(assignments) > 0
}

func (o *Orchestrator) handleDebate(ctx context.Context, state State, conversationID, content string, userMessage core.ChatMessage, recentContext []core.ContextMessage, onEvent func(Event)) (State, error) {
	debateSessionID := core.NewID()
	o.emit(onEvent, Event{Type: EventDebateStarted, DebateSessionID: debateSessionID})

	result, err := o.debate.InitiateDebate(ctx, conversationID, content, userMessage.ID, recentContext, func(round core.DebateRound) {
		for i := range round.Responses {
			response := round.Responses[i]
			state.Conversations = state.Conversations.AddMessage(response)
			o.emit(onEvent, Event{Type: EventAdvisorResponse, Message: &response, DebateSessionID: debateSessionID})
		}
		o.emit(onEvent, Event{Type: EventDebateRoundComplete, DebateRound: &round, DebateSessionID: debateSessionID})
	})
	if err != nil {
		o.emit(onEvent, Event{Type: EventError, Error: fmt.Sprintf("Debate failed: %s. Falling back to battle mode.", err.Error())})
		return o.handleBattle(ctx, state, conversationID, content, userMessage, recentContext, onEvent)
	}

	recommendation := core.ChatMessage{
		ID:              core.NewID(),
		ConversationID:  conversationID,
		Role:            core.RoleSystem,
		Content:         formatDebateRecommendation(result),
		ParentMessageID: userMessage.ID,
		Meta: core.MessageMeta{
			Recommendation: &core.RecommendationMeta{
				DebateSessionID: debateSessionID,
				Status:          string(result.Status),
				TotalRounds:     result.TotalRounds,
				ConsensusScore:  result.ConsensusScore,
			},
		},
		CreatedAt: time.Now(),
	}
	state.Conversations = state.Conversations.AddMessage(recommendation)
	o.emit(onEvent, Event{Type: EventConsensusReached, DebateResult: result, DebateSessionID: debateSessionID, Message: &recommendation})

	return state, nil
}

func (o *Orchestrator) handleBattle(ctx context.Context, state State, conversationID, content string, userMessage core.ChatMessage, recentContext []core.ContextMessage, onEvent func(Event)) (State, error) {
	mentionedIDs := core.MentionedModelIDs(userMessage.Mentions)

	opts := o.battleO
	opts.OnProgress = func(phase, detail string, models []string) {
		o.emit(onEvent, Event{Type: EventBattleProgress, Phase: phase, Detail: detail})
	}

	result, updatedLB, err := o.battle.Execute(ctx, state.Leaderboard, state.Registry, content, conversationID, recentContext, opts)
	if err != nil {
		o.emit(onEvent, Event{Type: EventError, Error: err.Error()})
		return state, nil
	}
	state.Leaderboard = updatedLB

	o.emit(onEvent, Event{Type: EventEvaluation, BattleResult: result})

	var specialistIDs []string
	for _, e := range state.Leaderboard.TopForCategory(result.Task.Category, topSpecialistCount) {
		specialistIDs = append(specialistIDs, e.ModelID)
	}

	var scores []turns.Score
	for _, e := range result.Evaluations {
		scores = append(scores, turns.Score{ModelID: e.ModelID, Score: e.OverallScore})
	}
	decisions := o.turns.Decide(turns.Context{
		MentionedModelIDs:   mentionedIDs,
		BattleWinnerModelID: result.WinnerModelID,
		SpecialistModelIDs:  specialistIDs,
		Evaluations:         scores,
	})

	winnerMessage := core.ChatMessage{
		ID:              core.NewID(),
		ConversationID:  conversationID,
		Role:            core.RoleModel,
		ModelID:         result.WinnerModelID,
		Content:         result.WinnerResponse,
		Mentions:        userMessage.Mentions,
		ParentMessageID: userMessage.ID,
		EvaluationScore: scoreFor(result.Evaluations, result.WinnerModelID),
		CreatedAt:       time.Now(),
	}
	state.Conversations = state.Conversations.AddMessage(winnerMessage)
	o.emit(onEvent, Event{Type: EventModelResponse, Message: &winnerMessage})

	for _, decision := range decisions {
		if decision.ModelID == result.WinnerModelID {
			continue
		}
		var followUpContent string
		for _, resp := range result.Responses {
			if resp.ModelID == decision.ModelID {
				followUpContent = resp.Content
				break
			}
		}
		if followUpContent == "" {
			continue
		}

		followUp := core.ChatMessage{
			ID:              core.NewID(),
			ConversationID:  conversationID,
			Role:            core.RoleModel,
			ModelID:         decision.ModelID,
			Content:         followUpContent,
			ParentMessageID: userMessage.ID,
			EvaluationScore: scoreFor(result.Evaluations, decision.ModelID),
			Meta:            core.MessageMeta{Turn: &core.TurnMeta{Reason: decision.Reason}},
			CreatedAt:       time.Now(),
		}
		state.Conversations = state.Conversations.AddMessage(followUp)
		o.emit(onEvent, Event{Type: EventModelResponse, Message: &followUp})
	}

	if result.Consensus != "" && len(result.Responses) > 1 {
		summary := core.ChatMessage{
			ID:              core.NewID(),
			ConversationID:  conversationID,
			Role:            core.RoleSystem,
			Content:         formatConsensus(result),
			ParentMessageID: userMessage.ID,
			Meta:            core.MessageMeta{ConsensusSummary: true},
			CreatedAt:       time.Now(),
		}
		state.Conversations = state.Conversations.AddMessage(summary)
		o.emit(onEvent, Event{Type: EventModelResponse, Message: &summary})
		state.Memory = o.rememberConsensus(state.Memory, result)
	}

	return state, nil
}

// rememberedContext surfaces stored facts relevant to the user's message as a
// leading system context entry. Matched items get an access bump so they rank
// higher next time.
func (o *Orchestrator) rememberedContext(state *State, query string) *core.ContextMessage {
	if state.Memory == nil {
		return nil
	}
	results := state.Memory.Search(query, memoryContextItems)
	if len(results) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("Relevant facts from earlier discussions:")
	for _, r := range results {
		sb.WriteString("\n- ")
		sb.WriteString(r.Item.Content)
		state.Memory = state.Memory.RecordAccess(r.Item.ID)
	}
	return &core.ContextMessage{Role: string(core.RoleSystem), Content: sb.String()}
}

// rememberConsensus files a judged battle's consensus under a category named
// for the task category, weighted by the winner's score.
func (o *Orchestrator) rememberConsensus(mem *memory.Manager, result *battle.Result) *memory.Manager {
	if mem == nil {
		return nil
	}

	catName := string(result.Task.Category)
	cat, ok := mem.CategoryByName(catName)
	if !ok {
		mem, cat = mem.CreateCategory(catName, "Consensus from judged battles", "")
	}

	importance := defaultConsensusImportance
	if score := scoreFor(result.Evaluations, result.WinnerModelID); score != nil {
		importance = *score / 100
	}

	var item memory.Item
	mem, item = mem.AddItem(cat.ID, result.Consensus, importance)
	mem, _ = mem.AddResource(item.ID, memory.ResourceEvaluation, result.Task.ID, result.WinnerResponse)
	return mem
}

func (o *Orchestrator) emit(onEvent func(Event), event Event) {
	if onEvent != nil {
		onEvent(event)
	}
}

func scoreFor(evals []core.EvaluationResult, modelID string) *float64 {
	for _, e := range evals {
		if e.ModelID == modelID {
			score := e.OverallScore
			return &score
		}
	}
	return nil
}

func formatConsensus(result *battle.Result) string {
	var parts []string
	if result.Consensus != "" {
		parts = append(parts, "**Consensus**: "+result.Consensus)
	}
	if result.Divergences != "" {
		parts = append(parts, "**Divergences**: "+result.Divergences)
	}

	ranked := make([]core.EvaluationResult, len(result.Evaluations))
	copy(ranked, result.Evaluations)
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Rank < ranked[j].Rank })

	var rankings []string
	for _, e := range ranked {
		rankings = append(rankings, fmt.Sprintf("%d. %s (%.0f/100)", e.Rank, e.ModelID, e.OverallScore))
	}
	if len(rankings) > 0 {
		parts = append(parts, "**Rankings**: "+strings.Join(rankings, " | "))
	}
	return strings.Join(parts, "\n\n")
}

func formatDebateRecommendation(result *debate.Result) string {
	var parts []string
	parts = append(parts, "## Executive Advisory Team Recommendation", "")

	statusText := fmt.Sprintf("Maximum Rounds Reached (%d rounds)", result.TotalRounds)
	if result.Status == debate.StatusConsensusReached {
		statusText = fmt.Sprintf("Consensus Reached (%.0f%%)", result.ConsensusScore*100)
	}
	parts = append(parts, "**Status**: "+statusText, "")

	parts = append(parts, "**Recommendation**:", result.FinalRecommendation, "")

	if len(result.AreasOfAgreement) > 0 {
		parts = append(parts, "**Areas of Agreement**:")
		for _, area := range result.AreasOfAgreement {
			parts = append(parts, "- "+area)
		}
		parts = append(parts, "")
	}

	seen := make(map[string]bool)
	var participants []string
	for _, round := range result.Rounds {
		for _, resp := range round.Responses {
			if resp.ModelID != "" && !seen[resp.ModelID] {
				seen[resp.ModelID] = true
				participants = append(participants, resp.ModelID)
			}
		}
	}
	parts = append(parts, "**Participants**: "+strings.Join(participants, ", "))

	return strings.Join(parts, "\n")
}
