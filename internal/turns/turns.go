// Package turns decides which models speak in free discussion. Models do not
// take strict turns; the manager ranks candidates by why they should respond
// and caps how many speak per user message.
package turns

import (
	"sort"

	"github.com/alienxp03/arena/internal/core"
)

// Decision selects one model to respond, with the reason it was chosen.
// Priority 1 is highest.
type Decision struct {
	ModelID  string          `json:"model_id"`
	Reason   core.TurnReason `json:"reason"`
	Priority int             `json:"priority"`
}

// Score pairs a model with its latest evaluation score.
type Score struct {
	ModelID string
	Score   float64
}

// Context is everything the manager considers for one turn.
type Context struct {
	MentionedModelIDs   []string
	BattleWinnerModelID string
	SpecialistModelIDs  []string
	Evaluations         []Score
	ChallengerModelID   string
}

// Config bounds turn decisions.
type Config struct {
	MaxRespondersPerTurn int
	EnableFollowUp       bool
	FollowUpThreshold    float64
}

// DefaultConfig returns the standard turn settings.
func DefaultConfig() Config {
	return Config{
		MaxRespondersPerTurn: 3,
		EnableFollowUp:       true,
		FollowUpThreshold:    15,
	}
}

// Manager makes turn decisions. It holds no mutable state; Decide is pure.
type Manager struct {
	config Config
}

// NewManager creates a turn manager. A zero MaxRespondersPerTurn takes the
// default.
func NewManager(config Config) *Manager {
	if config.MaxRespondersPerTurn <= 0 {
		config.MaxRespondersPerTurn = DefaultConfig().MaxRespondersPerTurn
	}
	return &Manager{config: config}
}

// Decide ranks candidate responders. Mentions beat the battle winner, which
// beats specialists, follow-ups, and finally the challenger slot. Each model
// appears at most once, keeping its highest-priority reason, and the result
// is truncated to MaxRespondersPerTurn.
func (m *Manager) Decide(ctx Context) []Decision {
	var decisions []Decision
	selected := make(map[string]bool)

	add := func(modelID string, reason core.TurnReason, priority int) {
		if modelID == "" || selected[modelID] {
			return
		}
		decisions = append(decisions, Decision{ModelID: modelID, Reason: reason, Priority: priority})
		selected[modelID] = true
	}

	for _, modelID := range ctx.MentionedModelIDs {
		add(modelID, core.ReasonMentioned, 1)
	}

	add(ctx.BattleWinnerModelID, core.ReasonBattleWinner, 2)

	for _, modelID := range ctx.SpecialistModelIDs {
		add(modelID, core.ReasonSpecialist, 3)
	}

	// Strong runners-up get a follow-up slot when they scored within the
	// threshold of the top response.
	if m.config.EnableFollowUp && len(ctx.Evaluations) > 1 {
		ranked := make([]Score, len(ctx.Evaluations))
		copy(ranked, ctx.Evaluations)
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

		topScore := ranked[0].Score
		for _, ev := range ranked {
			if topScore-ev.Score <= m.config.FollowUpThreshold {
				add(ev.ModelID, core.ReasonFollowUp, 4)
			}
		}
	}

	add(ctx.ChallengerModelID, core.ReasonChallenger, 5)

	sort.SliceStable(decisions, func(i, j int) bool { return decisions[i].Priority < decisions[j].Priority })
	if len(decisions) > m.config.MaxRespondersPerTurn {
		decisions = decisions[:m.config.MaxRespondersPerTurn]
	}
	return decisions
}
