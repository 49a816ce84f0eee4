package turns

import (
	"testing"

	"github.com/alienxp03/arena/internal/core"
)

func TestDecide(t *testing.T) {
	t.Run("MentionsFirst", func(t *testing.T) {
		m := NewManager(Config{MaxRespondersPerTurn: 5})
		decisions := m.Decide(Context{
			MentionedModelIDs:   []string{"a", "b"},
			BattleWinnerModelID: "c",
		})

		if len(decisions) != 3 {
			t.Fatalf("wrong count: %d", len(decisions))
		}
		if decisions[0].ModelID != "a" || decisions[0].Reason != core.ReasonMentioned {
			t.Errorf("wrong first: %+v", decisions[0])
		}
		if decisions[2].ModelID != "c" || decisions[2].Reason != core.ReasonBattleWinner {
			t.Errorf("wrong third: %+v", decisions[2])
		}
	})

	t.Run("DedupeKeepsHighestPriority", func(t *testing.T) {
		m := NewManager(Config{MaxRespondersPerTurn: 5})
		decisions := m.Decide(Context{
			MentionedModelIDs:   []string{"a"},
			BattleWinnerModelID: "a",
		})

		if len(decisions) != 1 {
			t.Fatalf("wrong count: %d", len(decisions))
		}
		if decisions[0].Reason != core.ReasonMentioned || decisions[0].Priority != 1 {
			t.Errorf("wrong reason kept: %+v", decisions[0])
		}
	})

	t.Run("FollowUpWithinThreshold", func(t *testing.T) {
		m := NewManager(Config{MaxRespondersPerTurn: 5, EnableFollowUp: true, FollowUpThreshold: 15})
		decisions := m.Decide(Context{
			BattleWinnerModelID: "winner",
			Evaluations: []Score{
				{ModelID: "winner", Score: 90},
				{ModelID: "close", Score: 80},
				{ModelID: "far", Score: 60},
			},
		})

		if len(decisions) != 2 {
			t.Fatalf("wrong count: %v", decisions)
		}
		if decisions[1].ModelID != "close" || decisions[1].Reason != core.ReasonFollowUp {
			t.Errorf("wrong follow-up: %+v", decisions[1])
		}
	})

	t.Run("FollowUpDisabled", func(t *testing.T) {
		m := NewManager(Config{MaxRespondersPerTurn: 5, EnableFollowUp: false, FollowUpThreshold: 15})
		decisions := m.Decide(Context{
			BattleWinnerModelID: "winner",
			Evaluations: []Score{
				{ModelID: "winner", Score: 90},
				{ModelID: "close", Score: 85},
			},
		})

		if len(decisions) != 1 {
			t.Errorf("wrong count: %v", decisions)
		}
	})

	t.Run("SingleEvaluationNoFollowUp", func(t *testing.T) {
		m := NewManager(Config{MaxRespondersPerTurn: 5, EnableFollowUp: true, FollowUpThreshold: 15})
		decisions := m.Decide(Context{
			BattleWinnerModelID: "winner",
			Evaluations:         []Score{{ModelID: "winner", Score: 90}},
		})

		if len(decisions) != 1 {
			t.Errorf("wrong count: %v", decisions)
		}
	})

	t.Run("TruncatesToMax", func(t *testing.T) {
		m := NewManager(Config{MaxRespondersPerTurn: 2})
		decisions := m.Decide(Context{
			MentionedModelIDs:   []string{"a", "b"},
			BattleWinnerModelID: "c",
			SpecialistModelIDs:  []string{"d"},
			ChallengerModelID:   "e",
		})

		if len(decisions) != 2 {
			t.Fatalf("wrong count: %d", len(decisions))
		}
		// Highest priorities survive the cut
		if decisions[0].ModelID != "a" || decisions[1].ModelID != "b" {
			t.Errorf("wrong survivors: %v", decisions)
		}
	})

	t.Run("FullPriorityOrder", func(t *testing.T) {
		m := NewManager(Config{MaxRespondersPerTurn: 10, EnableFollowUp: true, FollowUpThreshold: 15})
		decisions := m.Decide(Context{
			MentionedModelIDs:   []string{"mentioned"},
			BattleWinnerModelID: "winner",
			SpecialistModelIDs:  []string{"specialist"},
			Evaluations: []Score{
				{ModelID: "winner", Score: 90},
				{ModelID: "runner-up", Score: 82},
			},
			ChallengerModelID: "challenger",
		})

		want := []struct {
			modelID string
			reason  core.TurnReason
		}{
			{"mentioned", core.ReasonMentioned},
			{"winner", core.ReasonBattleWinner},
			{"specialist", core.ReasonSpecialist},
			{"runner-up", core.ReasonFollowUp},
			{"challenger", core.ReasonChallenger},
		}
		if len(decisions) != len(want) {
			t.Fatalf("wrong count: %v", decisions)
		}
		for i, w := range want {
			if decisions[i].ModelID != w.modelID || decisions[i].Reason != w.reason {
				t.Errorf("position %d: got %s/%s, want %s/%s",
					i, decisions[i].ModelID, decisions[i].Reason, w.modelID, w.reason)
			}
		}
	})

	t.Run("Empty", func(t *testing.T) {
		m := NewManager(Config{})
		if got := m.Decide(Context{}); len(got) != 0 {
			t.Errorf("unexpected decisions: %v", got)
		}
	})
}

func TestNewManagerDefaults(t *testing.T) {
	m := NewManager(Config{})
	if m.config.MaxRespondersPerTurn != 3 {
		t.Errorf("wrong default max: %d", m.config.MaxRespondersPerTurn)
	}
}
