package battle

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/immutable"
)

// Retention and expertise thresholds.
const (
	minEvaluationsForExpert = 3
	minAvgScoreForExpert    = 70.0
	minEvaluationsToJudge   = 5
	specializationRank      = 3
	trendWindow             = 5
	trendMinSamples         = 3
	trendHysteresis         = 5.0
)

// entry is the internal per-(model, category) record. Raw scores are kept so
// averages and trends stay exact.
type entry struct {
	modelID         string
	category        string
	scores          []float64
	wins            int
	totalGames      int
	responseTimes   []int64
	tokenCosts      []float64
	lastEvaluatedAt time.Time
}

// Leaderboard is an immutable snapshot of per-category model standings.
// Recording an evaluation returns a new leaderboard; the receiver is never
// modified. The random source is shared across snapshots so challenger
// selection stays seedable.
type Leaderboard struct {
	entries map[string]entry
	rng     *rand.Rand
}

// NewLeaderboard creates an empty leaderboard. A nil rng gets a time-seeded
// source.
func NewLeaderboard(rng *rand.Rand) *Leaderboard {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Leaderboard{entries: make(map[string]entry), rng: rng}
}

// NewFromEntries rebuilds a leaderboard from persisted summaries. Raw score
// history is not stored, so each entry's history becomes totalEvaluations
// copies of its average; wins and counts survive exactly.
func NewFromEntries(persisted []core.LeaderboardEntry, rng *rand.Rand) *Leaderboard {
	lb := NewLeaderboard(rng)
	for _, pe := range persisted {
		scores := make([]float64, pe.TotalEvaluations)
		times := make([]int64, pe.TotalEvaluations)
		costs := make([]float64, pe.TotalEvaluations)
		for i := range scores {
			scores[i] = pe.AverageScore
			times[i] = int64(pe.AvgResponseTime)
			costs[i] = pe.AvgTokenCost
		}
		lb.entries[entryKey(pe.ModelID, pe.Category)] = entry{
			modelID:         pe.ModelID,
			category:        pe.Category,
			scores:          scores,
			wins:            pe.TotalWins,
			totalGames:      pe.TotalEvaluations,
			responseTimes:   times,
			tokenCosts:      costs,
			lastEvaluatedAt: pe.LastEvaluatedAt,
		}
	}
	return lb
}

func entryKey(modelID, category string) string {
	return modelID + ":" + category
}

// RecordEvaluation folds one judged result into a new leaderboard snapshot.
// Rank 1 counts as a win.
func (l *Leaderboard) RecordEvaluation(eval core.EvaluationResult, category core.TaskCategory) *Leaderboard {
	key := entryKey(eval.ModelID, string(category))
	e, ok := l.entries[key]
	if !ok {
		e = entry{modelID: eval.ModelID, category: string(category)}
	}

	e.scores = immutable.Append(e.scores, eval.OverallScore)
	e.responseTimes = immutable.Append(e.responseTimes, eval.ResponseTimeMs)
	e.tokenCosts = immutable.Append(e.tokenCosts, eval.TokenCost)
	e.totalGames++
	if eval.Rank == 1 {
		e.wins++
	}
	e.lastEvaluatedAt = time.Now()

	return &Leaderboard{entries: immutable.MapSet(l.entries, key, e), rng: l.rng}
}

// Entry returns the public summary for one (model, category) pair.
func (l *Leaderboard) Entry(modelID string, category core.TaskCategory) (core.LeaderboardEntry, bool) {
	e, ok := l.entries[entryKey(modelID, string(category))]
	if !ok {
		return core.LeaderboardEntry{}, false
	}
	return e.summary(), true
}

// Entries returns every summary, sorted by category then average score
// descending, for display and persistence.
func (l *Leaderboard) Entries() []core.LeaderboardEntry {
	out := make([]core.LeaderboardEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		if out[i].AverageScore != out[j].AverageScore {
			return out[i].AverageScore > out[j].AverageScore
		}
		return out[i].ModelID < out[j].ModelID
	})
	return out
}

// TopForCategory returns up to count models ranked by average score.
func (l *Leaderboard) TopForCategory(category core.TaskCategory, count int) []core.LeaderboardEntry {
	ranked := l.rankedCategory(string(category))
	if len(ranked) > count {
		ranked = ranked[:count]
	}
	return ranked
}

func (l *Leaderboard) rankedCategory(category string) []core.LeaderboardEntry {
	var out []core.LeaderboardEntry
	for _, e := range l.entries {
		if e.category == category {
			out = append(out, e.summary())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageScore != out[j].AverageScore {
			return out[i].AverageScore > out[j].AverageScore
		}
		return out[i].ModelID < out[j].ModelID
	})
	return out
}

// SelectCandidates picks up to count top performers for a category, plus at
// most one random challenger that has never been tested in the category. The
// result never exceeds count+1 models.
func (l *Leaderboard) SelectCandidates(category core.TaskCategory, count int, includeChallenger bool, allActiveIDs []string) []string {
	selected := make([]string, 0, count+1)
	seen := make(map[string]bool)
	for _, e := range l.TopForCategory(category, count) {
		selected = append(selected, e.ModelID)
		seen[e.ModelID] = true
	}

	if includeChallenger {
		var untested []string
		for _, id := range allActiveIDs {
			if seen[id] {
				continue
			}
			if _, ok := l.entries[entryKey(id, string(category))]; !ok {
				untested = append(untested, id)
			}
		}
		if len(untested) > 0 {
			selected = append(selected, untested[l.rng.Intn(len(untested))])
		}
	}
	return selected
}

// HasExpertForDomain reports whether the category's top model has enough
// history and a high enough average to be trusted without a battle.
func (l *Leaderboard) HasExpertForDomain(category core.TaskCategory) bool {
	ranked := l.rankedCategory(string(category))
	if len(ranked) == 0 {
		return false
	}
	top := ranked[0]
	return top.TotalEvaluations >= minEvaluationsForExpert && top.AverageScore >= minAvgScoreForExpert
}

// ModelProfile summarizes one model across every category it competed in.
type ModelProfile struct {
	ModelID          string                  `json:"model_id"`
	OverallAvgScore  float64                 `json:"overall_avg_score"`
	TotalEvaluations int                     `json:"total_evaluations"`
	TotalWins        int                     `json:"total_wins"`
	Categories       []core.LeaderboardEntry `json:"categories"`
	Specializations  []string                `json:"specializations"`
}

// Profile builds the cross-category profile for a model. Specializations are
// the categories where the model currently ranks in the top three.
func (l *Leaderboard) Profile(modelID string) ModelProfile {
	profile := ModelProfile{ModelID: modelID}

	var allScores []float64
	for _, e := range l.entries {
		if e.modelID != modelID {
			continue
		}
		profile.Categories = append(profile.Categories, e.summary())
		profile.TotalEvaluations += e.totalGames
		profile.TotalWins += e.wins
		allScores = append(allScores, e.scores...)
	}
	sort.Slice(profile.Categories, func(i, j int) bool {
		return profile.Categories[i].Category < profile.Categories[j].Category
	})

	if len(allScores) > 0 {
		profile.OverallAvgScore = round1(mean(allScores))
	}

	for _, ce := range profile.Categories {
		for rank, ranked := range l.rankedCategory(ce.Category) {
			if rank >= specializationRank {
				break
			}
			if ranked.ModelID == modelID {
				profile.Specializations = append(profile.Specializations, ce.Category)
				break
			}
		}
	}
	return profile
}

// ShouldRetain reports whether a model has earned its slot. Untested and
// barely-tested models are kept so they get a fair chance to compete.
func (l *Leaderboard) ShouldRetain(modelID string) bool {
	profile := l.Profile(modelID)
	if profile.TotalEvaluations == 0 {
		return true
	}
	if profile.TotalEvaluations < minEvaluationsToJudge {
		return true
	}
	return len(profile.Specializations) > 0
}

func (e entry) summary() core.LeaderboardEntry {
	out := core.LeaderboardEntry{
		ModelID:          e.modelID,
		Category:         e.category,
		TotalEvaluations: e.totalGames,
		TotalWins:        e.wins,
		Trend:            e.trend(),
		LastEvaluatedAt:  e.lastEvaluatedAt,
	}
	if len(e.scores) > 0 {
		out.AverageScore = round1(mean(e.scores))
	}
	if e.totalGames > 0 {
		out.WinRate = float64(e.wins) / float64(e.totalGames)
	}
	if len(e.responseTimes) > 0 {
		var sum int64
		for _, t := range e.responseTimes {
			sum += t
		}
		out.AvgResponseTime = float64(sum) / float64(len(e.responseTimes))
	}
	if len(e.tokenCosts) > 0 {
		out.AvgTokenCost = mean(e.tokenCosts)
	}
	return out
}

// trend compares the mean of the last five scores against the five before
// them. Both windows need at least three samples; moves inside the +/-5
// band count as stable.
func (e entry) trend() core.Trend {
	n := len(e.scores)
	recent := e.scores[max(0, n-trendWindow):]
	prior := e.scores[max(0, n-2*trendWindow):max(0, n-trendWindow)]
	if len(recent) < trendMinSamples || len(prior) < trendMinSamples {
		return core.TrendStable
	}
	diff := mean(recent) - mean(prior)
	switch {
	case diff > trendHysteresis:
		return core.TrendImproving
	case diff < -trendHysteresis:
		return core.TrendDeclining
	default:
		return core.TrendStable
	}
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
