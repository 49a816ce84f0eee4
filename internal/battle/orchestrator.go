package battle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alienxp03/arena/internal/analyzer"
	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/provider"
	"github.com/alienxp03/arena/internal/registry"
)

// Result is the full outcome of one competition.
type Result struct {
	Task           core.Task                      `json:"task"`
	WinnerModelID  string                         `json:"winner_model_id"`
	WinnerResponse string                         `json:"winner_response"`
	Evaluations    []core.EvaluationResult        `json:"evaluations"`
	Responses      []*provider.CompletionResponse `json:"responses"`
	Consensus      string                         `json:"consensus"`
	Divergences    string                         `json:"divergences"`
	TotalTime      time.Duration                  `json:"total_time"`
}

// Options control one competition.
type Options struct {
	CandidateCount int
	SkipBattle     bool
	Timeout        time.Duration
	OnProgress     func(phase, detail string, models []string)
}

const (
	defaultCandidateCount = 3
	defaultBattleTimeout  = 90 * time.Second
	competitionMaxTokens  = 4000
	competitionTemp       = 0.7
)

// ErrNoModels is returned when no active model can take the request.
var ErrNoModels = errors.New("no models available")

// Orchestrator coordinates one full battle: analyze, select candidates, run,
// judge, and record scores.
type Orchestrator struct {
	analyzer *analyzer.Analyzer
	runner   *Runner
	judge    *Judge
}

// NewOrchestrator wires the battle pipeline together.
func NewOrchestrator(a *analyzer.Analyzer, runner *Runner, judge *Judge) *Orchestrator {
	return &Orchestrator{analyzer: a, runner: runner, judge: judge}
}

// Execute runs one competition. The updated leaderboard is returned alongside
// the result; the input leaderboard is never modified. Simple tasks and
// SkipBattle route directly to the top-ranked candidate without judging.
func (o *Orchestrator) Execute(ctx context.Context, lb *Leaderboard, reg *registry.ModelRegistry, userMessage, conversationID string, conversationContext []core.ContextMessage, opts Options) (*Result, *Leaderboard, error) {
	if opts.CandidateCount <= 0 {
		opts.CandidateCount = defaultCandidateCount
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultBattleTimeout
	}
	start := time.Now()

	o.progress(opts, "analyzing", "Classifying task and identifying required capabilities...", nil)
	task := o.analyzer.Analyze(ctx, userMessage, conversationID, conversationContext)

	allActiveIDs := reg.ActiveIDs()
	candidates := lb.SelectCandidates(task.Category, opts.CandidateCount, true, allActiveIDs)

	req := provider.CompletionRequest{
		Messages:     append(append([]core.ContextMessage{}, conversationContext...), core.ContextMessage{Role: "user", Content: userMessage}),
		MaxTokens:    competitionMaxTokens,
		Temperature:  competitionTemp,
		SystemPrompt: buildCompetitionPrompt(task),
	}

	if opts.SkipBattle || task.Complexity == core.ComplexitySimple {
		result, err := o.routeToTop(ctx, task, candidates, allActiveIDs, req, opts, start)
		return result, lb, err
	}

	o.progress(opts, "competing", fmt.Sprintf("%d models competing...", len(candidates)), candidates)
	runResult, err := o.runner.Run(ctx, candidates, req, RunOptions{
		Timeout: opts.Timeout,
		OnProgress: func(modelID, status string) {
			o.progress(opts, "competing", fmt.Sprintf("%s: %s", modelID, status), candidates)
		},
	})
	if err != nil {
		return nil, lb, err
	}
	if len(runResult.Successful) == 0 {
		return nil, lb, errors.New("all models failed to respond")
	}

	o.progress(opts, "judging", fmt.Sprintf("Evaluating %d responses...", len(runResult.Successful)), nil)
	verdict := o.judge.Evaluate(ctx, task.ID, userMessage, runResult.Successful)

	updated := lb
	for _, eval := range verdict.Evaluations {
		updated = updated.RecordEvaluation(eval, task.Category)
	}

	winner := verdict.Evaluations[0]
	for _, eval := range verdict.Evaluations[1:] {
		if eval.OverallScore > winner.OverallScore {
			winner = eval
		}
	}
	var winnerResponse *provider.CompletionResponse
	for _, resp := range runResult.Successful {
		if resp.ModelID == winner.ModelID {
			winnerResponse = resp
			break
		}
	}
	if winnerResponse == nil {
		return nil, lb, fmt.Errorf("winner response not found for model %s", winner.ModelID)
	}

	task.Status = core.TaskComplete
	return &Result{
		Task:           task,
		WinnerModelID:  winner.ModelID,
		WinnerResponse: winnerResponse.Content,
		Evaluations:    verdict.Evaluations,
		Responses:      runResult.Successful,
		Consensus:      verdict.Consensus,
		Divergences:    verdict.Divergences,
		TotalTime:      time.Since(start),
	}, updated, nil
}

// routeToTop answers with a single model and no judging pass.
func (o *Orchestrator) routeToTop(ctx context.Context, task core.Task, candidates, allActiveIDs []string, req provider.CompletionRequest, opts Options, start time.Time) (*Result, error) {
	topModelID := ""
	if len(candidates) > 0 {
		topModelID = candidates[0]
	} else if len(allActiveIDs) > 0 {
		topModelID = allActiveIDs[0]
	}
	if topModelID == "" {
		return nil, ErrNoModels
	}

	o.progress(opts, "competing", fmt.Sprintf("Routing to top model: %s", topModelID), nil)
	runResult, err := o.runner.Run(ctx, []string{topModelID}, req, RunOptions{Timeout: opts.Timeout})
	if err != nil {
		return nil, err
	}
	if len(runResult.Successful) == 0 {
		return nil, fmt.Errorf("model %s failed to respond", topModelID)
	}

	resp := runResult.Successful[0]
	task.Status = core.TaskComplete
	return &Result{
		Task:           task,
		WinnerModelID:  topModelID,
		WinnerResponse: resp.Content,
		Evaluations:    []core.EvaluationResult{},
		Responses:      []*provider.CompletionResponse{resp},
		Consensus:      snippet(resp.Content, consensusSnippetLen),
		TotalTime:      time.Since(start),
	}, nil
}

func (o *Orchestrator) progress(opts Options, phase, detail string, models []string) {
	if opts.OnProgress != nil {
		opts.OnProgress(phase, detail, models)
	}
}
