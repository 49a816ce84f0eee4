// Package battle runs multi-model competitions: parallel response collection,
// judging, and score tracking.
package battle

import (
	"context"
	"fmt"
	"time"

	"github.com/alienxp03/arena/internal/concurrency"
	"github.com/alienxp03/arena/internal/provider"
)

// RunItem is the outcome for one competing model. Exactly one of Response or
// Err is meaningful.
type RunItem struct {
	ModelID  string                       `json:"model_id"`
	Response *provider.CompletionResponse `json:"response,omitempty"`
	Err      string                       `json:"error,omitempty"`
	TimedOut bool                         `json:"timed_out,omitempty"`
}

// RunResult aggregates one competition round.
type RunResult struct {
	Results    []RunItem                      `json:"results"`
	Successful []*provider.CompletionResponse `json:"successful"`
	TotalTime  time.Duration                  `json:"total_time"`
}

// RunOptions control a competition round.
type RunOptions struct {
	Timeout       time.Duration
	MaxConcurrent int
	OnProgress    func(modelID, status string)
}

const (
	defaultRunTimeout    = 60 * time.Second
	defaultMaxConcurrent = 5
)

// Runner executes the same prompt against many models concurrently.
type Runner struct {
	lookup provider.Lookup
}

// NewRunner creates a parallel competition runner.
func NewRunner(lookup provider.Lookup) *Runner {
	return &Runner{lookup: lookup}
}

// Run sends the same request to every model and collects the results. The
// request's ModelID field is overwritten per model. Individual model failures
// and timeouts become error items rather than run failures.
func (r *Runner) Run(ctx context.Context, modelIDs []string, req provider.CompletionRequest, opts RunOptions) (*RunResult, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRunTimeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}

	start := time.Now()
	tasks := make([]concurrency.Task[RunItem], len(modelIDs))
	for i, modelID := range modelIDs {
		tasks[i] = r.runOne(modelID, req, opts)
	}

	items, err := concurrency.Run(ctx, tasks, opts.MaxConcurrent)
	if err != nil {
		return nil, fmt.Errorf("run competition: %w", err)
	}

	result := &RunResult{
		Results:   items,
		TotalTime: time.Since(start),
	}
	for _, item := range items {
		if item.Response != nil {
			result.Successful = append(result.Successful, item.Response)
		}
	}
	return result, nil
}

func (r *Runner) runOne(modelID string, req provider.CompletionRequest, opts RunOptions) concurrency.Task[RunItem] {
	return func(ctx context.Context) (RunItem, error) {
		p, ok := r.lookup(modelID)
		if !ok {
			r.progress(opts, modelID, "failed")
			return RunItem{ModelID: modelID, Err: fmt.Sprintf("no provider for model %s", modelID)}, nil
		}

		req.ModelID = modelID
		r.progress(opts, modelID, "started")
		resp, err := provider.CompleteWithTimeout(ctx, p, &req, opts.Timeout)
		if err != nil {
			r.progress(opts, modelID, "failed")
			item := RunItem{ModelID: modelID, Err: err.Error()}
			item.TimedOut = provider.IsTimeout(err)
			return item, nil
		}

		r.progress(opts, modelID, "complete")
		return RunItem{ModelID: modelID, Response: resp}, nil
	}
}

func (r *Runner) progress(opts RunOptions, modelID, status string) {
	if opts.OnProgress != nil {
		opts.OnProgress(modelID, status)
	}
}
