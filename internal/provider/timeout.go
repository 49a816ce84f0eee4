package provider

import (
	"context"
	"time"
)

// CompleteWithTimeout races a completion call against a timer. On timeout the
// caller gets a TimeoutError; the underlying call is not aborted and runs to
// completion in the background with its result discarded.
func CompleteWithTimeout(ctx context.Context, p Provider, req *CompletionRequest, timeout time.Duration) (*CompletionResponse, error) {
	type result struct {
		resp *CompletionResponse
		err  error
	}

	done := make(chan result, 1)
	go func() {
		resp, err := p.Complete(ctx, req)
		done <- result{resp: resp, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-timer.C:
		return nil, &TimeoutError{ModelID: req.ModelID, Timeout: timeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
