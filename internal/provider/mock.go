package provider

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// MockProvider generates simulated responses for testing and demos.
type MockProvider struct {
	name      string
	delay     time.Duration
	callCount atomic.Int64

	// Respond, if set, overrides the default canned output.
	Respond func(req *CompletionRequest) (string, error)
}

// NewMockProvider creates a mock provider with a fixed simulated latency.
func NewMockProvider(name string, delay time.Duration) *MockProvider {
	return &MockProvider{name: name, delay: delay}
}

// Name returns the provider identifier.
func (p *MockProvider) Name() string { return p.name }

// Available always returns true for the mock provider.
func (p *MockProvider) Available() bool { return true }

// CallCount returns how many completions have been requested.
func (p *MockProvider) CallCount() int64 { return p.callCount.Load() }

// Complete generates a simulated response.
func (p *MockProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	p.callCount.Add(1)
	start := time.Now()

	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.delay):
		}
	}

	content := fmt.Sprintf("Mock response from %s to: %s", req.ModelID, truncate(lastUserContent(req), 50))
	if p.Respond != nil {
		var err error
		content, err = p.Respond(req)
		if err != nil {
			return nil, err
		}
	}

	return &CompletionResponse{
		ModelID:        req.ModelID,
		Content:        content,
		InputTokens:    approxTokens(lastUserContent(req)),
		OutputTokens:   approxTokens(content),
		ResponseTimeMs: time.Since(start).Milliseconds(),
		FinishReason:   FinishStop,
	}, nil
}

func lastUserContent(req *CompletionRequest) string {
	if len(req.Messages) == 0 {
		return ""
	}
	return req.Messages[len(req.Messages)-1].Content
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// approxTokens estimates token count from text length (4 chars per token).
func approxTokens(s string) int {
	n := len(strings.TrimSpace(s)) / 4
	if n < 1 {
		n = 1
	}
	return n
}
