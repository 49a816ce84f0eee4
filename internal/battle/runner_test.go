package battle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alienxp03/arena/internal/provider"
)

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("AllSucceed", func(t *testing.T) {
		mock := provider.NewMockProvider("mock", 0)
		runner := NewRunner(func(modelID string) (provider.Provider, bool) { return mock, true })

		result, err := runner.Run(ctx, []string{"m1", "m2", "m3"}, provider.CompletionRequest{}, RunOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Results) != 3 {
			t.Errorf("wrong result count: %d", len(result.Results))
		}
		if len(result.Successful) != 3 {
			t.Errorf("wrong success count: %d", len(result.Successful))
		}

		seen := make(map[string]bool)
		for _, item := range result.Results {
			seen[item.ModelID] = true
			if item.Response == nil {
				t.Errorf("missing response for %s", item.ModelID)
			}
			if item.Response.ModelID != item.ModelID {
				t.Errorf("model ID not set on request: %s", item.Response.ModelID)
			}
		}
		if len(seen) != 3 {
			t.Errorf("duplicate or missing models: %v", seen)
		}
	})

	t.Run("MissingProvider", func(t *testing.T) {
		mock := provider.NewMockProvider("mock", 0)
		runner := NewRunner(func(modelID string) (provider.Provider, bool) {
			return mock, modelID != "ghost"
		})

		result, err := runner.Run(ctx, []string{"m1", "ghost"}, provider.CompletionRequest{}, RunOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Successful) != 1 {
			t.Errorf("wrong success count: %d", len(result.Successful))
		}

		for _, item := range result.Results {
			if item.ModelID == "ghost" {
				if item.Err == "" {
					t.Error("missing error for ghost")
				}
				if item.TimedOut {
					t.Error("missing provider reported as timeout")
				}
			}
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		slow := provider.NewMockProvider("slow", 200*time.Millisecond)
		runner := NewRunner(func(modelID string) (provider.Provider, bool) { return slow, true })

		result, err := runner.Run(ctx, []string{"m1"}, provider.CompletionRequest{},
			RunOptions{Timeout: 10 * time.Millisecond})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Successful) != 0 {
			t.Errorf("wrong success count: %d", len(result.Successful))
		}
		if !result.Results[0].TimedOut {
			t.Error("timeout not flagged")
		}
	})

	t.Run("Progress", func(t *testing.T) {
		mock := provider.NewMockProvider("mock", 0)
		runner := NewRunner(func(modelID string) (provider.Provider, bool) {
			return mock, modelID != "ghost"
		})

		var mu sync.Mutex
		statuses := make(map[string][]string)
		opts := RunOptions{OnProgress: func(modelID, status string) {
			mu.Lock()
			statuses[modelID] = append(statuses[modelID], status)
			mu.Unlock()
		}}

		if _, err := runner.Run(ctx, []string{"m1", "ghost"}, provider.CompletionRequest{}, opts); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := statuses["m1"]; len(got) != 2 || got[0] != "started" || got[1] != "complete" {
			t.Errorf("wrong m1 statuses: %v", got)
		}
		if got := statuses["ghost"]; len(got) != 1 || got[0] != "failed" {
			t.Errorf("wrong ghost statuses: %v", got)
		}
	})
}
