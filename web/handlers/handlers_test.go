package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alienxp03/arena/internal/analyzer"
	"github.com/alienxp03/arena/internal/battle"
	"github.com/alienxp03/arena/internal/conversation"
	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/discussion"
	"github.com/alienxp03/arena/internal/memory"
	"github.com/alienxp03/arena/internal/provider"
	"github.com/alienxp03/arena/internal/registry"
	"github.com/alienxp03/arena/internal/roster"
	"github.com/alienxp03/arena/internal/storage"
	"github.com/alienxp03/arena/internal/turns"
)

// setupTestHandler wires a handler over a temp database and a mock provider
// that answers every completion directly.
func setupTestHandler(t *testing.T) (*Handler, *storage.SQLiteStorage, func()) {
	t.Helper()
	return setupTestHandlerWith(t, nil)
}

// setupTestHandlerWith lets a test override what non-analyzer completions
// return.
func setupTestHandlerWith(t *testing.T, respond func(req *provider.CompletionRequest) (string, error)) (*Handler, *storage.SQLiteStorage, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "arena-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	store, err := storage.NewSQLiteStorage(tmpDir + "/test.db")
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to create storage: %v", err)
	}
	if err := store.Initialize(); err != nil {
		store.Close()
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to initialize storage: %v", err)
	}

	if respond == nil {
		respond = func(req *provider.CompletionRequest) (string, error) {
			return "direct answer", nil
		}
	}
	mock := provider.NewMockProvider("mock", 0)
	mock.Respond = func(req *provider.CompletionRequest) (string, error) {
		if len(req.Messages) > 0 && strings.Contains(req.Messages[len(req.Messages)-1].Content, "Analyze the following user request") {
			return `{"category": "general", "complexity": "simple"}`, nil
		}
		return respond(req)
	}
	lookup := func(modelID string) (provider.Provider, bool) { return mock, true }

	providers := provider.NewRegistry()
	providers.Register(mock)

	battleOrch := battle.NewOrchestrator(
		analyzer.New(lookup, "", nil),
		battle.NewRunner(lookup),
		battle.NewJudge(lookup, "", nil),
	)
	rosterService := roster.NewService(store.Roster())
	orchestrator := discussion.NewOrchestrator(battleOrch, turns.NewManager(turns.Config{}), nil, rosterService, battle.Options{}, nil)

	state := discussion.State{
		Conversations: conversation.NewManager(),
		Leaderboard:   battle.NewLeaderboard(nil),
		Registry:      registry.New(core.ModelEntry{ID: "m1", Name: "Model One", Active: true}),
		Memory:        memory.NewManager(),
	}

	handler := New(state, orchestrator, store, providers, rosterService, nil)

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return handler, store, cleanup
}

func createConversation(t *testing.T, router http.Handler, title string) core.Conversation {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"title": title})
	req := httptest.NewRequest(http.MethodPost, "/api/conversations", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Failed to create conversation: status %d, body %s", rec.Code, rec.Body.String())
	}

	var conv core.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil {
		t.Fatalf("Failed to decode conversation: %v", err)
	}
	return conv
}

func TestConversationEndpoints(t *testing.T) {
	handler, store, cleanup := setupTestHandler(t)
	defer cleanup()
	router := handler.Router()

	conv := createConversation(t, router, "Launch plan")
	if conv.Title != "Launch plan" {
		t.Errorf("wrong title: got %v", conv.Title)
	}

	// Creation is persisted.
	stored, err := store.GetConversation(conv.ID)
	if err != nil || stored == nil {
		t.Fatalf("conversation not persisted: %v", err)
	}

	t.Run("Get", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/conversations/"+conv.ID, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("wrong status: got %d", rec.Code)
		}
		var got core.Conversation
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if got.ID != conv.ID {
			t.Errorf("wrong conversation: got %v", got.ID)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/conversations/missing", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("wrong status: got %d, want 404", rec.Code)
		}
	})

	t.Run("List", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		var convs []core.Conversation
		if err := json.Unmarshal(rec.Body.Bytes(), &convs); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if len(convs) != 1 {
			t.Errorf("wrong conversation count: got %d, want 1", len(convs))
		}
	})

	t.Run("Archive", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/conversations/"+conv.ID+"/archive", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("wrong status: got %d", rec.Code)
		}
		var got core.Conversation
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if got.Status != core.ConversationArchived {
			t.Errorf("wrong status: got %v", got.Status)
		}
	})
}

func TestSendMessageStreamsEvents(t *testing.T) {
	handler, store, cleanup := setupTestHandler(t)
	defer cleanup()
	router := handler.Router()

	conv := createConversation(t, router, "Chat")

	body, _ := json.Marshal(map[string]string{"content": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/"+conv.ID+"/messages", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("wrong status: got %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("wrong content type: got %v", ct)
	}

	stream := rec.Body.String()
	for _, event := range []string{"event: user_message", "event: model_response", "event: done"} {
		if !strings.Contains(stream, event) {
			t.Errorf("stream missing %q:\n%s", event, stream)
		}
	}

	// Both messages are persisted.
	msgs, err := store.GetMessages(conv.ID, 0)
	if err != nil {
		t.Fatalf("get messages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("wrong persisted message count: got %d, want 2", len(msgs))
	}
	if msgs[0].Role != core.RoleUser || msgs[1].Content != "direct answer" {
		t.Errorf("wrong persisted messages: %+v", msgs)
	}

	t.Run("EmptyContent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/conversations/"+conv.ID+"/messages", strings.NewReader(`{"content": ""}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("wrong status: got %d, want 400", rec.Code)
		}
	})

	t.Run("UnknownConversation", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/conversations/missing/messages", strings.NewReader(`{"content": "hi"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("wrong status: got %d, want 404", rec.Code)
		}
	})
}

func TestLeaderboardEndpoint(t *testing.T) {
	handler, _, cleanup := setupTestHandler(t)
	defer cleanup()

	handler.state.Leaderboard = handler.state.Leaderboard.
		RecordEvaluation(core.EvaluationResult{ModelID: "m1", OverallScore: 88, Rank: 1}, core.CategoryTechnical).
		RecordEvaluation(core.EvaluationResult{ModelID: "m1", OverallScore: 75, Rank: 2}, core.CategoryLegal)
	router := handler.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var entries []core.LeaderboardEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("wrong entry count: got %d, want 2", len(entries))
	}

	t.Run("CategoryFilter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/leaderboard?category=technical", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		var entries []core.LeaderboardEntry
		if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if len(entries) != 1 || entries[0].Category != "technical" {
			t.Errorf("wrong filtered entries: %+v", entries)
		}
	})
}

func TestRosterEndpoints(t *testing.T) {
	handler, _, cleanup := setupTestHandler(t)
	defer cleanup()
	router := handler.Router()

	t.Run("AssignKnownModel", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/roster/tech", strings.NewReader(`{"model_id": "m1"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("wrong status: got %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("AssignUnknownModel", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/roster/tech", strings.NewReader(`{"model_id": "ghost"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("wrong status: got %d, want 400", rec.Code)
		}
	})

	t.Run("List", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/roster", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		var assignments map[core.DebateRole]string
		if err := json.Unmarshal(rec.Body.Bytes(), &assignments); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if assignments[core.RoleTech] != "m1" {
			t.Errorf("wrong assignments: %+v", assignments)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/roster/tech", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("wrong status: got %d, want 204", rec.Code)
		}
	})
}

func TestExportEndpoint(t *testing.T) {
	handler, _, cleanup := setupTestHandler(t)
	defer cleanup()
	router := handler.Router()

	conv := createConversation(t, router, "Export me")

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/"+conv.ID+"/export/json", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("wrong status: got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("wrong content type: got %v", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("missing attachment disposition: got %v", cd)
	}

	t.Run("UnsupportedFormat", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/conversations/"+conv.ID+"/export/xml", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("wrong status: got %d, want 400", rec.Code)
		}
	})
}

func TestMemoryEndpoints(t *testing.T) {
	handler, _, cleanup := setupTestHandler(t)
	defer cleanup()
	router := handler.Router()

	body, _ := json.Marshal(map[string]string{"name": "pricing", "description": "Pricing decisions"})
	req := httptest.NewRequest(http.MethodPost, "/api/memory/categories", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("wrong status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var cat memory.Category
	if err := json.Unmarshal(rec.Body.Bytes(), &cat); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if cat.Name != "pricing" || cat.ID == "" {
		t.Errorf("wrong category: %+v", cat)
	}

	t.Run("AddItem", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{"category_id": cat.ID, "content": "Annual billing converts better", "importance": 0.9})
		req := httptest.NewRequest(http.MethodPost, "/api/memory/items", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("wrong status: got %d, body %s", rec.Code, rec.Body.String())
		}
		var item memory.Item
		if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if item.CategoryID != cat.ID || item.Importance != 0.9 {
			t.Errorf("wrong item: %+v", item)
		}
	})

	t.Run("AddItemUnknownCategory", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{"category_id": "nope", "content": "orphan"})
		req := httptest.NewRequest(http.MethodPost, "/api/memory/items", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("wrong status: got %d, want 400", rec.Code)
		}
	})

	t.Run("Search", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/memory/search?q=annual+billing", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("wrong status: got %d", rec.Code)
		}
		var results []memory.SearchResult
		if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if len(results) != 1 || results[0].Category.Name != "pricing" {
			t.Fatalf("wrong results: %+v", results)
		}
	})

	t.Run("SearchMissingQuery", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/memory/search", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("wrong status: got %d, want 400", rec.Code)
		}
	})

	t.Run("Categories", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/memory/categories", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		var infos []struct {
			memory.Category
			Items []memory.Item `json:"items"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &infos); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if len(infos) != 1 || len(infos[0].Items) != 1 {
			t.Fatalf("wrong listing: %+v", infos)
		}
	})

	t.Run("Prune", func(t *testing.T) {
		body, _ := json.Marshal(map[string]float64{"threshold": 0.95})
		req := httptest.NewRequest(http.MethodPost, "/api/memory/prune", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("wrong status: got %d", rec.Code)
		}

		req = httptest.NewRequest(http.MethodGet, "/api/memory/search?q=annual+billing", nil)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		var results []memory.SearchResult
		if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("item survived prune: %+v", results)
		}
	})

	t.Run("PruneBadThreshold", func(t *testing.T) {
		body, _ := json.Marshal(map[string]float64{"threshold": 1.5})
		req := httptest.NewRequest(http.MethodPost, "/api/memory/prune", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("wrong status: got %d, want 400", rec.Code)
		}
	})
}

func TestReadsNotBlockedDuringTurn(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	handler, _, cleanup := setupTestHandlerWith(t, func(req *provider.CompletionRequest) (string, error) {
		once.Do(func() { close(started) })
		<-release
		return "direct answer", nil
	})
	defer cleanup()
	router := handler.Router()

	conv := createConversation(t, router, "Slow turn")

	turnDone := make(chan struct{})
	go func() {
		defer close(turnDone)
		body, _ := json.Marshal(map[string]string{"content": "hello"})
		req := httptest.NewRequest(http.MethodPost, "/api/conversations/"+conv.ID+"/messages", bytes.NewReader(body))
		router.ServeHTTP(httptest.NewRecorder(), req)
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		close(release)
		<-turnDone
		t.Fatal("turn never reached the model call")
	}

	// The turn is parked inside a model call. Read endpoints must still
	// answer.
	reads := []string{
		"/api/conversations",
		"/api/conversations/" + conv.ID,
		"/api/leaderboard",
	}
	for _, path := range reads {
		done := make(chan int, 1)
		go func(path string) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			done <- rec.Code
		}(path)

		select {
		case code := <-done:
			if code != http.StatusOK {
				t.Errorf("%s: wrong status: got %d", path, code)
			}
		case <-time.After(2 * time.Second):
			t.Errorf("%s blocked behind an in-flight turn", path)
		}
	}

	close(release)
	<-turnDone
}
