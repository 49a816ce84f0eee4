// Package handlers provides the HTTP API for arena.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/discussion"
	"github.com/alienxp03/arena/internal/export"
	"github.com/alienxp03/arena/internal/memory"
	"github.com/alienxp03/arena/internal/provider"
	"github.com/alienxp03/arena/internal/roster"
	"github.com/alienxp03/arena/internal/storage"
)

// Handler holds dependencies for HTTP handlers. turnMu serializes every
// state mutation and is held for a whole turn while a message streams; mu
// guards the state snapshot itself and is only held briefly, so read
// endpoints stay responsive while a turn is in flight. Lock order is turnMu
// then mu.
type Handler struct {
	turnMu       sync.Mutex
	mu           sync.Mutex
	state        discussion.State
	orchestrator *discussion.Orchestrator
	storage      storage.Storage
	providers    *provider.Registry
	roster       *roster.Service
	logger       *slog.Logger
}

// New creates a new Handler.
func New(state discussion.State, orchestrator *discussion.Orchestrator, store storage.Storage, providers *provider.Registry, rosterService *roster.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		state:        state,
		orchestrator: orchestrator,
		storage:      store,
		providers:    providers,
		roster:       rosterService,
		logger:       logger,
	}
}

// Router builds the chi router with all API routes.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", h.handleListConversations)
			r.Post("/", h.handleCreateConversation)
			r.Get("/{id}", h.handleGetConversation)
			r.Post("/{id}/archive", h.handleArchiveConversation)
			r.Get("/{id}/messages", h.handleGetMessages)
			r.Post("/{id}/messages", h.handleSendMessage)
			r.Get("/{id}/export/{format}", h.handleExportConversation)
		})

		r.Get("/leaderboard", h.handleLeaderboard)
		r.Get("/leaderboard/{modelID}", h.handleModelProfile)
		r.Get("/models", h.handleListModels)
		r.Get("/providers", h.handleListProviders)

		r.Route("/roster", func(r chi.Router) {
			r.Get("/", h.handleListRoster)
			r.Put("/{role}", h.handleAssignRole)
			r.Delete("/{role}", h.handleRemoveRole)
		})

		r.Route("/memory", func(r chi.Router) {
			r.Get("/search", h.handleSearchMemory)
			r.Get("/categories", h.handleListMemoryCategories)
			r.Post("/categories", h.handleCreateMemoryCategory)
			r.Post("/items", h.handleAddMemoryItem)
			r.Post("/prune", h.handlePruneMemory)
		})
	})

	return r
}

func (h *Handler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	convs := h.state.Conversations.All()
	h.mu.Unlock()

	h.writeJSON(w, convs)
}

func (h *Handler) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		req.Title = "New conversation"
	}

	h.turnMu.Lock()
	h.mu.Lock()
	next, conv := h.state.Conversations.Create(req.Title)
	h.state.Conversations = next
	h.mu.Unlock()
	h.turnMu.Unlock()

	if err := h.storage.CreateConversation(&conv); err != nil {
		h.logger.Error("failed to persist conversation", "id", conv.ID, "error", err)
	}

	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, conv)
}

func (h *Handler) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	conv, ok := h.state.Conversations.Get(id)
	h.mu.Unlock()

	if !ok {
		h.jsonError(w, "conversation not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, conv)
}

func (h *Handler) handleArchiveConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.turnMu.Lock()
	h.mu.Lock()
	_, ok := h.state.Conversations.Get(id)
	if ok {
		h.state.Conversations = h.state.Conversations.Archive(id)
	}
	conv, _ := h.state.Conversations.Get(id)
	h.mu.Unlock()
	h.turnMu.Unlock()

	if !ok {
		h.jsonError(w, "conversation not found", http.StatusNotFound)
		return
	}

	if err := h.storage.UpdateConversation(&conv); err != nil {
		h.logger.Error("failed to persist conversation update", "id", id, "error", err)
	}

	h.writeJSON(w, conv)
}

func (h *Handler) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	h.mu.Lock()
	_, ok := h.state.Conversations.Get(id)
	msgs := h.state.Conversations.Messages(id, limit)
	h.mu.Unlock()

	if !ok {
		h.jsonError(w, "conversation not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, msgs)
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	entries := h.state.Leaderboard.Entries()
	h.mu.Unlock()

	category := r.URL.Query().Get("category")
	if category != "" {
		var filtered []core.LeaderboardEntry
		for _, e := range entries {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	h.writeJSON(w, entries)
}

func (h *Handler) handleModelProfile(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")

	h.mu.Lock()
	profile := h.state.Leaderboard.Profile(modelID)
	h.mu.Unlock()

	h.writeJSON(w, profile)
}

func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	models := h.state.Registry.All()
	h.mu.Unlock()

	h.writeJSON(w, models)
}

func (h *Handler) handleListProviders(w http.ResponseWriter, r *http.Request) {
	type providerInfo struct {
		Name      string `json:"name"`
		Available bool   `json:"available"`
	}

	var infos []providerInfo
	for _, p := range h.providers.List() {
		infos = append(infos, providerInfo{Name: p.Name(), Available: p.Available()})
	}
	h.writeJSON(w, infos)
}

func (h *Handler) handleListRoster(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.roster.AllAssignments(r.Context())
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, assignments)
}

func (h *Handler) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	role := core.DebateRole(chi.URLParam(r, "role"))

	var req struct {
		ModelID string `json:"model_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ModelID == "" {
		h.jsonError(w, "model_id is required", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	_, known := h.state.Registry.Get(req.ModelID)
	h.mu.Unlock()
	if !known {
		h.jsonError(w, fmt.Sprintf("unknown model: %s", req.ModelID), http.StatusBadRequest)
		return
	}

	if err := h.roster.AssignModelToRole(r.Context(), role, req.ModelID, roster.AssignmentManual); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, map[string]string{"role": string(role), "model_id": req.ModelID})
}

func (h *Handler) handleRemoveRole(w http.ResponseWriter, r *http.Request) {
	role := core.DebateRole(chi.URLParam(r, "role"))

	if err := h.roster.RemoveRole(r.Context(), role); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSearchMemory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.jsonError(w, "q is required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	h.turnMu.Lock()
	h.mu.Lock()
	results := h.state.Memory.Search(query, limit)
	for _, res := range results {
		h.state.Memory = h.state.Memory.RecordAccess(res.Item.ID)
	}
	h.mu.Unlock()
	h.turnMu.Unlock()

	if results == nil {
		results = []memory.SearchResult{}
	}
	h.writeJSON(w, results)
}

func (h *Handler) handleListMemoryCategories(w http.ResponseWriter, r *http.Request) {
	type categoryInfo struct {
		memory.Category
		Items []memory.Item `json:"items"`
	}

	h.mu.Lock()
	mem := h.state.Memory
	h.mu.Unlock()

	infos := []categoryInfo{}
	for _, cat := range mem.Categories() {
		infos = append(infos, categoryInfo{Category: cat, Items: mem.CategoryItems(cat.ID)})
	}
	h.writeJSON(w, infos)
}

func (h *Handler) handleCreateMemoryCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name             string `json:"name"`
		Description      string `json:"description"`
		ParentCategoryID string `json:"parent_category_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		h.jsonError(w, "name is required", http.StatusBadRequest)
		return
	}

	h.turnMu.Lock()
	h.mu.Lock()
	next, cat := h.state.Memory.CreateCategory(req.Name, req.Description, req.ParentCategoryID)
	h.state.Memory = next
	h.mu.Unlock()
	h.turnMu.Unlock()

	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, cat)
}

func (h *Handler) handleAddMemoryItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CategoryID string  `json:"category_id"`
		Content    string  `json:"content"`
		Importance float64 `json:"importance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CategoryID == "" || req.Content == "" {
		h.jsonError(w, "category_id and content are required", http.StatusBadRequest)
		return
	}

	h.turnMu.Lock()
	h.mu.Lock()
	_, known := h.state.Memory.GetCategory(req.CategoryID)
	if known {
		next, item := h.state.Memory.AddItem(req.CategoryID, req.Content, req.Importance)
		h.state.Memory = next
		h.mu.Unlock()
		h.turnMu.Unlock()
		w.WriteHeader(http.StatusCreated)
		h.writeJSON(w, item)
		return
	}
	h.mu.Unlock()
	h.turnMu.Unlock()

	h.jsonError(w, fmt.Sprintf("unknown category: %s", req.CategoryID), http.StatusBadRequest)
}

func (h *Handler) handlePruneMemory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Threshold float64 `json:"threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Threshold <= 0 || req.Threshold > 1 {
		h.jsonError(w, "threshold must be in (0, 1]", http.StatusBadRequest)
		return
	}

	h.turnMu.Lock()
	h.mu.Lock()
	h.state.Memory = h.state.Memory.PruneByImportance(req.Threshold)
	h.mu.Unlock()
	h.turnMu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExportConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	format := export.Format(chi.URLParam(r, "format"))

	h.mu.Lock()
	conv, ok := h.state.Conversations.Get(id)
	msgs := h.state.Conversations.Messages(id, 0)
	h.mu.Unlock()

	if !ok {
		h.jsonError(w, "conversation not found", http.StatusNotFound)
		return
	}

	exporter, err := export.GetExporter(format)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	msgPtrs := make([]*core.ChatMessage, len(msgs))
	for i := range msgs {
		msgPtrs[i] = &msgs[i]
	}

	filename := export.GenerateFilename(&conv, exporter.FileExtension())

	switch format {
	case export.FormatPDF:
		w.Header().Set("Content-Type", "application/pdf")
	case export.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
	default:
		w.Header().Set("Content-Type", "text/markdown")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := exporter.Export(&conv, msgPtrs, w); err != nil {
		h.logger.Error("export failed", "conversation_id", id, "format", format, "error", err)
		http.Error(w, "Export failed", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
