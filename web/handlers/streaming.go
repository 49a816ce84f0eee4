package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alienxp03/arena/internal/discussion"
)

// handleSendMessage runs one discussion turn and streams its events back as
// Server-Sent Events. The turn lock serializes message handling across
// connections; the turn itself runs on a state snapshot, so read endpoints
// are not blocked while models respond.
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		h.jsonError(w, "content is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming unsupported: ResponseWriter does not implement http.Flusher")
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	h.turnMu.Lock()
	defer h.turnMu.Unlock()

	h.mu.Lock()
	state := h.state
	h.mu.Unlock()

	if _, found := state.Conversations.Get(id); !found {
		h.jsonError(w, "conversation not found", http.StatusNotFound)
		return
	}

	// Set headers for SSE
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	h.logger.Debug("new discussion stream", "conversation_id", id, "remote_addr", r.RemoteAddr)

	newState, err := h.orchestrator.HandleUserMessage(r.Context(), state, id, req.Content, func(event discussion.Event) {
		h.persistEvent(event)
		h.sendSSEEvent(w, flusher, string(event.Type), event)
	})
	if err != nil {
		h.sendSSEError(w, flusher, err.Error())
		return
	}

	h.mu.Lock()
	h.state = newState
	h.mu.Unlock()

	if conv, found := newState.Conversations.Get(id); found {
		if err := h.storage.UpdateConversation(&conv); err != nil {
			h.logger.Error("failed to persist conversation update", "id", id, "error", err)
		}
	}
	if err := h.storage.SaveLeaderboardEntries(newState.Leaderboard.Entries()); err != nil {
		h.logger.Error("failed to persist leaderboard", "error", err)
	}

	h.sendSSEEvent(w, flusher, "done", map[string]string{"conversation_id": id})
}

// persistEvent writes durable records for streamed events: every chat
// message, and every evaluation from a judged battle.
func (h *Handler) persistEvent(event discussion.Event) {
	if event.Message != nil {
		if err := h.storage.AddMessage(event.Message); err != nil {
			h.logger.Error("failed to persist message", "message_id", event.Message.ID, "error", err)
		}
	}
	if event.Type == discussion.EventEvaluation && event.BattleResult != nil {
		for i := range event.BattleResult.Evaluations {
			eval := event.BattleResult.Evaluations[i]
			if err := h.storage.SaveEvaluation(&eval); err != nil {
				h.logger.Error("failed to persist evaluation", "evaluation_id", eval.ID, "error", err)
			}
		}
	}
}

// sendSSEEvent sends a server-sent event.
func (h *Handler) sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		h.logger.Error("failed to write SSE event", "error", err)
		return
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonData); err != nil {
		h.logger.Error("failed to write SSE data", "error", err)
		return
	}
	flusher.Flush()
}

// sendSSEError sends an error event.
func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, message string) {
	h.sendSSEEvent(w, flusher, "error", map[string]string{"message": message})
}
