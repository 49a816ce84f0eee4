// Package conversation holds chat sessions and their message timelines. A
// Manager is an immutable snapshot; adding a message returns a new manager
// and leaves every earlier snapshot intact.
package conversation

import (
	"sort"
	"time"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/immutable"
)

// Manager is an immutable conversation store.
type Manager struct {
	conversations map[string]core.Conversation
	messages      map[string][]core.ChatMessage
}

// NewManager creates an empty conversation store.
func NewManager() *Manager {
	return &Manager{
		conversations: make(map[string]core.Conversation),
		messages:      make(map[string][]core.ChatMessage),
	}
}

// Create starts a new conversation and returns the updated manager with it.
func (m *Manager) Create(title string) (*Manager, core.Conversation) {
	now := time.Now()
	conv := core.Conversation{
		ID:        core.NewID(),
		Title:     title,
		Status:    core.ConversationActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return &Manager{
		conversations: immutable.MapSet(m.conversations, conv.ID, conv),
		messages:      immutable.MapSet(m.messages, conv.ID, []core.ChatMessage{}),
	}, conv
}

// Load seeds the store with a persisted conversation and its messages, used
// when rebuilding in-memory state at startup.
func (m *Manager) Load(conv core.Conversation, msgs []core.ChatMessage) *Manager {
	stored := make([]core.ChatMessage, len(msgs))
	copy(stored, msgs)
	return &Manager{
		conversations: immutable.MapSet(m.conversations, conv.ID, conv),
		messages:      immutable.MapSet(m.messages, conv.ID, stored),
	}
}

// Get returns a conversation by ID.
func (m *Manager) Get(id string) (core.Conversation, bool) {
	conv, ok := m.conversations[id]
	return conv, ok
}

// All returns every conversation, newest first.
func (m *Manager) All() []core.Conversation {
	out := make([]core.Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// Messages returns a conversation's messages in order. A positive limit
// returns only the most recent messages.
func (m *Manager) Messages(conversationID string, limit int) []core.ChatMessage {
	msgs := m.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]core.ChatMessage, len(msgs))
	copy(out, msgs)
	return out
}

// AddMessage appends a message to its conversation and bumps the
// conversation's message count and timestamp.
func (m *Manager) AddMessage(msg core.ChatMessage) *Manager {
	existing := m.messages[msg.ConversationID]
	next := &Manager{
		conversations: m.conversations,
		messages:      immutable.MapSet(m.messages, msg.ConversationID, immutable.Append(existing, msg)),
	}
	if conv, ok := m.conversations[msg.ConversationID]; ok {
		conv.MessageCount++
		conv.UpdatedAt = time.Now()
		next.conversations = immutable.MapSet(m.conversations, msg.ConversationID, conv)
	}
	return next
}

// Archive marks a conversation archived. Unknown IDs are a no-op.
func (m *Manager) Archive(id string) *Manager {
	conv, ok := m.conversations[id]
	if !ok {
		return m
	}
	conv.Status = core.ConversationArchived
	conv.UpdatedAt = time.Now()
	return &Manager{
		conversations: immutable.MapSet(m.conversations, id, conv),
		messages:      m.messages,
	}
}

// RecentContext returns the last maxMessages messages in provider shape.
// Model messages are relabeled "assistant" for completion APIs.
func (m *Manager) RecentContext(conversationID string, maxMessages int) []core.ContextMessage {
	msgs := m.Messages(conversationID, maxMessages)
	out := make([]core.ContextMessage, len(msgs))
	for i, msg := range msgs {
		role := string(msg.Role)
		if msg.Role == core.RoleModel {
			role = "assistant"
		}
		out[i] = core.ContextMessage{Role: role, Content: msg.Content}
	}
	return out
}
