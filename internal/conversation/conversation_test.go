package conversation

import (
	"fmt"
	"testing"
	"time"

	"github.com/alienxp03/arena/internal/core"
)

func message(conversationID, content string, role core.ChatRole) core.ChatMessage {
	return core.ChatMessage{
		ID:             core.NewID(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}
}

func TestCreate(t *testing.T) {
	m := NewManager()
	updated, conv := m.Create("Planning session")

	if conv.ID == "" {
		t.Fatal("empty conversation ID")
	}
	if conv.Title != "Planning session" {
		t.Errorf("wrong title: %s", conv.Title)
	}
	if conv.Status != core.ConversationActive {
		t.Errorf("wrong status: %s", conv.Status)
	}

	if _, ok := updated.Get(conv.ID); !ok {
		t.Error("conversation not in new snapshot")
	}
	if _, ok := m.Get(conv.ID); ok {
		t.Error("original snapshot modified")
	}
}

func TestAddMessage(t *testing.T) {
	m, conv := NewManager().Create("Chat")

	before := m
	m = m.AddMessage(message(conv.ID, "first", core.RoleUser))
	m = m.AddMessage(message(conv.ID, "second", core.RoleModel))

	msgs := m.Messages(conv.ID, 0)
	if len(msgs) != 2 {
		t.Fatalf("wrong message count: %d", len(msgs))
	}
	if msgs[0].Content != "first" || msgs[1].Content != "second" {
		t.Errorf("wrong order: %s, %s", msgs[0].Content, msgs[1].Content)
	}

	updated, _ := m.Get(conv.ID)
	if updated.MessageCount != 2 {
		t.Errorf("wrong message count on conversation: %d", updated.MessageCount)
	}

	// Earlier snapshot unchanged
	if got := before.Messages(conv.ID, 0); len(got) != 0 {
		t.Errorf("original snapshot modified: %d messages", len(got))
	}
}

func TestMessagesLimit(t *testing.T) {
	m, conv := NewManager().Create("Chat")
	for i := 0; i < 5; i++ {
		m = m.AddMessage(message(conv.ID, fmt.Sprintf("msg %d", i), core.RoleUser))
	}

	recent := m.Messages(conv.ID, 2)
	if len(recent) != 2 {
		t.Fatalf("wrong count: %d", len(recent))
	}
	if recent[0].Content != "msg 3" || recent[1].Content != "msg 4" {
		t.Errorf("wrong tail: %s, %s", recent[0].Content, recent[1].Content)
	}
}

func TestAllOrdering(t *testing.T) {
	m := NewManager()
	m, first := m.Create("First")
	m, _ = m.Create("Second")

	// Touching the older conversation moves it to the front
	m = m.AddMessage(message(first.ID, "bump", core.RoleUser))

	all := m.All()
	if len(all) != 2 {
		t.Fatalf("wrong count: %d", len(all))
	}
	if all[0].ID != first.ID {
		t.Errorf("wrong order: %s first", all[0].Title)
	}
}

func TestArchive(t *testing.T) {
	m, conv := NewManager().Create("Chat")

	archived := m.Archive(conv.ID)
	got, _ := archived.Get(conv.ID)
	if got.Status != core.ConversationArchived {
		t.Errorf("wrong status: %s", got.Status)
	}

	orig, _ := m.Get(conv.ID)
	if orig.Status != core.ConversationActive {
		t.Error("original snapshot modified")
	}

	t.Run("UnknownIDNoOp", func(t *testing.T) {
		if m.Archive("nonexistent") != m {
			t.Error("expected same manager for unknown ID")
		}
	})
}

func TestLoad(t *testing.T) {
	conv := core.Conversation{
		ID:           "conv-1",
		Title:        "Restored",
		Status:       core.ConversationActive,
		MessageCount: 2,
		UpdatedAt:    time.Now(),
	}
	msgs := []core.ChatMessage{
		message("conv-1", "hello", core.RoleUser),
		message("conv-1", "hi there", core.RoleModel),
	}

	m := NewManager().Load(conv, msgs)

	if got, ok := m.Get("conv-1"); !ok || got.Title != "Restored" {
		t.Errorf("conversation not loaded: %+v", got)
	}
	if got := m.Messages("conv-1", 0); len(got) != 2 {
		t.Errorf("messages not loaded: %d", len(got))
	}
}

func TestRecentContext(t *testing.T) {
	m, conv := NewManager().Create("Chat")
	m = m.AddMessage(message(conv.ID, "question", core.RoleUser))

	modelMsg := message(conv.ID, "answer", core.RoleModel)
	modelMsg.ModelID = "m1"
	m = m.AddMessage(modelMsg)

	context := m.RecentContext(conv.ID, 10)
	if len(context) != 2 {
		t.Fatalf("wrong count: %d", len(context))
	}
	if context[0].Role != "user" {
		t.Errorf("wrong role: %s", context[0].Role)
	}
	if context[1].Role != "assistant" {
		t.Errorf("model not relabeled: %s", context[1].Role)
	}
}
