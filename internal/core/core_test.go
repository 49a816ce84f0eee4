package core

import (
	"strings"
	"testing"
)

func TestParseMentions(t *testing.T) {
	known := []string{"anthropic/claude-sonnet-4", "openai/gpt-4o", "google/gemini-2.5-pro"}

	t.Run("ExactMatch", func(t *testing.T) {
		mentions := ParseMentions("ask @anthropic/claude-sonnet-4 about this", known)
		if len(mentions) != 1 {
			t.Fatalf("wrong mention count: got %d, want 1", len(mentions))
		}
		if mentions[0].ModelID != "anthropic/claude-sonnet-4" {
			t.Errorf("wrong model: got %s", mentions[0].ModelID)
		}
	})

	t.Run("PrefixMatch", func(t *testing.T) {
		mentions := ParseMentions("hey @claude what do you think", known)
		if len(mentions) != 1 {
			t.Fatalf("wrong mention count: got %d, want 1", len(mentions))
		}
		if mentions[0].ModelID != "anthropic/claude-sonnet-4" {
			t.Errorf("wrong model: got %s", mentions[0].ModelID)
		}
	})

	t.Run("CaseInsensitive", func(t *testing.T) {
		mentions := ParseMentions("@Claude and @GPT-4o", known)
		if len(mentions) != 2 {
			t.Fatalf("wrong mention count: got %d, want 2", len(mentions))
		}
		if mentions[1].ModelID != "openai/gpt-4o" {
			t.Errorf("wrong second model: got %s", mentions[1].ModelID)
		}
	})

	t.Run("UnknownModel", func(t *testing.T) {
		mentions := ParseMentions("@nobody should answer", known)
		if len(mentions) != 0 {
			t.Errorf("unexpected mentions: %v", mentions)
		}
	})

	t.Run("Indexes", func(t *testing.T) {
		text := "hi @claude"
		mentions := ParseMentions(text, known)
		if len(mentions) != 1 {
			t.Fatalf("wrong mention count: got %d", len(mentions))
		}
		if mentions[0].StartIndex != 3 || mentions[0].EndIndex != 10 {
			t.Errorf("wrong indexes: got [%d, %d)", mentions[0].StartIndex, mentions[0].EndIndex)
		}
	})

	t.Run("NoMentions", func(t *testing.T) {
		if got := ParseMentions("a plain message", known); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})
}

func TestMentionedModelIDs(t *testing.T) {
	mentions := []Mention{
		{ModelID: "a"},
		{ModelID: "b"},
		{ModelID: "a"},
	}
	ids := MentionedModelIDs(mentions)
	if len(ids) != 2 {
		t.Fatalf("wrong count: got %d, want 2", len(ids))
	}
	if ids[0] != "a" || ids[1] != "b" {
		t.Errorf("wrong order: got %v", ids)
	}
}

func TestStripMentions(t *testing.T) {
	got := StripMentions("hey @claude what about @gpt here")
	want := "hey what about here"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestIsModelMentioned(t *testing.T) {
	mentions := []Mention{{ModelID: "a"}}
	if !IsModelMentioned(mentions, "a") {
		t.Error("expected a to be mentioned")
	}
	if IsModelMentioned(mentions, "b") {
		t.Error("did not expect b to be mentioned")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Direct", `{"a": 1}`, `{"a": 1}`},
		{"Fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"FencedNoLang", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"SurroundingProse", `Here you go: {"a": 1} hope that helps`, `{"a": 1}`},
		{"LeadingWhitespace", "  \n{\"a\": 1}", `{"a": 1}`},
		{"NoJSON", "no braces here", "no braces here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEscapeXML(t *testing.T) {
	got := EscapeXML(`<tag attr="x"> & 'y'`)
	if strings.ContainsAny(got, "<>\"'") {
		t.Errorf("unescaped characters remain: %q", got)
	}
	if got != "&lt;tag attr=&quot;x&quot;&gt; &amp; &apos;y&apos;" {
		t.Errorf("got %q", got)
	}
}

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()
	if a == "" || b == "" {
		t.Fatal("empty ID")
	}
	if a == b {
		t.Error("duplicate IDs")
	}
}

func TestValidCategory(t *testing.T) {
	if !ValidCategory(CategoryStrategy) {
		t.Error("strategy should be valid")
	}
	if ValidCategory(TaskCategory("bogus")) {
		t.Error("bogus should be invalid")
	}
}
