package core

import (
	"regexp"
	"strings"
)

var mentionRe = regexp.MustCompile(`@([\w/.-]+)`)

// ParseMentions finds @model references in text and resolves them against the
// known model IDs. An exact match wins; otherwise the bare model name (the
// part after the last slash) is matched by prefix, so "@claude" resolves to
// "anthropic/claude-sonnet-4".
func ParseMentions(text string, knownModelIDs []string) []Mention {
	var mentions []Mention

	for _, loc := range mentionRe.FindAllStringSubmatchIndex(text, -1) {
		raw := text[loc[2]:loc[3]]
		start, end := loc[0], loc[1]

		if id, ok := matchModelID(raw, knownModelIDs); ok {
			mentions = append(mentions, Mention{ModelID: id, StartIndex: start, EndIndex: end})
		}
	}

	return mentions
}

func matchModelID(raw string, knownModelIDs []string) (string, bool) {
	lower := strings.ToLower(raw)

	for _, id := range knownModelIDs {
		if strings.ToLower(id) == lower {
			return id, true
		}
	}

	for _, id := range knownModelIDs {
		parts := strings.Split(id, "/")
		name := parts[len(parts)-1]
		if strings.HasPrefix(strings.ToLower(name), lower) {
			return id, true
		}
	}

	return "", false
}

// MentionedModelIDs extracts the unique model IDs from a mention list,
// preserving first-seen order.
func MentionedModelIDs(mentions []Mention) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range mentions {
		if !seen[m.ModelID] {
			seen[m.ModelID] = true
			ids = append(ids, m.ModelID)
		}
	}
	return ids
}

// StripMentions removes mention syntax, leaving the readable content.
func StripMentions(text string) string {
	stripped := mentionRe.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(stripped), " ")
}

// IsModelMentioned reports whether modelID appears in the mention list.
func IsModelMentioned(mentions []Mention, modelID string) bool {
	for _, m := range mentions {
		if m.ModelID == modelID {
			return true
		}
	}
	return false
}
