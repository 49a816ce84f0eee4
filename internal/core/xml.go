package core

import "strings"

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeXML escapes user-supplied text before it is embedded in structured
// prompts, so content cannot break out of its enclosing tags.
func EscapeXML(text string) string {
	if text == "" {
		return ""
	}
	return xmlEscaper.Replace(text)
}
