// Package privacy removes content that must never be persisted: text
// the user wrapped in <private> tags, and memkeep's own injected
// context blocks, which would otherwise echo back into the store on
// every prompt.
package privacy

import (
	"regexp"
	"strings"
)

var (
	privateRe  = regexp.MustCompile(`(?s)<private>.*?</private>`)
	injectedRe = regexp.MustCompile(`(?s)<memkeep-context>.*?</memkeep-context>`)
)

// StripPrivate removes <private>...</private> spans. Unclosed tags are
// left alone rather than swallowing the rest of the text.
func StripPrivate(text string) string {
	return privateRe.ReplaceAllString(text, "")
}

// StripInjected removes <memkeep-context>...</memkeep-context> blocks
// that the session-start hook prepends to prompts.
func StripInjected(text string) string {
	return injectedRe.ReplaceAllString(text, "")
}

// Clean strips both tag kinds and trims the result. Call it on any
// user-authored text before it reaches the store or the model.
func Clean(text string) string {
	return strings.TrimSpace(StripInjected(StripPrivate(text)))
}

// IsEntirelyPrivate reports whether nothing of the text survives
// stripping, meaning the whole message was marked private.
func IsEntirelyPrivate(text string) bool {
	return strings.TrimSpace(StripPrivate(text)) == ""
}
