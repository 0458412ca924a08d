package llm

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	rolePrefix    = regexp.MustCompile(`(?im)^(客戶|客户|客服|customer|agent)\s*[：:]\s*`)
	punctuation   = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// NormalizeText prepares text for semantic comparison. Role-label
// prefixes and all punctuation are stripped and whitespace runs are
// collapsed, so the scorer only ever sees semantic content, never
// transcript formatting.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}

	text = rolePrefix.ReplaceAllString(text, "")
	text = punctuation.ReplaceAllString(text, "")
	text = whitespaceRun.ReplaceAllString(strings.TrimSpace(text), " ")
	return strings.TrimSpace(text)
}
