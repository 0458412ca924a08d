package dialog

import (
	"strings"
	"time"
)

// Speaker identifies which side of the conversation a line belongs to.
type Speaker string

const (
	SpeakerCustomer Speaker = "customer"
	SpeakerAgent    Speaker = "agent"
)

// Line is a single parsed dialogue line. Immutable once parsed.
type Line struct {
	Speaker    Speaker
	Text       string
	PauseAfter time.Duration
}

// Script holds the raw submitted text and its parsed lines.
type Script struct {
	Content string
	Lines   []Line
}

// Label sets accepted for each role. Matching is case-insensitive and
// accepts both the localized labels and the English fallback.
var (
	customerLabels = []string{"客戶", "客户", "customer"}
	agentLabels    = []string{"客服", "agent"}
)

// separators accepted between the role label and the utterance.
var separators = []string{":", "："}

// Parse splits raw script text into speaker-tagged lines.
//
// A line is recognized only when it starts with a known role label
// followed by a separator. Lines without a recognized label are
// silently dropped; callers that need at least one line must check the
// result length themselves. Parsing identical content always yields an
// identical sequence.
func Parse(content string, defaultPause time.Duration) *Script {
	script := &Script{Content: content}

	for _, raw := range strings.Split(strings.TrimSpace(content), "\n") {
		line, ok := parseLine(raw, defaultPause)
		if !ok {
			continue
		}
		script.Lines = append(script.Lines, line)
	}

	return script
}

func parseLine(raw string, defaultPause time.Duration) (Line, bool) {
	sepIdx := -1
	sepLen := 0
	for _, sep := range separators {
		if idx := strings.Index(raw, sep); idx >= 0 && (sepIdx < 0 || idx < sepIdx) {
			sepIdx = idx
			sepLen = len(sep)
		}
	}
	if sepIdx < 0 {
		return Line{}, false
	}

	label := strings.ToLower(strings.TrimSpace(raw[:sepIdx]))
	text := strings.TrimSpace(raw[sepIdx+sepLen:])
	if text == "" {
		return Line{}, false
	}

	speaker, ok := speakerFor(label)
	if !ok {
		return Line{}, false
	}

	return Line{Speaker: speaker, Text: text, PauseAfter: defaultPause}, true
}

func speakerFor(label string) (Speaker, bool) {
	for _, l := range customerLabels {
		if label == l {
			return SpeakerCustomer, true
		}
	}
	for _, l := range agentLabels {
		if label == l {
			return SpeakerAgent, true
		}
	}
	return "", false
}
