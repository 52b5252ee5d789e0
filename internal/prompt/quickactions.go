package prompt

import (
	"regexp"
	"strings"
)

// MaxQuickActions bounds how many suggestions a single reply may carry. The
// prompt directive asks the model for at most three; extraction truncates
// defensively in case the model ignores it.
const MaxQuickActions = 3

// quickActionPattern matches one [[QUICK_ACTION:...]] token. The capture is
// non-greedy so adjacent tokens on one line stay separate. Malformed or
// truncated brackets simply never match and stay in the visible text.
var quickActionPattern = regexp.MustCompile(`\[\[QUICK_ACTION:(.*?)\]\]`)

// ExtractQuickActions splits raw model output into the cleaned display text
// and the ordered quick-action suggestions embedded in it. It is a pure text
// transform: no token means the trimmed input comes back unchanged, and it
// never fails.
func ExtractQuickActions(raw string) (displayText string, actions []string) {
	matches := quickActionPattern.FindAllStringSubmatch(raw, -1)
	for _, m := range matches {
		if len(actions) == MaxQuickActions {
			break
		}
		action := strings.TrimSpace(m[1])
		if action == "" {
			continue
		}
		actions = append(actions, action)
	}

	displayText = strings.TrimSpace(quickActionPattern.ReplaceAllString(raw, ""))
	return displayText, actions
}
