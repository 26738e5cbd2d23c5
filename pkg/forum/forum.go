// Package forum implements forum log rendering and summarization:
// full-text rendering for diagnostics, and a budgeted,
// important-entries-first summary for the renderer.
package forum

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
)

// SummaryCharBudget is the forum summary's character budget.
const SummaryCharBudget = 2000

const truncationSentinel = "\n...(forum log truncated)"

// importantVocabulary is the keyword set that promotes a non-orchestrator
// entry into the "important" bucket.
var importantVocabulary = []string{"review", "decision", "guidance", "supplement", "approve", "revise", "adjust"}

// RenderText renders the full forum log as one line per entry:
// "[timestamp] speaker: content", in append order.
func RenderText(entries []models.ForumEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), e.Speaker, e.Content))
	}
	return strings.Join(lines, "\n")
}

func isImportant(entry models.ForumEntry) bool {
	if entry.Speaker == "orchestrator" {
		return true
	}
	lower := strings.ToLower(entry.Content)
	for _, kw := range importantVocabulary {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Summarize produces the forum summary for the renderer: important
// entries first (in order), then remaining entries in order, until the
// given character budget is reached. The truncation sentinel is
// appended whenever any entry had to be left out to stay within
// budget, not merely when the joined text itself overflows — a run
// that drops low-priority entries but still lands under maxChars is
// still a truncated view of the raw log.
func Summarize(entries []models.ForumEntry, maxChars int) string {
	var important, other []string
	for _, e := range entries {
		line := fmt.Sprintf("[%s] %s", e.Speaker, e.Content)
		if isImportant(e) {
			important = append(important, line)
		} else {
			other = append(other, line)
		}
	}

	result := append([]string{}, important...)
	currentLength := 0
	for _, line := range result {
		currentLength += len(line) + 1
	}

	truncated := false
	for _, line := range other {
		if currentLength+len(line)+1 > maxChars {
			truncated = true
			break
		}
		result = append(result, line)
		currentLength += len(line) + 1
	}

	out := strings.Join(result, "\n")
	if len(out) > maxChars {
		truncated = true
	}
	if !truncated {
		return out
	}

	cut := maxChars - len(truncationSentinel)
	if cut < 0 {
		cut = 0
	}
	cut = lastRuneBoundary(out, cut)
	return out[:cut] + truncationSentinel
}

// lastRuneBoundary clamps n into [0, len(s)] and backs it up off any
// UTF-8 continuation byte, so slicing s[:n] never splits a multi-byte rune.
func lastRuneBoundary(s string, n int) int {
	if n >= len(s) {
		return len(s)
	}
	if n <= 0 {
		return 0
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
