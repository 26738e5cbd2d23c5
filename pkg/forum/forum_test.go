package forum_test

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/forum"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
)

func entry(speaker, content string) models.ForumEntry {
	return models.ForumEntry{Speaker: speaker, Content: content, Timestamp: time.Unix(0, 0)}
}

func TestRenderText_OneLinePerEntryInOrder(t *testing.T) {
	entries := []models.ForumEntry{
		entry("orchestrator", "plan phase started"),
		entry("query", "submitted plan"),
	}
	text := forum.RenderText(entries)
	lines := strings.Split(text, "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "orchestrator: plan phase started")
	require.Contains(t, lines[1], "query: submitted plan")
}

func TestSummarize_OrchestratorAndKeywordEntriesComeFirst(t *testing.T) {
	entries := []models.ForumEntry{
		entry("query", "routine status update"),
		entry("orchestrator", "plan review: approve"),
		entry("media", "our finding mentions a supplement of data"),
	}
	summary := forum.Summarize(entries, forum.SummaryCharBudget)
	lines := strings.Split(summary, "\n")
	require.Equal(t, "[orchestrator] plan review: approve", lines[0])
	require.Equal(t, "[media] our finding mentions a supplement of data", lines[1])
	require.Equal(t, "[query] routine status update", lines[2])
}

func TestSummarize_TruncatesOverBudget(t *testing.T) {
	// Important entries (orchestrator-spoken) are copied in unconditionally
	// before the budget gate applies to the remaining entries, so a large
	// enough run of them is guaranteed to overflow the budget.
	var entries []models.ForumEntry
	for i := 0; i < 200; i++ {
		entries = append(entries, entry("orchestrator", strings.Repeat("x", 50)))
	}
	summary := forum.Summarize(entries, 500)
	require.LessOrEqual(t, len(summary), 500)
	require.Contains(t, summary, "truncated")
}

func TestSummarize_EmptyLog(t *testing.T) {
	require.Equal(t, "", forum.Summarize(nil, forum.SummaryCharBudget))
}

func TestSummarize_SentinelPresentIffRawExceededBudget(t *testing.T) {
	var short []models.ForumEntry
	for i := 0; i < 3; i++ {
		short = append(short, entry("query", "short update"))
	}
	require.NotContains(t, forum.Summarize(short, forum.SummaryCharBudget), "truncated")

	var long []models.ForumEntry
	for i := 0; i < 200; i++ {
		long = append(long, entry("query", strings.Repeat("y", 50)))
	}
	raw := forum.RenderText(long)
	summary := forum.Summarize(long, 500)
	require.Greater(t, len(raw), 500)
	require.Contains(t, summary, "truncated")
}

func TestSummarize_TruncationNeverSplitsAMultiByteRune(t *testing.T) {
	var entries []models.ForumEntry
	for i := 0; i < 100; i++ {
		entries = append(entries, entry("query", strings.Repeat("計測データの詳細な分析結果", 5)))
	}
	summary := forum.Summarize(entries, 500)
	require.True(t, utf8.ValidString(summary))
}
