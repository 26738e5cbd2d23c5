package render_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/render"
)

func TestRender_ProducesTitleHighlightsAndThreeSources(t *testing.T) {
	r := render.New()
	reports := map[models.Agent]string{
		models.AgentQuery:   "EV market grew 30% in 2025. Demand driven by battery prices.",
		models.AgentMedia:   "Major outlets covered the EV price war extensively.",
		models.AgentInsight: "Analysts expect continued growth through 2026.",
	}

	doc, err := r.Render("Analyze EV market 2025", reports, "[orchestrator] plan review: approve")
	require.NoError(t, err)
	require.Contains(t, doc.Metadata.Title, "Analyze EV market 2025")
	require.NotEmpty(t, doc.Highlights)
	require.Len(t, doc.Sources, 3)
}

func TestRender_NoReportsErrors(t *testing.T) {
	r := render.New()
	_, err := r.Render("q", map[models.Agent]string{}, "")
	require.Error(t, err)
}

func TestDocument_FormatConversions(t *testing.T) {
	r := render.New()
	doc, err := r.Render("q", map[models.Agent]string{models.AgentQuery: "finding one. finding two."}, "summary text")
	require.NoError(t, err)

	raw, err := doc.ToJSON()
	require.NoError(t, err)
	require.Contains(t, string(raw), `"title"`)

	md := doc.ToMarkdown()
	require.Contains(t, md, "# ")
	require.Contains(t, md, "## Highlights")

	htm := doc.ToHTML()
	require.Contains(t, htm, "<h1>")
}
