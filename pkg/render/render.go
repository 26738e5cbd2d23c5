// Package render implements the external renderer, treated as opaque:
// render(query, per_agent_reports, forum_summary) -> IR-document. The IR
// document itself is concrete here (it has to be, to produce the
// json/html/md formats the Submission API exposes at GET
// /task/{id}/result), but the Renderer interface keeps the Workflow
// Engine's dependency on it to a single Render call — a real deployment
// could swap in a templating or LLM-backed renderer behind the same
// interface.
package render

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
)

// Source is one agent's contribution, surfaced in the document's
// sources list.
type Source struct {
	Agent   models.Agent `json:"agent"`
	Excerpt string       `json:"excerpt"`
}

// Metadata carries the document's identifying fields.
type Metadata struct {
	Title       string    `json:"title"`
	Query       string    `json:"query"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Document is the IR-document the renderer produces and the Status
// Store / Query Cache persist.
type Document struct {
	Metadata   Metadata `json:"metadata"`
	Highlights []string `json:"highlights"`
	Sources    []Source `json:"sources"`
	Summary    string   `json:"forum_summary"`
}

// Renderer is the capability the Workflow Engine's finalizer invokes.
type Renderer interface {
	Render(query string, reports map[models.Agent]string, forumSummary string) (*Document, error)
}

// stubRenderer assembles a Document directly from agent report text
// without any external templating/LLM dependency: title from the query,
// one highlight per agent report, one source entry per agent.
type stubRenderer struct{}

// New returns the stand-in Renderer described above.
func New() Renderer { return &stubRenderer{} }

func (stubRenderer) Render(query string, reports map[models.Agent]string, forumSummary string) (*Document, error) {
	if len(reports) == 0 {
		return nil, fmt.Errorf("render: no agent reports available")
	}

	doc := &Document{
		Metadata: Metadata{
			Title:       fmt.Sprintf("Analysis: %s", query),
			Query:       query,
			GeneratedAt: time.Now(),
		},
		Summary: forumSummary,
	}
	for _, agent := range models.Agents {
		text, ok := reports[agent]
		if !ok || text == "" {
			continue
		}
		doc.Highlights = append(doc.Highlights, firstSentence(text))
		doc.Sources = append(doc.Sources, Source{Agent: agent, Excerpt: text})
	}
	if len(doc.Highlights) == 0 {
		return nil, fmt.Errorf("render: no usable report content across agents")
	}
	return doc, nil
}

func firstSentence(text string) string {
	if idx := strings.IndexAny(text, ".\n"); idx >= 0 {
		return strings.TrimSpace(text[:idx+1])
	}
	return text
}

// ToJSON marshals the document to its canonical JSON form, the shape
// stored in the Status Store and Query Cache.
func (d *Document) ToJSON() (json.RawMessage, error) {
	return json.Marshal(d)
}

// ToMarkdown renders the document as Markdown for GET .../result?format=md.
func (d *Document) ToMarkdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", d.Metadata.Title)
	sb.WriteString("## Highlights\n\n")
	for _, h := range d.Highlights {
		fmt.Fprintf(&sb, "- %s\n", h)
	}
	sb.WriteString("\n## Sources\n\n")
	for _, s := range d.Sources {
		fmt.Fprintf(&sb, "### %s\n\n%s\n\n", s.Agent, s.Excerpt)
	}
	if d.Summary != "" {
		fmt.Fprintf(&sb, "## Discussion Summary\n\n%s\n", d.Summary)
	}
	return sb.String()
}

// ToHTML renders the document as a minimal HTML fragment for
// GET .../result?format=html.
func (d *Document) ToHTML() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<h1>%s</h1>\n", html.EscapeString(d.Metadata.Title))
	sb.WriteString("<h2>Highlights</h2>\n<ul>\n")
	for _, h := range d.Highlights {
		fmt.Fprintf(&sb, "<li>%s</li>\n", html.EscapeString(h))
	}
	sb.WriteString("</ul>\n<h2>Sources</h2>\n")
	for _, s := range d.Sources {
		fmt.Fprintf(&sb, "<h3>%s</h3>\n<p>%s</p>\n", html.EscapeString(string(s.Agent)), html.EscapeString(s.Excerpt))
	}
	if d.Summary != "" {
		fmt.Fprintf(&sb, "<h2>Discussion Summary</h2>\n<p>%s</p>\n", html.EscapeString(d.Summary))
	}
	return sb.String()
}
