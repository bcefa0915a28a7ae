// internal/output/markdown.go
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianshen/stackharmony/internal/harmony"
)

// MarkdownFormatter outputs a Report as human-readable Markdown.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format renders the Report as Markdown.
func (f *MarkdownFormatter) Format(r *Report) ([]byte, error) {
	var b strings.Builder

	if r.Error != "" {
		b.WriteString("## Error\n\n")
		b.WriteString(r.Error)
		b.WriteString("\n")
		return []byte(b.String()), nil
	}

	switch {
	case r.Command == "lookup":
		f.lookup(&b, r)
	case r.Harmony != nil:
		fmt.Fprintf(&b, "## Harmony\n\n%s: **%d/100**\n", r.stack(r.ToolIDs), *r.Harmony)
	case r.Validation != nil:
		f.validation(&b, r)
	case r.Suggestions != nil || r.Command == "recommend":
		f.suggestions(&b, r)
	case r.Pairs != nil || r.Command == "matrix":
		f.pairs(&b, r)
	case r.Comparison != nil:
		f.comparison(&b, r)
	case r.Seeded != nil:
		s := r.Seeded
		fmt.Fprintf(&b, "## Seed\n\n- categories created: %d\n- tools created: %d, updated: %d\n- edges created: %d, updated: %d\n",
			s.CategoriesCreated, s.ToolsCreated, s.ToolsUpdated, s.EdgesCreated, s.EdgesUpdated)
	case r.Generated != nil:
		g := r.Generated
		fmt.Fprintf(&b, "## Generate\n\n- tools: %d\n- pairs: %d\n- existing: %d\n- created: %d\n",
			g.Tools, g.Pairs, g.Existing, g.Created)
	}

	fmt.Fprintf(&b, "\n---\n*%s completed in %s*\n", r.Command, r.Duration.Round(time.Millisecond))
	return []byte(b.String()), nil
}

func (r *Report) stack(ids []int64) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = r.Name(id)
	}
	return strings.Join(names, " + ")
}

func (f *MarkdownFormatter) lookup(b *strings.Builder, r *Report) {
	b.WriteString("## Compatibility\n\n")
	e := r.Lookup
	if e == nil {
		fmt.Fprintf(b, "No compatibility data for %s.\n", r.stack(r.ToolIDs))
		return
	}
	fmt.Fprintf(b, "%s + %s: **%d/100**", r.Name(e.ToolOneID), r.Name(e.ToolTwoID), e.Score)
	if e.Verified {
		b.WriteString(" (verified)")
	}
	b.WriteString("\n")
	if e.Difficulty != "" {
		fmt.Fprintf(b, "\nDifficulty: %s\n", e.Difficulty)
	}
	if e.Notes != "" {
		fmt.Fprintf(b, "\n%s\n", e.Notes)
	}
	if len(e.SetupSteps) > 0 {
		b.WriteString("\n### Setup\n\n")
		for i, step := range e.SetupSteps {
			fmt.Fprintf(b, "%d. %s\n", i+1, step)
		}
	}
}

func (f *MarkdownFormatter) validation(b *strings.Builder, r *Report) {
	v := r.Validation
	status := "valid"
	if !v.Valid {
		status = "invalid"
	}
	fmt.Fprintf(b, "## Validation: %s\n\nHarmony: **%d/100**\n", status, v.HarmonyScore)

	if len(v.Conflicts) > 0 {
		b.WriteString("\n### Conflicts\n\n")
		for _, c := range v.Conflicts {
			fmt.Fprintf(b, "- %s vs %s (%s): %s\n", c.ToolOne, c.ToolTwo, c.Role, c.Reason)
		}
	}
	if len(v.Dependencies) > 0 {
		b.WriteString("\n### Missing dependencies\n\n")
		for _, d := range v.Dependencies {
			fmt.Fprintf(b, "- %s requires %s", d.Tool, d.Requires)
			if d.Reason != "" {
				fmt.Fprintf(b, ": %s", d.Reason)
			}
			b.WriteString("\n")
		}
	}
	list(b, "Warnings", v.Warnings)
	list(b, "Recommendations", v.Recommendations)
}

func list(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n### %s\n\n", title)
	for _, s := range items {
		fmt.Fprintf(b, "- %s\n", s)
	}
}

func (f *MarkdownFormatter) suggestions(b *strings.Builder, r *Report) {
	b.WriteString("## Recommendations\n\n")
	if len(r.Suggestions) == 0 {
		b.WriteString("No tools meet the recommendation threshold.\n")
		return
	}
	b.WriteString("| # | Tool | Score | Matched with |\n|---|---|---|---|\n")
	for i, s := range r.Suggestions {
		fmt.Fprintf(b, "| %d | %s | %d | %s |\n", i+1, s.Tool.Name, s.Score, r.stack(s.MatchedWith))
	}
}

func (f *MarkdownFormatter) pairs(b *strings.Builder, r *Report) {
	b.WriteString("## Compatibility matrix\n\n")
	if len(r.Pairs) == 0 {
		b.WriteString("Fewer than two tools; nothing to compare.\n")
		return
	}
	b.WriteString("| Tool | Tool | Score | Source |\n|---|---|---|---|\n")
	for _, p := range r.Pairs {
		fmt.Fprintf(b, "| %s | %s | %d | %s |\n", r.Name(p.ToolOneID), r.Name(p.ToolTwoID), p.Score, source(p))
	}
}

func source(p harmony.PairScore) string {
	switch {
	case !p.Known:
		return "neutral"
	case p.Verified:
		return "verified"
	default:
		return "catalog"
	}
}

func (f *MarkdownFormatter) comparison(b *strings.Builder, r *Report) {
	b.WriteString("## Stack comparison\n\n")
	if len(r.Comparison.Stacks) == 0 {
		b.WriteString("No stacks given.\n")
		return
	}
	b.WriteString("| # | Stack | Harmony | Known pairs |\n|---|---|---|---|\n")
	for i, s := range r.Comparison.Stacks {
		marker := ""
		if i == r.Comparison.Best {
			marker = " **best**"
		}
		fmt.Fprintf(b, "| %d | %s | %d%s | %d/%d |\n", i+1, r.stack(s.ToolIDs), s.Harmony, marker, s.Known, s.Pairs)
	}
}
