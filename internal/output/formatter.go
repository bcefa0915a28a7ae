// internal/output/formatter.go
package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/julianshen/stackharmony/internal/catalog"
	"github.com/julianshen/stackharmony/internal/harmony"
	"github.com/julianshen/stackharmony/internal/heuristic"
	"github.com/julianshen/stackharmony/internal/seed"
)

// Output formats accepted by Resolve.
const (
	FormatAuto     = "auto"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Report holds the result of one CLI command. Only the field matching
// Command is set.
type Report struct {
	Command     string                    `json:"command"`
	ToolIDs     []int64                   `json:"tool_ids,omitempty"`
	Lookup      *catalog.Compatibility    `json:"compatibility,omitempty"`
	Harmony     *int                      `json:"harmony_score,omitempty"`
	Validation  *harmony.ValidationResult `json:"validation,omitempty"`
	Suggestions []harmony.Suggestion      `json:"suggestions,omitempty"`
	Pairs       []harmony.PairScore       `json:"pairs,omitempty"`
	Comparison  *harmony.Comparison       `json:"comparison,omitempty"`
	Seeded      *seed.Result              `json:"seeded,omitempty"`
	Generated   *heuristic.Result         `json:"generated,omitempty"`
	DurationMs  int64                     `json:"duration_ms"`
	Error       string                    `json:"error,omitempty"`

	// Names maps tool ids to display names for human-readable output.
	Names    map[int64]string `json:"-"`
	Duration time.Duration    `json:"-"`
}

// Name returns the display name for id, falling back to "#id".
func (r *Report) Name(id int64) string {
	if n, ok := r.Names[id]; ok && n != "" {
		return n
	}
	return fmt.Sprintf("#%d", id)
}

// Formatter formats a Report into output bytes.
type Formatter interface {
	Format(report *Report) ([]byte, error)
}

// Resolve picks a Formatter for format. "auto" selects Markdown when w is a
// terminal and JSON otherwise.
func Resolve(format string, w io.Writer) (Formatter, error) {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(), nil
	case FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case FormatAuto, "":
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return NewMarkdownFormatter(), nil
		}
		return NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want auto, json or markdown)", format)
	}
}
