// internal/runner/run.go
package runner

import (
	"context"
	"time"

	"github.com/julianshen/stackharmony/internal/output"
)

// Func executes one command and fills the fields of the report it returns.
type Func func(ctx context.Context) (*output.Report, error)

// Run executes fn and collects its outcome into a Report. Errors become
// Report.Error so every command renders through the same formatter; partial
// results from a failed fn are dropped apart from the tool ids.
func Run(ctx context.Context, command string, fn Func) *output.Report {
	start := time.Now()
	r, err := fn(ctx)
	if r == nil {
		r = &output.Report{}
	}
	if err != nil {
		r = &output.Report{ToolIDs: r.ToolIDs, Error: err.Error()}
	}
	r.Command = command
	r.Duration = time.Since(start)
	return r
}
