// cmd/stackharmony/stacks.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/julianshen/stackharmony/internal/harmony"
	"github.com/julianshen/stackharmony/internal/output"
	"github.com/julianshen/stackharmony/internal/runner"
)

// stdinIfPiped returns os.Stdin when it is a pipe, nil when it is a TTY.
func stdinIfPiped(cmd *cobra.Command) io.Reader {
	in := cmd.InOrStdin()
	f, ok := in.(*os.File)
	if !ok {
		return in
	}
	if stat, err := f.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		return f
	}
	return nil
}

// stackIDs resolves positional ids, --file, or piped stdin.
func stackIDs(cmd *cobra.Command, args []string, file string) ([]int64, error) {
	return runner.ResolveIDs(args, file, stdinIfPiped(cmd))
}

// run executes fn inside an app and renders its report. failOnWarnings only
// matters for validation reports.
func (c *cli) run(cmd *cobra.Command, name string, failOnWarnings bool, fn func(ctx context.Context, a *app) (*output.Report, error)) error {
	formatter, err := output.Resolve(c.outputFlag, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return c.withApp(cmd.Context(), func(a *app) error {
		report := runner.Run(cmd.Context(), name, func(ctx context.Context) (*output.Report, error) {
			return fn(ctx, a)
		})
		report.Names = a.names(cmd.Context(), report)

		out, err := formatter.Format(report)
		if err != nil {
			return fmt.Errorf("formatting output: %w", err)
		}
		if _, err := cmd.OutOrStdout().Write(out); err != nil {
			return err
		}
		return runner.AsError(runner.ExitCodeFromReport(report, failOnWarnings))
	})
}

// names resolves display names for every tool id a report mentions. Lookup
// failures only cost the names.
func (a *app) names(ctx context.Context, r *output.Report) map[int64]string {
	ids := append([]int64{}, r.ToolIDs...)
	if r.Lookup != nil {
		ids = append(ids, r.Lookup.ToolOneID, r.Lookup.ToolTwoID)
	}
	for _, p := range r.Pairs {
		ids = append(ids, p.ToolOneID, p.ToolTwoID)
	}
	for _, s := range r.Suggestions {
		ids = append(ids, s.MatchedWith...)
	}
	if r.Comparison != nil {
		for _, s := range r.Comparison.Stacks {
			ids = append(ids, s.ToolIDs...)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	tools, err := a.backend.Tools().GetByIDs(ctx, ids)
	if err != nil {
		return nil
	}
	out := make(map[int64]string, len(tools))
	for _, t := range tools {
		out[t.ID] = t.Name
	}
	return out
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid tool id %q", s)
	}
	return id, nil
}

func (c *cli) lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <tool-a> <tool-b>",
		Short: "Show the compatibility record for two tools",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			one, err := parseID(args[0])
			if err != nil {
				return err
			}
			two, err := parseID(args[1])
			if err != nil {
				return err
			}
			return c.run(cmd, "lookup", false, func(ctx context.Context, a *app) (*output.Report, error) {
				e, err := a.engine.Lookup(ctx, one, two)
				return &output.Report{ToolIDs: []int64{one, two}, Lookup: e}, err
			})
		},
	}
}

func (c *cli) harmonyCmd() *cobra.Command {
	var fileFlag string
	cmd := &cobra.Command{
		Use:   "harmony [tool-id...]",
		Short: "Score how well a stack fits together (0-100)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := stackIDs(cmd, args, fileFlag)
			if err != nil {
				return err
			}
			return c.run(cmd, "harmony", false, func(ctx context.Context, a *app) (*output.Report, error) {
				score, err := a.engine.Harmony(ctx, ids)
				return &output.Report{ToolIDs: ids, Harmony: &score}, err
			})
		},
	}
	cmd.Flags().StringVar(&fileFlag, "file", "", "read tool ids from file")
	return cmd
}

func (c *cli) validateCmd() *cobra.Command {
	var (
		fileFlag       string
		failOnWarnings bool
	)
	cmd := &cobra.Command{
		Use:   "validate [tool-id...]",
		Short: "Check a stack for conflicts, missing dependencies and gaps",
		Long: `Validate a stack. Exits 1 when the stack is invalid; with
--fail-on-warnings it also exits 2 when a valid stack carries warnings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := stackIDs(cmd, args, fileFlag)
			if err != nil {
				return err
			}
			return c.run(cmd, "validate", failOnWarnings, func(ctx context.Context, a *app) (*output.Report, error) {
				res, err := a.engine.Validate(ctx, ids)
				return &output.Report{ToolIDs: ids, Validation: res}, err
			})
		},
	}
	cmd.Flags().StringVar(&fileFlag, "file", "", "read tool ids from file")
	cmd.Flags().BoolVar(&failOnWarnings, "fail-on-warnings", false, "exit 2 when a valid stack has warnings")
	return cmd
}

func (c *cli) recommendCmd() *cobra.Command {
	var (
		fileFlag   string
		categoryID int64
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "recommend [tool-id...]",
		Short: "Rank tools that integrate well with a stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := stackIDs(cmd, args, fileFlag)
			if err != nil {
				return err
			}
			if categoryID < 0 || limit < 0 {
				return fmt.Errorf("--category and --limit must not be negative")
			}
			return c.run(cmd, "recommend", false, func(ctx context.Context, a *app) (*output.Report, error) {
				out, err := a.engine.Recommend(ctx, harmony.RecommendQuery{
					ToolIDs:    ids,
					CategoryID: categoryID,
					Limit:      limit,
				})
				if out == nil {
					out = []harmony.Suggestion{}
				}
				return &output.Report{ToolIDs: ids, Suggestions: out}, err
			})
		},
	}
	cmd.Flags().StringVar(&fileFlag, "file", "", "read tool ids from file")
	cmd.Flags().Int64Var(&categoryID, "category", 0, "only recommend tools from this category id")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum suggestions (0 uses the configured default)")
	return cmd
}

func (c *cli) matrixCmd() *cobra.Command {
	var fileFlag string
	cmd := &cobra.Command{
		Use:   "matrix [tool-id...]",
		Short: "Print the pairwise compatibility matrix of a stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := stackIDs(cmd, args, fileFlag)
			if err != nil {
				return err
			}
			return c.run(cmd, "matrix", false, func(ctx context.Context, a *app) (*output.Report, error) {
				pairs, err := a.engine.Bulk(ctx, ids)
				if pairs == nil {
					pairs = []harmony.PairScore{}
				}
				return &output.Report{ToolIDs: ids, Pairs: pairs}, err
			})
		},
	}
	cmd.Flags().StringVar(&fileFlag, "file", "", "read tool ids from file")
	return cmd
}

func (c *cli) compareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <ids> <ids>...",
		Short: "Score several stacks side by side",
		Long: `Compare stacks given as comma-separated id lists, for example:

  stackharmony compare 1,4,8,10 2,5,8,11`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stacks, err := runner.ParseStacks(args)
			if err != nil {
				return err
			}
			return c.run(cmd, "compare", false, func(ctx context.Context, a *app) (*output.Report, error) {
				res, err := a.engine.Compare(ctx, stacks)
				return &output.Report{Comparison: res}, err
			})
		},
	}
}
