// internal/runner/input.go
package runner

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ResolveIDs determines the tool ids for a command.
// Priority: args > filePath > stdinReader.
// stdinReader may be nil if stdin is a TTY (no pipe).
func ResolveIDs(args []string, filePath string, stdinReader io.Reader) ([]int64, error) {
	if len(args) > 0 {
		return ParseIDs(strings.Join(args, " "))
	}

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("reading id file: %w", err)
		}
		ids, err := ParseIDs(string(data))
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("id file is empty: %s", filePath)
		}
		return ids, nil
	}

	if stdinReader != nil {
		data, err := io.ReadAll(stdinReader)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		ids, err := ParseIDs(string(data))
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			return ids, nil
		}
	}

	return nil, fmt.Errorf("no tool ids provided: pass them as arguments, use --file, or pipe to stdin")
}

// ParseIDs reads positive tool ids separated by commas or whitespace.
func ParseIDs(s string) ([]int64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid tool id %q", f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseStacks reads one stack per argument, each a comma-separated id list.
func ParseStacks(args []string) ([][]int64, error) {
	stacks := make([][]int64, 0, len(args))
	for i, a := range args {
		ids, err := ParseIDs(a)
		if err != nil {
			return nil, fmt.Errorf("stack %d: %w", i+1, err)
		}
		stacks = append(stacks, ids)
	}
	return stacks, nil
}
