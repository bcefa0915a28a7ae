package runner

import (
	"fmt"

	"github.com/julianshen/stackharmony/internal/harmony"
	"github.com/julianshen/stackharmony/internal/output"
)

// Process exit codes used by the CLI.
const (
	ExitOK       = 0
	ExitInvalid  = 1
	ExitWarnings = 2
	ExitFailure  = 3
)

// ExitError is returned when a command should exit with a non-zero code.
// Using a typed error instead of os.Exit ensures deferred cleanup runs.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCodeFromValidation returns ExitInvalid for an invalid stack and, when
// failOnWarnings is set, ExitWarnings for a valid stack that carries
// warnings. A nil result passes.
func ExitCodeFromValidation(v *harmony.ValidationResult, failOnWarnings bool) int {
	switch {
	case v == nil:
		return ExitOK
	case !v.Valid:
		return ExitInvalid
	case failOnWarnings && len(v.Warnings) > 0:
		return ExitWarnings
	default:
		return ExitOK
	}
}

// ExitCodeFromReport folds a command report into an exit code. Failed
// commands exit with ExitFailure; validations follow ExitCodeFromValidation.
func ExitCodeFromReport(r *output.Report, failOnWarnings bool) int {
	if r == nil {
		return ExitOK
	}
	if r.Error != "" {
		return ExitFailure
	}
	return ExitCodeFromValidation(r.Validation, failOnWarnings)
}

// AsError converts a non-zero code into an *ExitError.
func AsError(code int) error {
	if code == ExitOK {
		return nil
	}
	return &ExitError{Code: code}
}
