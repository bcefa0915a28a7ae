package runner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/julianshen/stackharmony/internal/harmony"
	"github.com/julianshen/stackharmony/internal/output"
)

func TestExitCodeFromValidation_Nil(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCodeFromValidation(nil, true))
}

func TestExitCodeFromValidation_Clean(t *testing.T) {
	v := &harmony.ValidationResult{Valid: true, Warnings: []string{}}
	assert.Equal(t, ExitOK, ExitCodeFromValidation(v, true))
}

func TestExitCodeFromValidation_Invalid(t *testing.T) {
	v := &harmony.ValidationResult{Valid: false, Warnings: []string{"low compatibility"}}
	assert.Equal(t, ExitInvalid, ExitCodeFromValidation(v, false))
	assert.Equal(t, ExitInvalid, ExitCodeFromValidation(v, true), "invalid wins over warnings")
}

func TestExitCodeFromValidation_Warnings(t *testing.T) {
	v := &harmony.ValidationResult{Valid: true, Warnings: []string{"low compatibility"}}
	// Warnings only gate when asked to.
	assert.Equal(t, ExitOK, ExitCodeFromValidation(v, false))
	assert.Equal(t, ExitWarnings, ExitCodeFromValidation(v, true))
}

func TestExitCodeFromReport(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCodeFromReport(nil, false))
	assert.Equal(t, ExitFailure, ExitCodeFromReport(&output.Report{Error: "boom"}, false))
	assert.Equal(t, ExitOK, ExitCodeFromReport(&output.Report{Command: "harmony"}, true))
	assert.Equal(t, ExitInvalid, ExitCodeFromReport(&output.Report{
		Validation: &harmony.ValidationResult{Valid: false},
	}, false))
}

func TestAsError(t *testing.T) {
	assert.NoError(t, AsError(ExitOK))

	var exitErr *ExitError
	assert.True(t, errors.As(AsError(ExitWarnings), &exitErr))
	assert.Equal(t, ExitWarnings, exitErr.Code)
}

func TestExitError(t *testing.T) {
	err := &ExitError{Code: 1}
	assert.Equal(t, "exit code 1", err.Error())

	// Verify errors.As works for type matching.
	var exitErr *ExitError
	assert.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.Code)
}
