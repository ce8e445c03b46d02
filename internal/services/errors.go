package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool     = errors.New("external tool error")
	ErrValidation       = errors.New("validation error")
	ErrConfiguration    = errors.New("configuration error")
	ErrNotFound         = errors.New("not found")
	ErrTimeout          = errors.New("timeout")
	ErrTransient        = errors.New("transient failure")
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Process exit codes used by step processes. The orchestrator maps them back
// to error kinds without parsing step output.
const (
	ExitFailure          = 1
	ExitConfiguration    = 78
	ExitValidation       = 3
	ExitNotFound         = 4
	ExitExternalTool     = 5
	ExitTimeout          = 6
	ExitRetriesExhausted = 75
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails is the classified view of an error used for status messages and
// exit codes.
type ErrorDetails struct {
	Kind    string
	Message string
	Hint    string
}

// Details classifies err by its marker. Unmarked errors are reported as
// "failure".
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: "failure", Message: strings.TrimSpace(err.Error())}
	switch {
	case errors.Is(err, ErrRetriesExhausted):
		details.Kind = "retries_exhausted"
		details.Hint = "the external service kept failing; re-run the workflow from this step later"
	case errors.Is(err, ErrConfiguration):
		details.Kind = "configuration"
		details.Hint = "check lessonreel config and credentials"
	case errors.Is(err, ErrValidation):
		details.Kind = "validation"
		details.Hint = "check the workflow parameters"
	case errors.Is(err, ErrNotFound):
		details.Kind = "not_found"
		details.Hint = "an earlier step did not produce a required artifact"
	case errors.Is(err, ErrTimeout):
		details.Kind = "timeout"
		details.Hint = "the external call timed out"
	case errors.Is(err, ErrExternalTool):
		details.Kind = "external_tool"
		details.Hint = "check the external tool output above"
	case errors.Is(err, ErrTransient):
		details.Kind = "transient"
	}
	return details
}

// ExitCode returns the process exit code for err. A nil error exits 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch Details(err).Kind {
	case "retries_exhausted":
		return ExitRetriesExhausted
	case "configuration":
		return ExitConfiguration
	case "validation":
		return ExitValidation
	case "not_found":
		return ExitNotFound
	case "timeout":
		return ExitTimeout
	case "external_tool":
		return ExitExternalTool
	default:
		return ExitFailure
	}
}

// MarkerForExitCode is the inverse of ExitCode. Unknown non-zero codes map to
// ErrExternalTool since the step itself is an external process.
func MarkerForExitCode(code int) error {
	switch code {
	case 0:
		return nil
	case ExitRetriesExhausted:
		return ErrRetriesExhausted
	case ExitConfiguration:
		return ErrConfiguration
	case ExitValidation:
		return ErrValidation
	case ExitNotFound:
		return ErrNotFound
	case ExitTimeout:
		return ErrTimeout
	default:
		return ErrExternalTool
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
