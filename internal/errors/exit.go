package errors

import "errors"

// Exit codes returned by the weaver binary.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitValidationError indicates the configuration failed validation.
	ExitValidationError = 2

	// ExitNotFound indicates a dependency, module, or file was not found.
	ExitNotFound = 5

	// ExitWeavingError indicates a fatal weaving condition.
	ExitWeavingError = 7

	// ExitConsistencyError indicates an internal consistency failure while cloning.
	ExitConsistencyError = 8
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Err  error
	Code int

	// Printed is set once the command layer has already reported the error.
	Printed bool
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCodeFromError determines the appropriate exit code for an error.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	// Consistency is checked first: it is the more specific diagnosis.
	switch {
	case errors.Is(err, ErrConsistency):
		return ExitConsistencyError
	case errors.Is(err, ErrValidation):
		return ExitValidationError
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrWeaving):
		return ExitWeavingError
	default:
		return ExitGeneralError
	}
}

// ExitCodeName returns the name of the exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitSuccess:
		return "Success"
	case ExitGeneralError:
		return "General Error"
	case ExitValidationError:
		return "Validation Error"
	case ExitNotFound:
		return "Not Found"
	case ExitWeavingError:
		return "Weaving Error"
	case ExitConsistencyError:
		return "Internal Consistency Error"
	default:
		return "Unknown"
	}
}
