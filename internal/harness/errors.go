package harness

import (
	"errors"
	"fmt"
)

// RunError represents a failure detected while executing one harness run.
//
// Only abort-class failures (provisioning, module validation, teardown
// commands) are errors. Verdict-class outcomes, a surviving transcript or a
// missing required pattern, are data on the Verdict, never a RunError.
type RunError struct {
	// Code identifies the failure category.
	Code RunErrorCode

	// Message is a human-readable description. For log-assertion failures
	// it is the surviving transcript.
	Message string

	// Module identifies the failing module, when one is responsible.
	Module string

	// Err is the underlying cause, if any.
	Err error
}

// RunErrorCode categorizes run failures.
type RunErrorCode string

const (
	// ErrCodeProvisionFailed indicates cluster reconciliation or startup
	// failed before any module ran.
	ErrCodeProvisionFailed RunErrorCode = "PROVISION_FAILED"

	// ErrCodeModuleFailed indicates a module's validate path returned an
	// error, aborting the remaining groups.
	ErrCodeModuleFailed RunErrorCode = "MODULE_VALIDATION_FAILED"

	// ErrCodeTeardownFailed indicates a teardown step failed.
	ErrCodeTeardownFailed RunErrorCode = "TEARDOWN_FAILED"
)

// Error implements the error interface.
func (e *RunError) Error() string {
	if e.Module != "" {
		return fmt.Sprintf("%s: %s (module=%s)", e.Code, e.Message, e.Module)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RunError) Unwrap() error { return e.Err }

// CodeOf extracts the RunErrorCode from err, or "" when err is not a
// RunError. Uses errors.As to handle wrapped errors.
func CodeOf(err error) RunErrorCode {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

func newProvisionError(err error) *RunError {
	return &RunError{
		Code:    ErrCodeProvisionFailed,
		Message: "cluster provisioning failed",
		Err:     err,
	}
}

func newModuleError(moduleName string, err error) *RunError {
	return &RunError{
		Code:    ErrCodeModuleFailed,
		Message: err.Error(),
		Module:  moduleName,
		Err:     err,
	}
}

func newTeardownError(step string, err error) *RunError {
	return &RunError{
		Code:    ErrCodeTeardownFailed,
		Message: "teardown step " + step + " failed",
		Err:     err,
	}
}
