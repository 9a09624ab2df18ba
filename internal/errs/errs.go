package errs

import (
	"errors"
)

// Code classifies a suite failure.
type Code string

const (
	// SetupFailed marks a precondition that could not be established
	// (fixture reset, user registration, navigation, a setup flow).
	SetupFailed Code = "setup_failed"
	// AssertionFailed marks an oracle whose expectation was not met.
	AssertionFailed Code = "assertion_failed"
	// DialogContract marks a native dialog with the wrong type or message.
	DialogContract  Code = "dialog_contract"
	InvalidArgument Code = "invalid_argument"
	Unavailable     Code = "unavailable"
	Internal        Code = "internal"
)

// Error is a coded suite error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		if e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// Setup wraps cause as a setup failure. Errors that already carry a code
// other than Internal keep their classification inside the wrapper chain,
// but CodeOf reports the outermost code.
func Setup(message string, cause error) error {
	return Wrap(SetupFailed, message, cause)
}

// CodeOf returns the outermost error code, defaulting to internal.
func CodeOf(err error) Code {
	if err == nil {
		return Internal
	}
	var coded *Error
	if errors.As(err, &coded) {
		if coded.Code == "" {
			return Internal
		}
		return coded.Code
	}
	return Internal
}

// MessageOf returns the message of the outermost coded error.
// Uncoded errors report "internal error".
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// Has reports whether any error in the chain carries code.
func Has(err error, code Code) bool {
	for err != nil {
		var coded *Error
		if !errors.As(err, &coded) {
			return false
		}
		if coded.Code == code {
			return true
		}
		err = coded.Err
	}
	return false
}

// IsSetup reports whether err is a setup failure (test-infrastructure error).
func IsSetup(err error) bool {
	return CodeOf(err) == SetupFailed
}

// IsAssertion reports whether err is a test-logic failure: an unmet
// expectation or a dialog-contract violation.
func IsAssertion(err error) bool {
	code := CodeOf(err)
	return code == AssertionFailed || code == DialogContract
}
