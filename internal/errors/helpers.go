package errors

import (
	"errors"
)

// As is a wrapper around errors.As that works with our Error type
func As(err error, target **Error) bool {
	return errors.As(err, target)
}

// Is reports whether err matches target. Two *Error values match on code.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// GetCode returns the code of the outermost *Error in err's chain.
// Plain errors are Internal and nil is OK.
func GetCode(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// GetMeta returns the metadata of the outermost *Error, or nil
func GetMeta(err error) map[string]interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Meta
	}
	return nil
}

// GetMessage returns the message meant for callers, without causes
func GetMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func hasCode(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

// IsInvalidArgument checks if an error is an invalid argument error
func IsInvalidArgument(err error) bool { return hasCode(err, CodeInvalidArgument) }

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool { return hasCode(err, CodeInternal) }

// IsUnavailable checks if an error is an unavailable error
func IsUnavailable(err error) bool { return hasCode(err, CodeUnavailable) }

// IsUnauthenticated checks if an error is an unauthenticated error
func IsUnauthenticated(err error) bool { return hasCode(err, CodeUnauthenticated) }

// IsFailedPrecondition checks if an error is a failed precondition error
func IsFailedPrecondition(err error) bool { return hasCode(err, CodeFailedPrecondition) }

// IsDataLoss checks if an error is a data loss error
func IsDataLoss(err error) bool { return hasCode(err, CodeDataLoss) }
