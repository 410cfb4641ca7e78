package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// InternalError carries a user-facing hint and structured details alongside
// the wrapped cause. The hint is what handlers render to callers; the cause
// chain stays available for logs and Sentry.
type InternalError struct {
	cause             error
	hint              string
	reportableDetails map[string]interface{}
}

func (e *InternalError) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return e.hint
}

func (e *InternalError) Unwrap() error {
	return e.cause
}

// Hint returns the user-facing message attached to err, if any.
func Hint(err error) string {
	var ie *InternalError
	if errors.As(err, &ie) && ie.hint != "" {
		return ie.hint
	}
	return ""
}

// ReportableDetails returns the structured details attached to err, if any.
func ReportableDetails(err error) map[string]interface{} {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.reportableDetails
	}
	return nil
}

// ErrorBuilder builds marked errors fluently:
//
//	ierr.NewError("plan is not supported").
//		WithHint("Please select a valid plan").
//		WithReportableDetails(map[string]interface{}{"plan": plan}).
//		Mark(ierr.ErrValidation)
type ErrorBuilder struct {
	err *InternalError
}

// NewError starts a builder from a fresh error message.
func NewError(message string) *ErrorBuilder {
	return &ErrorBuilder{
		err: &InternalError{cause: errors.New(message)},
	}
}

// NewErrorf starts a builder from a formatted error message.
func NewErrorf(format string, args ...interface{}) *ErrorBuilder {
	return NewError(fmt.Sprintf(format, args...))
}

// WithError starts a builder wrapping an existing error.
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{
		err: &InternalError{cause: err},
	}
}

// WithHint attaches a user-facing message.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err.hint = hint
	return b
}

// WithHintf attaches a formatted user-facing message.
func (b *ErrorBuilder) WithHintf(format string, args ...interface{}) *ErrorBuilder {
	b.err.hint = fmt.Sprintf(format, args...)
	return b
}

// WithReportableDetails attaches structured details safe to return to callers.
func (b *ErrorBuilder) WithReportableDetails(details map[string]interface{}) *ErrorBuilder {
	b.err.reportableDetails = details
	return b
}

// Mark finalizes the builder, marking the error with the given sentinel.
func (b *ErrorBuilder) Mark(sentinel error) error {
	return errors.Mark(b.err, sentinel)
}
