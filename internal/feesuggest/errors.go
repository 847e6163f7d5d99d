package feesuggest

import "github.com/pkg/errors"

// Error kinds. Every failure returned by this package wraps exactly one of
// them, so callers classify with errors.Is.
var (
	// ErrInvalidInput reports a malformed argument: an empty sequence, a
	// non-positive smoothing length, an unparsable amount.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingData reports a fee-history window that lacks required arrays.
	ErrMissingData = errors.New("missing fee history data")
	// ErrUndefinedResult reports a smoothing or filtering step with no usable value.
	ErrUndefinedResult = errors.New("undefined result")
)

func invalidInput(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidInput, format, args...)
}

func missingData(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMissingData, format, args...)
}

func undefinedResult(format string, args ...interface{}) error {
	return errors.Wrapf(ErrUndefinedResult, format, args...)
}
