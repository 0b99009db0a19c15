package dataset

import "errors"

// InvalidInputError reports a missing or non-rectangular dataset.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e == nil || e.Reason == "" {
		return "invalid dataset"
	}
	return "invalid dataset: " + e.Reason
}

// IsInvalidInput reports whether err is or wraps an *InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}
