package ingest

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a file was rejected.
type ErrorKind string

const (
	KindExtension ErrorKind = "extension"
	KindSize      ErrorKind = "size"
	KindEmpty     ErrorKind = "empty"
	KindEncoding  ErrorKind = "encoding"
	KindParse     ErrorKind = "parse"
	KindHeader    ErrorKind = "header"
)

// ValidationError reports a file that cannot be turned into a dataset.
type ValidationError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// AsValidation unwraps err to a *ValidationError.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func invalid(kind ErrorKind, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
