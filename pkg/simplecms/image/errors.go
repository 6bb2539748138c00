package image

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument marks arguments a toolkit operation refuses.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrUnknownOperation indicates the toolkit has no such operation.
var ErrUnknownOperation = errors.New("unknown image operation")

// ArgumentError is returned when an operation rejects its arguments.
type ArgumentError struct {
	Op  string
	Msg string
}

// NewArgumentError formats an ArgumentError for operation op.
func NewArgumentError(op, format string, args ...any) *ArgumentError {
	return &ArgumentError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

func (e *ArgumentError) Error() string {
	return e.Msg
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}
