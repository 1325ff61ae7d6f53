package oops

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-stack/stack"
)

// Error kinds surfaced to callers. Match with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrPermission    = errors.New("permission denied")
	ErrNotFound      = errors.New("not found")
	ErrConfiguration = errors.New("configuration error")
)

// Error is an unexpected failure carrying the call stack where it was wrapped.
type Error struct {
	Message string
	Wrapped error
	Stack   CallStack
}

func (e *Error) Error() string {
	if e.Wrapped == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Wrapped)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// LogValue renders the error with its stack when passed to slog.
func (e *Error) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("message", e.Error()),
		slog.Any("stack", e.Stack),
	)
}

type CallStack []StackFrame

type StackFrame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

func (f StackFrame) String() string {
	return fmt.Sprintf("%s:%d %s", f.File, f.Line, f.Function)
}

func (s CallStack) LogValue() slog.Value {
	frames := make([]string, len(s))
	for i, frame := range s {
		frames[i] = frame.String()
	}
	return slog.AnyValue(frames)
}

// New wraps an unexpected error with a message and the current call stack.
func New(wrapped error, format string, args ...interface{}) error {
	trace := stack.Trace().TrimRuntime()
	frames := make(CallStack, len(trace))
	for i, call := range trace {
		callFrame := call.Frame()
		frames[i] = StackFrame{
			File:     callFrame.File,
			Line:     callFrame.Line,
			Function: callFrame.Function,
		}
	}

	return &Error{
		Message: fmt.Sprintf(format, args...),
		Wrapped: wrapped,
		Stack:   frames,
	}
}

// kindError keeps the caller-facing message separate from the kind sentinel.
type kindError struct {
	kind    error
	message string
}

func (e *kindError) Error() string { return e.message }

func (e *kindError) Is(target error) bool { return target == e.kind }

func Validation(format string, args ...interface{}) error {
	return &kindError{kind: ErrValidation, message: fmt.Sprintf(format, args...)}
}

func Permission(format string, args ...interface{}) error {
	return &kindError{kind: ErrPermission, message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &kindError{kind: ErrNotFound, message: fmt.Sprintf(format, args...)}
}

func Configuration(format string, args ...interface{}) error {
	return &kindError{kind: ErrConfiguration, message: fmt.Sprintf(format, args...)}
}
