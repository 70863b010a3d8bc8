package pyramid

import (
	"errors"
	"fmt"
)

// Kind classifies a generation failure. Every kind is fatal.
type Kind int

const (
	// InputNotFound means the source path is missing or unreadable.
	InputNotFound Kind = iota + 1
	// DecodeError means the source is corrupt or in an unsupported format.
	DecodeError
	// InvalidConfig means a non-positive tile size or dimension, or an
	// unusable option combination.
	InvalidConfig
	// IOError means an output directory, tile or metadata write failed.
	IOError
)

func (k Kind) String() string {
	switch k {
	case InputNotFound:
		return "input not found"
	case DecodeError:
		return "decode error"
	case InvalidConfig:
		return "invalid config"
	case IOError:
		return "io error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Sentinels for errors.Is checks against an *Error of the same kind.
var (
	ErrInputNotFound = &Error{Kind: InputNotFound}
	ErrDecode        = &Error{Kind: DecodeError}
	ErrInvalidConfig = &Error{Kind: InvalidConfig}
	ErrIO            = &Error{Kind: IOError}
)

// Error is returned for every failure of a pyramid run
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "decode" or "write tile"
	Path string // file involved, if any
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of err, or 0 when err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func configError(format string, args ...any) error {
	return &Error{Kind: InvalidConfig, Op: "validate", Err: fmt.Errorf(format, args...)}
}

func ioError(op, path string, err error) error {
	return &Error{Kind: IOError, Op: op, Path: path, Err: err}
}
