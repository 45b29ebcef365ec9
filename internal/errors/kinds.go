package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a replay failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindCaptureLoad
	KindBind
	KindMalformedHandshake
	KindInvalidPayload
	KindSend
	KindHandshake
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config error"
	case KindCaptureLoad:
		return "capture load error"
	case KindBind:
		return "bind error"
	case KindMalformedHandshake:
		return "malformed handshake"
	case KindInvalidPayload:
		return "invalid payload"
	case KindSend:
		return "send error"
	case KindHandshake:
		return "handshake failed"
	default:
		return "error"
	}
}

// Error is a classified replay error. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches bare kind sentinels such as ErrConfig regardless of Op and Err.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrConfig             = &Error{Kind: KindConfig}
	ErrCaptureLoad        = &Error{Kind: KindCaptureLoad}
	ErrBind               = &Error{Kind: KindBind}
	ErrMalformedHandshake = &Error{Kind: KindMalformedHandshake}
	ErrInvalidPayload     = &Error{Kind: KindInvalidPayload}
	ErrSend               = &Error{Kind: KindSend}
	ErrHandshake          = &Error{Kind: KindHandshake}
)

// New wraps err with a kind and operation name.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf formats a new classified error.
func Newf(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Exit codes returned by the CLI.
const (
	ExitOK                 = 0
	ExitFailure            = 1
	ExitConfig             = 2
	ExitCaptureLoad        = 3
	ExitBind               = 4
	ExitMalformedHandshake = 5
	ExitInvalidPayload     = 6
	ExitSend               = 7
	ExitHandshake          = 8
	ExitCancelled          = 130
)

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case KindConfig:
		return ExitConfig
	case KindCaptureLoad:
		return ExitCaptureLoad
	case KindBind:
		return ExitBind
	case KindMalformedHandshake:
		return ExitMalformedHandshake
	case KindInvalidPayload:
		return ExitInvalidPayload
	case KindSend:
		return ExitSend
	case KindHandshake:
		return ExitHandshake
	}
	if IsCancelled(err) {
		return ExitCancelled
	}
	return ExitFailure
}
