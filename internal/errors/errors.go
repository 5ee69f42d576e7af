// Package errors provides the structured error taxonomy used throughout
// ufwgo. It replaces the exception hierarchy of the program this module was
// modeled on with an explicit, inspectable error value.
package errors

import (
	"errors"
	"fmt"
)

// Kind categorizes an error the way the rule engine's callers need to
// react to it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfig covers a malformed defaults file or an unknown policy value.
	// Fatal to the current operation; state is left unchanged.
	KindConfig
	// KindIO covers file open/read/write/rename failures. Temp files are
	// cleaned up before this is returned.
	KindIO
	// KindExternalCommand covers a non-zero exit from iptables/ip6tables/
	// iptables-restore/ip6tables-restore.
	KindExternalCommand
	// KindUnsupported covers operations that are valid requests but can't
	// be carried out on this platform or address family (IPv6 limit).
	// Never fatal to the caller beyond the attempted operation; reported
	// as a skip, not an abort.
	KindUnsupported
	// KindParseWarning covers a malformed persisted tuple or an unparsable
	// status line. Collected, never raised to abort a read.
	KindParseWarning
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindIO:
		return "io"
	case KindExternalCommand:
		return "external_command"
	case KindUnsupported:
		return "unsupported"
	case KindParseWarning:
		return "parse_warning"
	default:
		return "unknown"
	}
}

// Error is the concrete error type every fallible operation in ufwgo
// returns. It carries a Kind so callers can discriminate without string
// matching, and an optional Stderr capture for KindExternalCommand.
type Error struct {
	Kind       Kind
	Message    string
	Underlying error
	Stderr     string
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s (stderr: %s)", msg, e.Stderr)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// New creates a new Error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Errorf creates a new Error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err as a new Error of the given kind. Returns nil if err is nil.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Underlying: err}
}

// Wrapf wraps err as a new Error of the given kind with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Underlying: err}
}

// WithStderr attaches captured stderr output to an *Error. If err is not an
// *Error it is wrapped as KindExternalCommand first.
func WithStderr(err error, stderr string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: KindExternalCommand, Message: err.Error(), Underlying: err}
	}
	e.Stderr = stderr
	return e
}

// GetKind returns the Kind of err, or KindUnknown if err isn't an *Error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain matching target's type.
func As(err error, target any) bool { return errors.As(err, target) }

// ParseWarning is a non-fatal diagnostic produced while reading a rule file
// or a status listing. It is never returned as an aborting error; callers
// collect a slice of these alongside a successful result.
type ParseWarning struct {
	Source string // file path or "<status>"
	Line   string
	Reason string
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("%s: skipping %q: %s", w.Source, w.Line, w.Reason)
}
