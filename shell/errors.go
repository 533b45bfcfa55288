package shell

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/3l-d1abl0/tempDB-client/common"
)

type Class int

const (
	ClassUsage Class = iota
	ClassPort
	ClassConnect
	ClassInput
	ClassWrite
	ClassRead
	ClassTimeout
	ClassPeerClosed
	ClassDecode
)

var classNames = [...]string{
	ClassUsage:      "usage",
	ClassPort:       "port",
	ClassConnect:    "connect",
	ClassInput:      "input",
	ClassWrite:      "write",
	ClassRead:       "read",
	ClassTimeout:    "timeout",
	ClassPeerClosed: "peer-closed",
	ClassDecode:     "decode",
}

func (c Class) String() string {
	if c < 0 || int(c) >= len(classNames) {
		return fmt.Sprintf("class(%d)", int(c))
	}
	return classNames[c]
}

// Error is a failure tagged with the stage it happened in.
type Error struct {
	Class Class
	Op    string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// ErrInvalidText marks a response that is not valid UTF-8.
var ErrInvalidText = errors.New("response is not valid UTF-8")

// Classify wraps err as an *Error. fallback is used when err carries no more specific
// signal; errors that are already classified pass through.
func Classify(err error, op string, fallback Class) *Error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	class := fallback
	var ne net.Error
	switch {
	case errors.Is(err, common.ErrUsage):
		class = ClassUsage
	case errors.Is(err, common.ErrPort):
		class = ClassPort
	case errors.Is(err, ErrInvalidText):
		class = ClassDecode
	case errors.As(err, &ne) && ne.Timeout():
		class = ClassTimeout
	case fallback == ClassRead && errors.Is(err, io.EOF):
		class = ClassPeerClosed
	}
	return &Error{Class: class, Op: op, Err: err}
}

type Action int

const (
	Abort Action = iota
	Continue
)

// Policy decides what the session does after a classified failure.
type Policy func(*Error) Action

// FailFast stops the session on every failure except an undecodable response, which
// has already been printed with replacement characters.
func FailFast(e *Error) Action {
	if e.Class == ClassDecode {
		return Continue
	}
	return Abort
}
