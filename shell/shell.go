// Package shell runs the interactive relay between a terminal and one TCP connection.
//
// The loop is synchronous: prompt, read a line, send it, read once from the socket,
// print. A reply longer than common.BufferSize, or split across segments, is only
// partly shown; the rest is read by later iterations if at all.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/3l-d1abl0/tempDB-client/common"
)

type State int

const (
	Connecting State = iota
	Interacting
	Terminated
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Interacting:
		return "interacting"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Session struct {
	target common.Target
	in     LineReader
	out    io.Writer
	log    *logrus.Logger
	policy Policy

	conn  net.Conn
	state State
	buf   [common.BufferSize]byte
}

type Option func(*Session)

func WithPolicy(p Policy) Option {
	return func(s *Session) { s.policy = p }
}

func WithLogger(l *logrus.Logger) Option {
	return func(s *Session) { s.log = l }
}

func New(target common.Target, in LineReader, out io.Writer, opts ...Option) *Session {
	s := &Session{
		target: target,
		in:     in,
		out:    out,
		policy: FailFast,
		state:  Connecting,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logrus.New()
		s.log.SetOutput(io.Discard)
	}
	return s
}

func (s *Session) State() State { return s.state }

func (s *Session) Address() string { return s.target.Address() }

// Connect dials the target. On failure the session is terminated.
func (s *Session) Connect(ctx context.Context) error {
	addr := s.Address()
	fmt.Fprintf(s.out, "Connecting to %s...\n", addr)
	conn, err := common.Connect(ctx, s.target)
	if err != nil {
		s.state = Terminated
		return Classify(err, "connect to "+addr, ClassConnect)
	}
	s.conn = conn
	s.state = Interacting
	fmt.Fprintf(s.out, "Connected to %s successfully!\n", addr)
	fmt.Fprintf(s.out, "Type '%s' or press Ctrl+D to quit.\n", common.ExitCommand)
	return nil
}

// Run loops until the exit command, end of input, or a failure the policy aborts on.
// A nil return means the user ended the session.
func (s *Session) Run() error {
	if s.state != Interacting {
		return &Error{Class: ClassConnect, Op: "run", Err: errors.New("session is not connected")}
	}
	defer func() { s.state = Terminated }()

	prompt := s.Address() + " > "
	for {
		line, err := s.in.ReadLine(prompt)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}
		if err != nil {
			if e := s.fail(Classify(err, "read input", ClassInput)); e != nil {
				return e
			}
			continue
		}
		if strings.TrimSpace(line) == common.ExitCommand {
			return nil
		}
		if err = s.exchange(line); err != nil {
			return err
		}
	}
}

// exchange sends one line and prints the single bounded read that follows.
func (s *Session) exchange(line string) error {
	fmt.Fprint(s.out, line)

	if err := common.Send(s.conn, []byte(line)); err != nil {
		return s.fail(Classify(err, "write to "+s.Address(), ClassWrite))
	}
	n, err := common.Receive(s.conn, s.buf[:])
	if err != nil {
		return s.fail(Classify(err, "read from "+s.Address(), ClassRead))
	}
	s.log.WithFields(logrus.Fields{"sent": len(line), "received": n}).Debug("exchange")

	text, err := decode(s.buf[:n])
	fmt.Fprintln(s.out, text)
	if err != nil {
		return s.fail(Classify(err, "decode response", ClassDecode))
	}
	return nil
}

// fail returns e when the policy aborts, nil when it lets the loop go on.
func (s *Session) fail(e *Error) error {
	if s.policy(e) == Continue {
		s.log.WithField("class", e.Class).Warn(e.Error())
		return nil
	}
	return e
}

// Close releases the connection.
func (s *Session) Close() error {
	s.state = Terminated
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// decode turns exactly the received bytes into text. Invalid UTF-8 is replaced with
// U+FFFD and reported.
func decode(b []byte) (string, error) {
	if utf8.Valid(b) {
		return string(b), nil
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError)), ErrInvalidText
}
