package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

const (
	BufferSize  = 1024
	ExitCommand = "exit"
	HostFlag    = "-h"
	PortFlag    = "-p"
	DialTimeout = 10 * time.Second
)

var (
	ErrUsage = errors.New("malformed arguments")
	ErrPort  = errors.New("invalid port number")
)

// Target is the remote end the shell talks to.
type Target struct {
	Host string
	Port uint16
}

func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.FormatUint(uint64(t.Port), 10))
}

func Usage(prog string) string {
	return fmt.Sprintf("Usage: %s %s <host-ip> %s <port>", prog, HostFlag, PortFlag)
}

// ParseArgs checks the full argument vector, program name included. The flags are
// literal tokens at fixed positions, not generic options.
func ParseArgs(args []string) (Target, error) {
	if len(args) != 5 {
		return Target{}, fmt.Errorf("%w: expected 4 arguments, got %d", ErrUsage, len(args)-1)
	}
	if args[1] != HostFlag {
		return Target{}, fmt.Errorf("%w: missing %s flag", ErrUsage, HostFlag)
	}
	if args[3] != PortFlag {
		return Target{}, fmt.Errorf("%w: missing %s flag", ErrUsage, PortFlag)
	}
	port, err := ParsePort(args[4])
	if err != nil {
		return Target{}, err
	}
	return Target{Host: args[2], Port: port}, nil
}

func ParsePort(s string) (uint16, error) {
	p, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrPort, s)
	}
	return uint16(p), nil
}

// Connect opens the single TCP connection of a session.
func Connect(ctx context.Context, t Target) (net.Conn, error) {
	d := net.Dialer{Timeout: DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.Address())
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Send writes payload as-is.
func Send(w io.Writer, payload []byte) error {
	n, err := w.Write(payload)
	if err != nil {
		return err
	}
	if n != len(payload) {
		return io.ErrShortWrite
	}
	return nil
}

// Receive performs exactly one read into buf. Bytes that do not fit, or that have not
// arrived yet, stay in the socket for a later call. An EOF that comes with data is
// reported on the next call.
func Receive(r io.Reader, buf []byte) (int, error) {
	n, err := r.Read(buf)
	if n > 0 && errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}

// SendInfo dials address, sends info once and returns the first chunk of the reply.
func SendInfo(address string, info string) (string, error) {
	conn, err := net.DialTimeout("tcp", address, DialTimeout)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if err = Send(conn, []byte(info)); err != nil {
		return "", err
	}
	buf := make([]byte, 4096)
	cnt, err := Receive(conn, buf)
	if err != nil {
		return "", err
	}
	return string(buf[:cnt]), nil
}
