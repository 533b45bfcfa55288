package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/3l-d1abl0/tempDB-client/common"
	"github.com/3l-d1abl0/tempDB-client/shell"
)

// Interactive TCP client: tempdb-cli -h <host-ip> -p <port>
func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	logger := common.NewLogger(stderr, "info", false)

	prog := "tempdb-cli"
	if len(args) > 0 {
		prog = args[0]
	}
	target, err := common.ParseArgs(args)
	if errors.Is(err, common.ErrUsage) {
		fmt.Fprintln(stderr, common.Usage(prog))
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err != nil {
		logger.WithError(err).Error("Invalid port number")
		return 1
	}

	in, err := shell.OpenTerminal(stdin, stdout, stderr)
	if err != nil {
		logger.WithError(err).Error("could not open terminal")
		return 1
	}
	defer in.Close()

	sess := shell.New(target, in, stdout, shell.WithLogger(logger))
	if err = sess.Connect(context.Background()); err != nil {
		logger.WithError(err).Error("connection failed")
		return 1
	}
	defer sess.Close()

	if err = sess.Run(); err != nil {
		var se *shell.Error
		if errors.As(err, &se) && se.Class == shell.ClassPeerClosed {
			fmt.Fprintln(stderr, "Server closed the connection")
		} else {
			logger.WithError(err).Error("session aborted")
		}
		return 1
	}
	fmt.Fprintln(stdout, "Disconnecting from server...")
	return 0
}
