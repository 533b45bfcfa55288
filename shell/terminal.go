package shell

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/chzyer/readline"

	"github.com/3l-d1abl0/tempDB-client/common"
)

// LineReader shows a prompt and returns one line of input. The line keeps its trailing
// newline, except for a final unterminated line. io.EOF is returned only when nothing
// was read.
type LineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

type flusher interface {
	Flush() error
}

type bufferedReader struct {
	r   *bufio.Reader
	out io.Writer
}

// NewLineReader reads lines from in byte for byte, writing prompts to out.
func NewLineReader(in io.Reader, out io.Writer) LineReader {
	return &bufferedReader{r: bufio.NewReader(in), out: out}
}

func (b *bufferedReader) ReadLine(prompt string) (string, error) {
	if _, err := io.WriteString(b.out, prompt); err != nil {
		return "", err
	}
	if f, ok := b.out.(flusher); ok {
		if err := f.Flush(); err != nil {
			return "", err
		}
	}
	line, err := b.r.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		return line, nil
	}
	return line, err
}

func (b *bufferedReader) Close() error { return nil }

type editorReader struct {
	rl *readline.Instance
}

func (e *editorReader) ReadLine(prompt string) (string, error) {
	e.rl.SetPrompt(prompt)
	line, err := e.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	return line + "\n", nil
}

func (e *editorReader) Close() error { return e.rl.Close() }

// OpenTerminal picks the line editor when stdin is an interactive terminal and plain
// buffered reads otherwise.
func OpenTerminal(stdin io.Reader, stdout, stderr io.Writer) (LineReader, error) {
	f, ok := stdin.(*os.File)
	if !ok || !readline.IsTerminal(int(f.Fd())) {
		return NewLineReader(stdin, stdout), nil
	}
	rl, err := readline.NewEx(&readline.Config{
		Stdin:           f,
		Stdout:          stdout,
		Stderr:          stderr,
		HistoryLimit:    500,
		InterruptPrompt: "^C",
		EOFPrompt:       common.ExitCommand,
	})
	if err != nil {
		return nil, err
	}
	return &editorReader{rl: rl}, nil
}
