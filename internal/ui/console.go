package ui

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/Dicklesworthstone/diskpulse/internal/model"
)

const clearScreen = "\033[2J\033[H"

// Console prints every report to a writer, clearing the screen first when the
// writer is a terminal.
type Console struct {
	w     io.Writer
	topN  int
	fd    int
	isTTY bool
}

func NewConsole(w io.Writer, topN int) *Console {
	c := &Console{w: w, topN: topN, fd: -1}
	if f, ok := w.(*os.File); ok {
		c.fd = int(f.Fd())
		c.isTTY = term.IsTerminal(c.fd)
	}
	return c
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool { return term.IsTerminal(int(f.Fd())) }

func (c *Console) Emit(_ context.Context, r model.Report) error {
	width := 0
	if c.isTTY {
		if w, _, err := term.GetSize(c.fd); err == nil {
			width = w
		}
		if _, err := io.WriteString(c.w, clearScreen); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(c.w, Render(r, c.topN, width))
	return err
}

func (c *Console) Close() error { return nil }
