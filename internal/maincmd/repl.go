package maincmd

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mattn/go-isatty"
	"github.com/mna/kscript/lang/compiler"
	"github.com/mna/kscript/lang/value"
	"github.com/mna/mainer"
)

// stdinFder is implemented by *os.File; the REPL uses it to decide whether
// stdin is a terminal (and therefore whether to print a prompt) or a pipe.
type stdinFder interface {
	Fd() uintptr
}

// REPL runs one line of KScript at a time, retaining globals across lines
// (they live in the one Machine created for the session) and resetting
// nothing but the per-line compile on a compile error; a runtime error
// unwinds the Machine's frames/stack (see machine.Machine.runtimeError) but
// the Machine and its globals remain usable for the next line.
func (c *Cmd) REPL(ctx context.Context, stdio mainer.Stdio, _ []string) error {
	interactive := false
	if f, ok := stdio.Stdin.(stdinFder); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	h, m := c.newMachine(ctx, stdio)
	scanner := bufio.NewScanner(stdio.Stdin)

	for {
		if interactive {
			fmt.Fprint(stdio.Stdout, "> ")
		}
		if !scanner.Scan() {
			if interactive {
				fmt.Fprintln(stdio.Stdout)
			}
			if err := scanner.Err(); err != nil {
				return &ioError{err}
			}
			return nil
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		fn, err := compiler.Compile(h, line)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			continue
		}
		closure := &value.Closure{Function: fn}
		h.Alloc(closure, 32)
		if err := m.Run(closure); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
		}
	}
}
