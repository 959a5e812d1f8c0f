package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/kscript/lang/compiler"
	"github.com/mna/kscript/lang/value"
	"github.com/mna/mainer"
)

// Run compiles and executes the script named by args[0].
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return &ioError{err}
	}

	h, m := c.newMachine(ctx, stdio)
	fn, err := compiler.Compile(h, string(src))
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	closure := &value.Closure{Function: fn}
	h.Alloc(closure, 32)
	if err := m.Run(closure); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	return nil
}
