package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/kscript/lang/compiler"
	"github.com/mna/kscript/lang/heap"
	"github.com/mna/kscript/lang/value"
	"github.com/mna/mainer"
)

// Disasm compiles args[0] and prints a human-readable disassembly of its
// bytecode, recursing into every nested function's own chunk.
func (c *Cmd) Disasm(_ context.Context, stdio mainer.Stdio, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return &ioError{err}
	}

	h := heap.New()
	fn, err := compiler.Compile(h, string(src))
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	disassembleRecursive(stdio, fn)
	return nil
}

func disassembleRecursive(stdio mainer.Stdio, fn *value.Function) {
	name := fn.Name
	if name == "" {
		name = "<script>"
	}
	fmt.Fprint(stdio.Stdout, fn.Chunk.Disassemble(name))
	for _, k := range fn.Chunk.Constants {
		if nested, ok := k.(*value.Function); ok {
			disassembleRecursive(stdio, nested)
		}
	}
}
