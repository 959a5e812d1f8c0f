package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/kscript/lang/compiler"
	"github.com/mna/kscript/lang/scanner"
	"github.com/mna/kscript/lang/token"
	"github.com/mna/mainer"
)

// Tokenize prints the scanner's token stream for args[0], one token per
// line. Not part of spec.md's required surface, but kept as a debugging
// collaborator over lang/scanner, the same role the teacher's equivalent
// command plays over its own scanner.
func (c *Cmd) Tokenize(_ context.Context, stdio mainer.Stdio, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return &ioError{err}
	}

	s := scanner.New(string(src))
	for {
		tok := s.Scan()
		fmt.Fprintf(stdio.Stdout, "%4d %-16s %q\n", tok.Line, tok.Kind, tok.Lexeme)
		if tok.Kind == token.EOF || tok.Kind == token.ILLEGAL {
			if tok.Kind == token.ILLEGAL {
				msg := fmt.Sprintf("tokenize error: %s", tok.Lexeme)
				fmt.Fprintln(stdio.Stderr, msg)
				return &compiler.CompileError{Errors: []string{msg}}
			}
			return nil
		}
	}
}
