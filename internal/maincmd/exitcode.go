package maincmd

import (
	"github.com/mna/kscript/lang/compiler"
	"github.com/mna/kscript/lang/machine"
	"github.com/mna/mainer"
)

// ioError marks a failure reading or otherwise accessing a script file (or
// stdin, in the REPL), distinguished from compile/runtime failures so Main
// can report spec.md's distinct exit code for it.
type ioError struct {
	err error
}

func (e *ioError) Error() string { return e.err.Error() }

// Exit codes required by spec.md's external interface: 0 success, 65 compile
// error, 70 runtime error, 74 I/O error. Anything else falls back to the
// generic mainer.Failure.
const (
	exitCompileError = mainer.ExitCode(65)
	exitRuntimeError = mainer.ExitCode(70)
	exitIOError      = mainer.ExitCode(74)
)

// exitCodeFor classifies err, returned by a dispatched command, into the
// process exit code spec.md requires.
func exitCodeFor(err error) mainer.ExitCode {
	switch {
	case err == nil:
		return mainer.Success
	case isIOError(err):
		return exitIOError
	case isCompileError(err):
		return exitCompileError
	case isRuntimeError(err):
		return exitRuntimeError
	default:
		return mainer.Failure
	}
}

func isIOError(err error) bool {
	_, ok := err.(*ioError)
	return ok
}

func isCompileError(err error) bool {
	_, ok := err.(*compiler.CompileError)
	return ok
}

func isRuntimeError(err error) bool {
	_, ok := err.(*machine.RuntimeError)
	return ok
}
