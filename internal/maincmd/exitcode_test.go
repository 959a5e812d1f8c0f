package maincmd

import (
	"errors"
	"testing"

	"github.com/mna/kscript/lang/compiler"
	"github.com/mna/kscript/lang/machine"
	"github.com/mna/mainer"
	"github.com/stretchr/testify/assert"
)

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, mainer.Success, exitCodeFor(nil))
	assert.Equal(t, exitIOError, exitCodeFor(&ioError{errors.New("boom")}))
	assert.Equal(t, exitCompileError, exitCodeFor(&compiler.CompileError{Errors: []string{"bad"}}))
	assert.Equal(t, exitRuntimeError, exitCodeFor(&machine.RuntimeError{Message: "bad"}))
	assert.Equal(t, mainer.Failure, exitCodeFor(errors.New("unclassified")))
}
