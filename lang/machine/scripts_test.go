package machine_test

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/kscript/internal/filetest"
	"github.com/mna/kscript/lang/compiler"
	"github.com/mna/kscript/lang/heap"
	"github.com/mna/kscript/lang/machine"
	"github.com/mna/kscript/lang/value"
)

var updateScriptTests = flag.Bool("test.update-script-tests", false, "update the testdata/*.want golden files")

// TestScripts runs every testdata/*.ks file to completion and diffs its
// printed output against the matching testdata/*.ks.want golden file.
func TestScripts(t *testing.T) {
	const dir = "testdata"
	for _, fi := range filetest.SourceFiles(t, dir, ".ks") {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			srcb, err := os.ReadFile(filepath.Join(dir, fi.Name()))
			if err != nil {
				t.Fatal(err)
			}
			src := string(srcb)

			h := heap.New()
			fn, err := compiler.Compile(h, src)
			if err != nil {
				t.Fatalf("compile error: %v", err)
			}

			m := machine.New(h)
			var out bytes.Buffer
			m.Stdout = &out

			closure := &value.Closure{Function: fn}
			h.Alloc(closure, 32)
			if err := m.Run(closure); err != nil {
				t.Fatalf("runtime error: %v", err)
			}

			filetest.DiffOutput(t, fi, out.String(), dir, updateScriptTests)
		})
	}
}
