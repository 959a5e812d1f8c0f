// Package maincmd implements the kscript CLI's command dispatch: the REPL,
// file execution, and the tokenize/disasm debugging commands, plus the
// ambient concerns (flag/env/file configuration, logging) that wrap them.
package maincmd

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/kscript/lang/heap"
	"github.com/mna/kscript/lang/machine"
	"github.com/mna/mainer"
)

const binName = "kscript"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] [<command>] [<path>]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] [<command>] [<path>]
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and virtual machine for the KScript scripting language.

With no command and no path, starts an interactive REPL. With a bare
<path>, compiles and runs that file, equivalent to 'run <path>'.

The <command> can be one of:
       run <path>                Compile and run a script file.
       tokenize <path>           Print the scanner's token stream for a
                                 script file.
       disasm <path>             Print the compiled bytecode
                                 disassembly for a script file.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --config <file>           Load a kscript.yaml configuration file.
       --gc-log                  Log a line for every GC cycle.
       --max-steps <n>           Abort a script after n instructions
                                 (0, the default, means unlimited).
       --max-frames <n>          Override the call-frame depth limit
                                 (0 means the built-in default).

Flags may also be set via KSCRIPT_* environment variables (e.g.
KSCRIPT_GC_LOG=1), or via the keys of a kscript.yaml config file;
explicit flags take precedence over the environment, which takes
precedence over the config file.

More information on the %[1]s repository:
       https://github.com/mna/kscript
`, binName)
)

// Cmd is the CLI's root command, parsed by mainer.Parser and dispatched by
// Main. Its exported fields double as flag (via the `flag` struct tag) and
// kscript.yaml config keys (via loadConfigFile).
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	ConfigFile string `flag:"config" yaml:"-"`
	GCLog      bool   `flag:"gc-log" yaml:"gc_log"`
	MaxSteps   int    `flag:"max-steps" yaml:"max_steps"`
	MaxFrames  int    `flag:"max-frames" yaml:"max_frames"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) { c.args = args }
func (c *Cmd) SetFlags(flags map[string]bool) { c.flags = flags }

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if err := loadConfigFile(c); err != nil {
		return err
	}

	if len(c.args) == 0 {
		c.cmdFn = c.REPL
		return nil
	}

	commands := buildCmds(c)
	if fn, ok := commands[c.args[0]]; ok {
		cmdName := c.args[0]
		c.cmdFn = fn
		c.args = c.args[1:]
		if cmdName != "repl" && len(c.args) == 0 {
			return fmt.Errorf("%s: a script path is required", cmdName)
		}
		return nil
	}

	// A bare path with no recognized command name runs that file.
	c.cmdFn = c.Run
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   true,
		EnvPrefix: strings.ToUpper(binName) + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	return exitCodeFor(c.cmdFn(ctx, stdio, c.args))
}

// newMachine wires a fresh heap+VM pair configured per the flags/config/env
// Cmd resolved, including the GC debug log.
func (c *Cmd) newMachine(ctx context.Context, stdio mainer.Stdio) (*heap.Heap, *machine.Machine) {
	h := heap.New()
	if c.GCLog {
		h.OnCollect = func(s heap.Stats) {
			fmt.Fprintf(stdio.Stderr, "gc: freed=%d bytes_before=%d bytes_after=%d next=%d\n",
				s.ObjectsFreed, s.BytesBefore, s.BytesAfter, s.NextThreshold)
		}
	}
	m := machine.New(h)
	m.Stdout = stdio.Stdout
	m.Ctx = ctx
	m.MaxFrames = c.MaxFrames
	m.StepLimit = c.MaxSteps
	return h, m
}

// valid commands are exported Cmd methods taking (context.Context,
// mainer.Stdio, []string) and returning an error, dispatched by lowercased
// name — the same reflective wiring the teacher's maincmd uses.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
