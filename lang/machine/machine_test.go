package machine_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mna/kscript/lang/compiler"
	"github.com/mna/kscript/lang/heap"
	"github.com/mna/kscript/lang/machine"
	"github.com/mna/kscript/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run compiles and executes src, returning everything written to 'print'.
func run(t *testing.T, src string) (string, error) {
	t.Helper()
	h := heap.New()
	fn, err := compiler.Compile(h, src)
	require.NoError(t, err)

	m := machine.New(h)
	var out bytes.Buffer
	m.Stdout = &out

	closure := &value.Closure{Function: fn}
	h.Alloc(closure, 32)
	runErr := m.Run(closure)
	return out.String(), runErr
}

func TestArithmeticPrecedence(t *testing.T) {
	out, err := run(t, `print 10+10+20*50;`)
	require.NoError(t, err)
	assert.Equal(t, "1020\n", out)
}

func TestNestedClosuresCaptureOuterLocal(t *testing.T) {
	out, err := run(t, `
fun outer() {
  var x = "value";
  fun middle() {
    fun inner() {
      print x;
    }
    inner();
  }
  middle();
}
outer();
`)
	require.NoError(t, err)
	assert.Equal(t, "value\n", out)
}

func TestClosureCounterPattern(t *testing.T) {
	out, err := run(t, `
fun makeCounter() {
  var count = 0;
  fun increment() {
    count = count + 1;
    print count;
  }
  return increment;
}
var counter = makeCounter();
counter();
counter();
counter();
`)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestRecursiveFibonacci(t *testing.T) {
	out, err := run(t, `
fun fib(n) {
  if (n < 2) return n;
  return fib(n - 1) + fib(n - 2);
}
print fib(10);
`)
	require.NoError(t, err)
	assert.Equal(t, "55\n", out)
}

func TestClassInheritanceAndSuper(t *testing.T) {
	out, err := run(t, `
class Parent {
  greet() {
    print "Hello from Parent";
  }
}
class Child extend Parent {
  greet() {
    super.greet();
    print "Hello from Child";
  }
}
var c = Child();
c.greet();
print "done";
`)
	require.NoError(t, err)
	assert.Equal(t, "Hello from Parent\nHello from Child\ndone\n", out)
}

func TestLinkedListOfFiveNodes(t *testing.T) {
	out, err := run(t, `
class Node {
  init(value) {
    this.value = value;
    this.next = nil;
  }
}

var head = Node(1);
var cur = head;
for (var i = 2; i <= 5; i = i + 1) {
  cur.next = Node(i);
  cur = cur.next;
}

cur = head;
while (cur != nil) {
  print cur.value;
  cur = cur.next;
}
`)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n4\n5\n", out)
}

func TestUninitializedVarIsNil(t *testing.T) {
	out, err := run(t, `var a; print a;`)
	require.NoError(t, err)
	assert.Equal(t, "nil\n", out)
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, err := run(t, `print nope;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined variable 'nope'")
}

func TestStringPlusNumberIsRuntimeError(t *testing.T) {
	_, err := run(t, `print "x" + 1;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operands must be")
}

func TestRuntimeErrorIncludesCallStackTrace(t *testing.T) {
	_, err := run(t, `
fun a() { b(); }
fun b() { c(); }
fun c() { print nope; }
a();
`)
	require.Error(t, err)
	lines := strings.Split(err.Error(), "\n")
	require.True(t, len(lines) >= 4)
	assert.Contains(t, lines[1], "in c()")
	assert.Contains(t, lines[2], "in b()")
	assert.Contains(t, lines[3], "in a()")
}

func TestStressGCDuringMultiUpvalueClosureCapture(t *testing.T) {
	h := heap.New()
	h.StressGC = true
	fn, err := compiler.Compile(h, `
fun outer() {
  var a = 1;
  var b = 2;
  fun middle() {
    var c = 3;
    var d = 4;
    fun inner() {
      return a + c + b + d;
    }
    return inner();
  }
  return middle();
}
print outer();
`)
	require.NoError(t, err)

	m := machine.New(h)
	var out bytes.Buffer
	m.Stdout = &out
	closure := &value.Closure{Function: fn}
	h.Alloc(closure, 32)
	require.NoError(t, m.Run(closure))
	assert.Equal(t, "10\n", out.String())
}

func TestStressGCDuringHeavyAllocation(t *testing.T) {
	h := heap.New()
	h.StressGC = true
	fn, err := compiler.Compile(h, `
class Box {
  init(v) { this.v = v; }
}
var last = nil;
for (var i = 0; i < 200; i = i + 1) {
  last = Box(i);
}
print last.v;
`)
	require.NoError(t, err)

	m := machine.New(h)
	var out bytes.Buffer
	m.Stdout = &out
	closure := &value.Closure{Function: fn}
	h.Alloc(closure, 32)
	require.NoError(t, m.Run(closure))
	assert.Equal(t, "199\n", out.String())
}
