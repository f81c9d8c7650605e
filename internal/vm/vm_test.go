package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loxlang/golox/internal/config"
)

func run(t *testing.T, source string) (stdout, stderr string, result InterpretResult) {
	t.Helper()
	var out, errOut bytes.Buffer
	m := New(config.DebugFlags{}, &out, &errOut)
	result = m.Interpret(source)
	return out.String(), errOut.String(), result
}

func TestInterpretArithmeticAndPrint(t *testing.T) {
	out, _, result := run(t, `print 1 + 2 * 3;`)
	require.Equal(t, InterpretOK, result)
	require.Equal(t, "7\n", out)
}

func TestInterpretStringConcatenation(t *testing.T) {
	out, _, result := run(t, `print "foo" + "bar";`)
	require.Equal(t, InterpretOK, result)
	require.Equal(t, "foobar\n", out)
}

func TestInterpretGlobalsAndScope(t *testing.T) {
	out, _, result := run(t, `
		var a = "global";
		{
			var a = "block";
			print a;
		}
		print a;
	`)
	require.Equal(t, InterpretOK, result)
	require.Equal(t, "block\nglobal\n", out)
}

func TestInterpretControlFlow(t *testing.T) {
	out, _, result := run(t, `
		var i = 0;
		var sum = 0;
		while (i < 5) {
			sum = sum + i;
			i = i + 1;
		}
		print sum;
	`)
	require.Equal(t, InterpretOK, result)
	require.Equal(t, "10\n", out)
}

func TestInterpretForLoop(t *testing.T) {
	out, _, result := run(t, `
		var total = 0;
		for (var i = 0; i < 4; i = i + 1) {
			total = total + i;
		}
		print total;
	`)
	require.Equal(t, InterpretOK, result)
	require.Equal(t, "6\n", out)
}

func TestInterpretFunctionsAndClosures(t *testing.T) {
	out, _, result := run(t, `
		fun makeCounter() {
			var count = 0;
			fun increment() {
				count = count + 1;
				return count;
			}
			return increment;
		}
		var counter = makeCounter();
		print counter();
		print counter();
		print counter();
	`)
	require.Equal(t, InterpretOK, result)
	require.Equal(t, "1\n2\n3\n", out)
}

func TestInterpretClassesAndMethods(t *testing.T) {
	out, _, result := run(t, `
		class Greeter {
			init(name) {
				this.name = name;
			}
			greet() {
				return "hello " + this.name;
			}
		}
		var g = Greeter("lox");
		print g.greet();
	`)
	require.Equal(t, InterpretOK, result)
	require.Equal(t, "hello lox\n", out)
}

func TestInterpretInheritanceAndSuper(t *testing.T) {
	out, _, result := run(t, `
		class Animal {
			speak() {
				return "...";
			}
		}
		class Dog < Animal {
			speak() {
				return "woof (" + super.speak() + ")";
			}
		}
		print Dog().speak();
	`)
	require.Equal(t, InterpretOK, result)
	require.Equal(t, "woof (...)\n", out)
}

func TestInterpretCompileErrorSyntax(t *testing.T) {
	_, errOut, result := run(t, `print ;`)
	require.Equal(t, InterpretCompileError, result)
	require.Contains(t, errOut, "Error")
}

func TestInterpretUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, errOut, result := run(t, `print undefinedThing;`)
	require.Equal(t, InterpretRuntimeError, result)
	require.Contains(t, errOut, "Undefined variable 'undefinedThing'.")
	require.Contains(t, errOut, "[line 1] in script")
}

func TestInterpretTypeErrorOnArithmetic(t *testing.T) {
	_, errOut, result := run(t, `print "a" - 1;`)
	require.Equal(t, InterpretRuntimeError, result)
	require.Contains(t, errOut, "Operands must be numbers.")
}

func TestInterpretCallingNonCallable(t *testing.T) {
	_, errOut, result := run(t, `var x = 1; x();`)
	require.Equal(t, InterpretRuntimeError, result)
	require.Contains(t, errOut, "Can only call functions and classes.")
}

func TestInterpretArityMismatch(t *testing.T) {
	_, errOut, result := run(t, `
		fun f(a, b) { return a + b; }
		f(1);
	`)
	require.Equal(t, InterpretRuntimeError, result)
	require.Contains(t, errOut, "Expected 2 arguments but got 1.")
}

func TestInterpretNativeClock(t *testing.T) {
	out, _, result := run(t, `print clock() >= 0;`)
	require.Equal(t, InterpretOK, result)
	require.Equal(t, "true\n", out)
}

func TestInterpretRecoversAfterRuntimeError(t *testing.T) {
	var out, errOut bytes.Buffer
	m := New(config.DebugFlags{}, &out, &errOut)

	result := m.Interpret(`print nope;`)
	require.Equal(t, InterpretRuntimeError, result)

	out.Reset()
	result = m.Interpret(`print 1 + 1;`)
	require.Equal(t, InterpretOK, result)
	require.Equal(t, "2\n", out.String())
}

func TestInterpretStressGCKeepsReachableState(t *testing.T) {
	var out, errOut bytes.Buffer
	m := New(config.DebugFlags{StressGC: true}, &out, &errOut)

	result := m.Interpret(`
		class Box {
			init(v) { this.v = v; }
			get() { return this.v; }
		}
		fun make(n) {
			var b = Box(n);
			return b;
		}
		var boxes = make(1);
		print boxes.get();
	`)
	require.Equal(t, InterpretOK, result)
	require.True(t, strings.HasSuffix(out.String(), "1\n"))
}
