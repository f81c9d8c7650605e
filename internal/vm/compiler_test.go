package vm

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func compileSource(t *testing.T, source string) (ok bool, errOut string) {
	t.Helper()
	m := newTestVM()
	var buf bytes.Buffer
	_, ok = Compile(m, source, &buf)
	return ok, buf.String()
}

func TestCompileValidProgram(t *testing.T) {
	ok, errOut := compileSource(t, `print 1 + 1;`)
	require.True(t, ok, errOut)
}

func TestCompileSyntaxErrorReportsLineAndLexeme(t *testing.T) {
	ok, errOut := compileSource(t, "var;\n")
	require.False(t, ok)
	require.Contains(t, errOut, "[line 1] Error at ';'")
}

func TestCompileTooManyConstants(t *testing.T) {
	var b strings.Builder
	b.WriteString("print 0")
	for i := 1; i <= maxConstants; i++ {
		fmt.Fprintf(&b, "+%d", i)
	}
	b.WriteString(";\n")

	ok, errOut := compileSource(t, b.String())
	require.False(t, ok)
	require.Contains(t, errOut, "Too many constants in one chunk.")
}

func TestCompileTooManyLocals(t *testing.T) {
	var b strings.Builder
	b.WriteString("{\n")
	for i := 0; i <= maxLocals; i++ {
		fmt.Fprintf(&b, "var v%d = %d;\n", i, i)
	}
	b.WriteString("}\n")

	ok, errOut := compileSource(t, b.String())
	require.False(t, ok)
	require.Contains(t, errOut, "Too many local variables in function.")
}

// TestCompileTooManyUpvalues forces `inner`'s own upvalue list (not any
// function's local list, which has a separate 256 limit) past 256 entries:
// it splits the 257 captured names across two enclosing scopes, `outer`
// (captured transitively through `mid`'s upvalue chain) and `mid` (captured
// directly as locals), so neither scope's own local/upvalue count exceeds
// its individual limit — only `inner`'s combined upvalue count does.
func TestCompileTooManyUpvalues(t *testing.T) {
	const outerCount = 200
	const midCount = 57 // outerCount + midCount = 257

	var b strings.Builder
	b.WriteString("fun outer() {\n")
	for i := 0; i < outerCount; i++ {
		fmt.Fprintf(&b, "var o%d = %d;\n", i, i)
	}
	b.WriteString("fun mid() {\n")
	for i := 0; i < midCount; i++ {
		fmt.Fprintf(&b, "var m%d = %d;\n", i, i)
	}
	b.WriteString("fun inner() {\nreturn o0")
	for i := 1; i < outerCount; i++ {
		fmt.Fprintf(&b, "+o%d", i)
	}
	for i := 0; i < midCount; i++ {
		fmt.Fprintf(&b, "+m%d", i)
	}
	b.WriteString(";\n}\nreturn inner;\n}\nreturn mid();\n}\n")

	ok, errOut := compileSource(t, b.String())
	require.False(t, ok)
	require.Contains(t, errOut, "Too many closure variables in function.")
}

func TestCompileTooManyParameters(t *testing.T) {
	var b strings.Builder
	b.WriteString("fun f(")
	for i := 0; i <= maxArgs; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "p%d", i)
	}
	b.WriteString(") {}\n")

	ok, errOut := compileSource(t, b.String())
	require.False(t, ok)
	require.Contains(t, errOut, "Can't have more than 255 parameters.")
}

func TestCompileTooManyArguments(t *testing.T) {
	var b strings.Builder
	b.WriteString("fun f() {}\nf(")
	for i := 0; i <= maxArgs; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("0")
	}
	b.WriteString(");\n")

	ok, errOut := compileSource(t, b.String())
	require.False(t, ok)
	require.Contains(t, errOut, "Can't have more than 255 arguments.")
}

func TestCompileReturnFromTopLevel(t *testing.T) {
	ok, errOut := compileSource(t, `return 1;`)
	require.False(t, ok)
	require.Contains(t, errOut, "Can't return from top-level code.")
}

func TestCompileReturnValueFromInitializer(t *testing.T) {
	ok, errOut := compileSource(t, `
		class A {
			init() { return 1; }
		}
	`)
	require.False(t, ok)
	require.Contains(t, errOut, "Can't return a value from an initializer.")
}

func TestCompileThisOutsideClass(t *testing.T) {
	ok, errOut := compileSource(t, `print this;`)
	require.False(t, ok)
	require.Contains(t, errOut, "Can't use 'this' outside of a class.")
}

func TestCompileSuperOutsideClass(t *testing.T) {
	ok, errOut := compileSource(t, `print super.x;`)
	require.False(t, ok)
	require.Contains(t, errOut, "Can't use 'super' outside of a class.")
}

func TestCompileSuperWithoutSuperclass(t *testing.T) {
	ok, errOut := compileSource(t, `
		class A {
			f() { return super.f(); }
		}
	`)
	require.False(t, ok)
	require.Contains(t, errOut, "Can't use 'super' in a class with no superclass.")
}

func TestCompileClassCannotInheritFromItself(t *testing.T) {
	ok, errOut := compileSource(t, `class A < A {}`)
	require.False(t, ok)
	require.Contains(t, errOut, "A class can't inherit from itself.")
}

func TestCompileDuplicateLocalInSameScope(t *testing.T) {
	ok, errOut := compileSource(t, `
		{
			var a = 1;
			var a = 2;
		}
	`)
	require.False(t, ok)
	require.Contains(t, errOut, "Already a variable with this name in this scope.")
}

func TestCompileReadLocalInOwnInitializer(t *testing.T) {
	ok, errOut := compileSource(t, `
		{
			var a = a;
		}
	`)
	require.False(t, ok)
	require.Contains(t, errOut, "Can't read local variable in its own initializer.")
}

func TestCompileSynchronizeAfterErrorReportsMultipleErrors(t *testing.T) {
	ok, errOut := compileSource(t, `
		var;
		var;
	`)
	require.False(t, ok)
	require.Equal(t, 2, strings.Count(errOut, "[line"))
}
