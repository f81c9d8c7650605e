package vm

import (
	"fmt"
	"io"

	"github.com/loxlang/golox/internal/config"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// CallFrame is one invocation record: the executing Closure, an instruction
// pointer into its Chunk, and the base stack slot (slot 0 is the receiver or
// the callee itself; slots 1..arity are parameters; locals above that).
type CallFrame struct {
	closure *ObjClosure
	ip      int
	slots   int
}

// VM is the fetch-decode-execute machine: a fixed evaluation stack, a bounded
// call-frame stack, the all-objects list, the intern and globals tables, the
// open-upvalues list, and the garbage collector's bookkeeping.
type VM struct {
	stack [stackMax]Value
	sp    int

	frames     [framesMax]CallFrame
	frameCount int

	openUpvalues *ObjUpvalue

	globals *Table
	strings *Table

	objects        Object
	bytesAllocated int
	nextGC         int
	grayStack      []Object

	compilerRoot *compilerCtx
	initString   *ObjString

	stressGC bool
	logGC    GCLogger

	debugFlags config.DebugFlags

	stdout io.Writer
	stderr io.Writer
}

// New constructs a VM ready to Interpret source. debugFlags controls the
// optional tracing/GC-logging surface; stdout/stderr are where `print` and
// diagnostics go respectively.
func New(debugFlags config.DebugFlags, stdout, stderr io.Writer) *VM {
	vm := &VM{
		globals:    NewTable(),
		strings:    NewTable(),
		nextGC:     initialNextGC,
		stressGC:   debugFlags.StressGC,
		debugFlags: debugFlags,
		stdout:     stdout,
		stderr:     stderr,
	}
	if debugFlags.LogGC {
		vm.logGC = vm.defaultGCLogger
	}
	vm.initString = vm.internString("init")
	defineNatives(vm)
	return vm
}

// InterpretResult reports how an Interpret call concluded.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// Interpret compiles and runs source, reporting a compile or runtime error to
// vm.stderr if either occurs. No partial execution state is observable to a
// later Interpret call except for globals and interned strings already
// committed.
func (vm *VM) Interpret(source string) InterpretResult {
	fn, ok := Compile(vm, source, vm.stderr)
	if !ok {
		return InterpretCompileError
	}

	vm.push(ObjVal(fn))
	closure := &ObjClosure{Function: fn, Upvalues: make([]*ObjUpvalue, fn.UpvalueCount)}
	vm.push(ObjVal(closure))
	vm.allocate(closure, 32)
	vm.stack[0] = vm.pop()

	if err := vm.callValue(ObjVal(closure), 0); err != nil {
		vm.reportRuntimeError(err)
		vm.resetStack()
		return InterpretRuntimeError
	}

	if err := vm.run(); err != nil {
		vm.reportRuntimeError(err)
		vm.resetStack()
		return InterpretRuntimeError
	}
	return InterpretOK
}

func (vm *VM) resetStack() {
	vm.sp = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

func (vm *VM) push(v Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.sp-1-distance]
}

// runtimeError is a sentinel error type carrying the message a caught
// runtime fault should report; the backtrace is captured and printed by
// reportRuntimeError before the stack is reset.
type runtimeError struct {
	message string
}

func (e *runtimeError) Error() string { return e.message }

func (vm *VM) runtimeErrorf(format string, args ...any) error {
	return &runtimeError{message: fmt.Sprintf(format, args...)}
}

// reportRuntimeError prints the message followed by a frame-by-frame
// backtrace, top to bottom: "[line N] in NAME()" for a named function, or
// "[line N] in script" for the outermost frame.
func (vm *VM) reportRuntimeError(err error) {
	fmt.Fprintln(vm.stderr, err.Error())

	for i := vm.frameCount - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		fn := frame.closure.Function
		line := 0
		if frame.ip-1 >= 0 && frame.ip-1 < len(fn.Chunk.Lines) {
			line = fn.Chunk.Lines[frame.ip-1]
		}
		name := "script"
		if fn.Name != nil {
			name = fn.Name.Chars + "()"
		}
		fmt.Fprintf(vm.stderr, "[line %d] in %s\n", line, name)
	}
}

// markCompilerRoots marks every Function belonging to the in-flight compiler
// chain, so a collection triggered mid-compilation cannot reclaim a function
// (or the constants/strings it already holds) that isn't reachable any other
// way yet.
func (vm *VM) markCompilerRoots() {
	for cc := vm.compilerRoot; cc != nil; cc = cc.enclosing {
		vm.markObject(cc.function)
	}
}

func (vm *VM) defaultGCLogger(event gcEvent, bytesAllocated, other int) {
	switch event {
	case gcEventBegin:
		fmt.Fprintf(vm.stderr, "-- gc begin (allocated=%s, threshold=%s)\n",
			humanizeBytes(bytesAllocated), humanizeBytes(other))
	case gcEventEnd:
		fmt.Fprintf(vm.stderr, "-- gc end (allocated=%s, freed=%s)\n",
			humanizeBytes(bytesAllocated), humanizeBytes(other))
	}
}
