package vm

import (
	"fmt"
	"strings"
)

// Disassemble renders every instruction in chunk under a header naming it,
// used by -disassemble to print each compiled function's bytecode as soon
// as the compiler finishes it.
func Disassemble(chunk *Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < chunk.Len(); {
		line, next := disassembleInstructionAt(chunk, offset)
		b.WriteString(line)
		offset = next
	}
	return b.String()
}

// DisassembleInstruction renders the single instruction at offset, used by
// -trace to print the instruction about to execute.
func DisassembleInstruction(chunk *Chunk, offset int) string {
	line, _ := disassembleInstructionAt(chunk, offset)
	return line
}

func disassembleInstructionAt(chunk *Chunk, offset int) (string, int) {
	var b strings.Builder
	fmt.Fprintf(&b, "%04d ", offset)
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		fmt.Fprint(&b, "   | ")
	} else {
		fmt.Fprintf(&b, "%4d ", chunk.Lines[offset])
	}

	op := Opcode(chunk.Code[offset])
	switch op {
	case OP_NIL, OP_TRUE, OP_FALSE, OP_POP, OP_EQUAL, OP_GREATER, OP_LESS,
		OP_ADD, OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE, OP_NOT, OP_NEGATE,
		OP_PRINT, OP_CLOSE_UPVALUE, OP_RETURN, OP_INHERIT:
		fmt.Fprintf(&b, "%s\n", op)
		return b.String(), offset + 1

	case OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_UPVALUE, OP_SET_UPVALUE, OP_CALL:
		slot := chunk.Code[offset+1]
		fmt.Fprintf(&b, "%-16s %4d\n", op, slot)
		return b.String(), offset + 2

	case OP_CONSTANT, OP_GET_GLOBAL, OP_DEFINE_GLOBAL, OP_SET_GLOBAL,
		OP_GET_PROPERTY, OP_SET_PROPERTY, OP_GET_SUPER, OP_CLASS, OP_METHOD:
		idx := chunk.Code[offset+1]
		fmt.Fprintf(&b, "%-16s %4d '%s'\n", op, idx, chunk.Constants[idx])
		return b.String(), offset + 2

	case OP_INVOKE, OP_SUPER_INVOKE:
		idx := chunk.Code[offset+1]
		argCount := chunk.Code[offset+2]
		fmt.Fprintf(&b, "%-16s (%d args) %4d '%s'\n", op, argCount, idx, chunk.Constants[idx])
		return b.String(), offset + 3

	case OP_JUMP, OP_JUMP_IF_FALSE:
		jump := uint16(chunk.Code[offset+1])<<8 | uint16(chunk.Code[offset+2])
		fmt.Fprintf(&b, "%-16s %4d -> %d\n", op, offset, offset+3+int(jump))
		return b.String(), offset + 3

	case OP_LOOP:
		jump := uint16(chunk.Code[offset+1])<<8 | uint16(chunk.Code[offset+2])
		fmt.Fprintf(&b, "%-16s %4d -> %d\n", op, offset, offset+3-int(jump))
		return b.String(), offset + 3

	case OP_CLOSURE:
		constIdx := chunk.Code[offset+1]
		fmt.Fprintf(&b, "%-16s %4d '%s'\n", op, constIdx, chunk.Constants[constIdx])
		next := offset + 2
		fn := chunk.Constants[constIdx].AsFunction()
		for i := 0; i < fn.UpvalueCount; i++ {
			isLocal := chunk.Code[next]
			index := chunk.Code[next+1]
			kind := "upvalue"
			if isLocal != 0 {
				kind = "local"
			}
			fmt.Fprintf(&b, "%04d      |                     %s %d\n", next, kind, index)
			next += 2
		}
		return b.String(), next

	default:
		fmt.Fprintf(&b, "Unknown opcode %d\n", op)
		return b.String(), offset + 1
	}
}

// traceStack renders the live evaluation-stack contents, bottom to top, the
// way -trace prints them before each instruction.
func traceStack(vm *VM) string {
	var b strings.Builder
	b.WriteString("          ")
	for i := 0; i < vm.sp; i++ {
		fmt.Fprintf(&b, "[ %s ]", vm.stack[i].String())
	}
	b.WriteString("\n")
	return b.String()
}
