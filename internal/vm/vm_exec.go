package vm

import "fmt"

// run is the fetch-decode-execute loop: decode one byte, switch on opcode,
// operate on the stack/frame, until a RETURN drops the frame count to zero
// or a runtime error is raised.
func (vm *VM) run() error {
	frame := &vm.frames[vm.frameCount-1]

	for {
		if vm.debugFlags.TraceExecution {
			fmt.Fprint(vm.stderr, traceStack(vm))
			fmt.Fprint(vm.stderr, DisassembleInstruction(frame.closure.Function.Chunk, frame.ip))
		}

		switch instruction := Opcode(vm.readByte(frame)); instruction {
		case OP_CONSTANT:
			vm.push(vm.readConstant(frame))

		case OP_NIL:
			vm.push(NilVal())
		case OP_TRUE:
			vm.push(BoolVal(true))
		case OP_FALSE:
			vm.push(BoolVal(false))
		case OP_POP:
			vm.pop()

		case OP_GET_LOCAL:
			slot := vm.readByte(frame)
			vm.push(vm.stack[frame.slots+int(slot)])
		case OP_SET_LOCAL:
			slot := vm.readByte(frame)
			vm.stack[frame.slots+int(slot)] = vm.peek(0)

		case OP_GET_GLOBAL:
			name := vm.readConstant(frame).AsString()
			value, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeErrorf("Undefined variable '%s'.", name.Chars)
			}
			vm.push(value)
		case OP_DEFINE_GLOBAL:
			name := vm.readConstant(frame).AsString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case OP_SET_GLOBAL:
			name := vm.readConstant(frame).AsString()
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeErrorf("Undefined variable '%s'.", name.Chars)
			}

		case OP_GET_UPVALUE:
			slot := vm.readByte(frame)
			uv := frame.closure.Upvalues[slot]
			if uv.isOpen() {
				vm.push(vm.stack[uv.Location])
			} else {
				vm.push(uv.Closed)
			}
		case OP_SET_UPVALUE:
			slot := vm.readByte(frame)
			uv := frame.closure.Upvalues[slot]
			if uv.isOpen() {
				vm.stack[uv.Location] = vm.peek(0)
			} else {
				uv.Closed = vm.peek(0)
			}

		case OP_GET_PROPERTY:
			if !vm.peek(0).IsInstance() {
				return vm.runtimeErrorf("Only instances have properties.")
			}
			instance := vm.peek(0).AsInstance()
			name := vm.readConstant(frame).AsString()
			if value, ok := instance.Fields[name.Chars]; ok {
				vm.pop()
				vm.push(value)
			} else if err := vm.bindMethod(instance.Class, name); err != nil {
				return err
			}
		case OP_SET_PROPERTY:
			if !vm.peek(1).IsInstance() {
				return vm.runtimeErrorf("Only instances have fields.")
			}
			instance := vm.peek(1).AsInstance()
			name := vm.readConstant(frame).AsString()
			instance.Fields[name.Chars] = vm.peek(0)
			value := vm.pop()
			vm.pop()
			vm.push(value)
		case OP_GET_SUPER:
			name := vm.readConstant(frame).AsString()
			superclass := vm.pop().AsClass()
			if err := vm.bindMethod(superclass, name); err != nil {
				return err
			}

		case OP_EQUAL:
			b, a := vm.pop(), vm.pop()
			vm.push(BoolVal(a.Equals(b)))
		case OP_GREATER:
			if err := vm.binaryNumberOp(func(a, b float64) Value { return BoolVal(a > b) }); err != nil {
				return err
			}
		case OP_LESS:
			if err := vm.binaryNumberOp(func(a, b float64) Value { return BoolVal(a < b) }); err != nil {
				return err
			}

		case OP_ADD:
			if err := vm.add(); err != nil {
				return err
			}
		case OP_SUBTRACT:
			if err := vm.binaryNumberOp(func(a, b float64) Value { return NumberVal(a - b) }); err != nil {
				return err
			}
		case OP_MULTIPLY:
			if err := vm.binaryNumberOp(func(a, b float64) Value { return NumberVal(a * b) }); err != nil {
				return err
			}
		case OP_DIVIDE:
			if err := vm.binaryNumberOp(func(a, b float64) Value { return NumberVal(a / b) }); err != nil {
				return err
			}
		case OP_NOT:
			vm.push(BoolVal(vm.pop().IsFalsey()))
		case OP_NEGATE:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeErrorf("Operand must be a number.")
			}
			vm.push(NumberVal(-vm.pop().Number))

		case OP_PRINT:
			fmt.Fprintln(vm.stdout, vm.pop().String())

		case OP_JUMP:
			offset := vm.readShort(frame)
			frame.ip += int(offset)
		case OP_JUMP_IF_FALSE:
			offset := vm.readShort(frame)
			if vm.peek(0).IsFalsey() {
				frame.ip += int(offset)
			}
		case OP_LOOP:
			offset := vm.readShort(frame)
			frame.ip -= int(offset)

		case OP_CALL:
			argCount := int(vm.readByte(frame))
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]
		case OP_INVOKE:
			name := vm.readConstant(frame).AsString()
			argCount := int(vm.readByte(frame))
			if err := vm.invoke(name, argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]
		case OP_SUPER_INVOKE:
			name := vm.readConstant(frame).AsString()
			argCount := int(vm.readByte(frame))
			superclass := vm.pop().AsClass()
			if err := vm.invokeFromClass(superclass, name, argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case OP_CLOSURE:
			fn := vm.readConstant(frame).AsFunction()
			closure := &ObjClosure{Function: fn, Upvalues: make([]*ObjUpvalue, fn.UpvalueCount)}
			vm.push(ObjVal(closure))
			vm.allocate(closure, 32)
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(frame)
				index := vm.readByte(frame)
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.slots + int(index))
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
		case OP_CLOSE_UPVALUE:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()
		case OP_RETURN:
			result := vm.pop()
			vm.closeUpvalues(frame.slots)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.sp = frame.slots
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]

		case OP_CLASS:
			name := vm.readConstant(frame).AsString()
			class := &ObjClass{Name: name, Methods: make(map[string]*ObjClosure)}
			vm.push(ObjVal(class))
			vm.allocate(class, 40)
		case OP_INHERIT:
			superVal := vm.peek(1)
			if !superVal.IsClass() {
				return vm.runtimeErrorf("Superclass must be a class.")
			}
			subclass := vm.peek(0).AsClass()
			for name, method := range superVal.AsClass().Methods {
				subclass.Methods[name] = method
			}
			vm.pop() // the temporary subclass reference; superclass remains as the "super" local
		case OP_METHOD:
			name := vm.readConstant(frame).AsString()
			method := vm.peek(0).AsClosure()
			class := vm.peek(1).AsClass()
			class.Methods[name.Chars] = method
			vm.pop()

		default:
			return vm.runtimeErrorf("Unknown opcode %d.", instruction)
		}
	}
}

func (vm *VM) readByte(frame *CallFrame) byte {
	b := frame.closure.Function.Chunk.Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readShort(frame *CallFrame) uint16 {
	hi := vm.readByte(frame)
	lo := vm.readByte(frame)
	return uint16(hi)<<8 | uint16(lo)
}

func (vm *VM) readConstant(frame *CallFrame) Value {
	return frame.closure.Function.Chunk.Constants[vm.readByte(frame)]
}

// binaryNumberOp pops right then left (per stack-top semantics) and pushes
// op(left, right), reporting the uniform "Operands must be numbers." error
// when either isn't numeric.
func (vm *VM) binaryNumberOp(op func(a, b float64) Value) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeErrorf("Operands must be numbers.")
	}
	b := vm.pop()
	a := vm.pop()
	vm.push(op(a.Number, b.Number))
	return nil
}

// add implements `+`: numeric addition, or string concatenation (left+right)
// producing a new interned string.
func (vm *VM) add() error {
	switch {
	case vm.peek(0).IsString() && vm.peek(1).IsString():
		b := vm.pop().AsString()
		a := vm.pop().AsString()
		vm.push(ObjVal(vm.adoptString(a.Chars + b.Chars)))
	case vm.peek(0).IsNumber() && vm.peek(1).IsNumber():
		b := vm.pop()
		a := vm.pop()
		vm.push(NumberVal(a.Number + b.Number))
	default:
		return vm.runtimeErrorf("Operands must be two numbers or two strings.")
	}
	return nil
}
