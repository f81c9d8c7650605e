package vm

// callValue implements the CALL n calling convention: callee is peek(argCount).
func (vm *VM) callValue(callee Value, argCount int) error {
	if !callee.IsObj() {
		return vm.runtimeErrorf("Can only call functions and classes.")
	}

	switch obj := callee.Obj.(type) {
	case *ObjClosure:
		return vm.call(obj, argCount)
	case *ObjNative:
		args := vm.stack[vm.sp-argCount : vm.sp]
		result, err := obj.Fn(vm, args)
		if err != nil {
			return err
		}
		vm.sp -= argCount + 1
		vm.push(result)
		return nil
	case *ObjClass:
		instance := &ObjInstance{Class: obj, Fields: make(map[string]Value)}
		vm.stack[vm.sp-argCount-1] = ObjVal(instance)
		vm.allocate(instance, 48)

		if initializer, ok := obj.Methods[vm.initString.Chars]; ok {
			return vm.call(initializer, argCount)
		}
		if argCount != 0 {
			return vm.runtimeErrorf("Expected 0 arguments but got %d.", argCount)
		}
		return nil
	case *ObjBoundMethod:
		vm.stack[vm.sp-argCount-1] = obj.Receiver
		return vm.call(obj.Method, argCount)
	default:
		return vm.runtimeErrorf("Can only call functions and classes.")
	}
}

// call pushes a new frame for closure, after checking arity and the
// call-frame depth limit.
func (vm *VM) call(closure *ObjClosure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeErrorf("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == framesMax {
		return vm.runtimeErrorf("Stack overflow.")
	}

	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.closure = closure
	frame.ip = 0
	frame.slots = vm.sp - argCount - 1
	return nil
}

// invoke fuses `instance.method(args)` into a single dispatch that skips
// materializing a BoundMethod, falling back to ordinary field-then-call
// semantics when the name resolves to a field holding a callable.
func (vm *VM) invoke(name *ObjString, argCount int) error {
	receiver := vm.peek(argCount)
	if !receiver.IsInstance() {
		return vm.runtimeErrorf("Only instances have methods.")
	}
	instance := receiver.AsInstance()

	if field, ok := instance.Fields[name.Chars]; ok {
		vm.stack[vm.sp-argCount-1] = field
		return vm.callValue(field, argCount)
	}

	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *ObjClass, name *ObjString, argCount int) error {
	method, ok := class.Methods[name.Chars]
	if !ok {
		return vm.runtimeErrorf("Undefined property '%s'.", name.Chars)
	}
	return vm.call(method, argCount)
}

// bindMethod resolves name in class and replaces the receiver sitting at
// peek(0) with a BoundMethod, or reports an undefined-property error.
func (vm *VM) bindMethod(class *ObjClass, name *ObjString) error {
	method, ok := class.Methods[name.Chars]
	if !ok {
		return vm.runtimeErrorf("Undefined property '%s'.", name.Chars)
	}

	bound := &ObjBoundMethod{Receiver: vm.peek(0), Method: method}
	vm.push(ObjVal(bound))
	vm.allocate(bound, 32)
	top := vm.pop()
	vm.pop()
	vm.push(top)
	return nil
}

// captureUpvalue returns the open upvalue for stack slot, reusing one
// already open at that slot so that multiple closures capturing the same
// local share mutations, per the sorted-by-descending-slot open list.
func (vm *VM) captureUpvalue(slot int) *ObjUpvalue {
	var prev *ObjUpvalue
	curr := vm.openUpvalues
	for curr != nil && curr.Location > slot {
		prev = curr
		curr = curr.OpenNext
	}
	if curr != nil && curr.Location == slot {
		return curr
	}

	created := &ObjUpvalue{Location: slot, OpenNext: curr}
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.OpenNext = created
	}
	vm.allocate(created, 24)
	return created
}

// closeUpvalues closes every open upvalue whose slot is >= boundary, copying
// the stack value into the upvalue's own storage and unlinking it from the
// open list.
func (vm *VM) closeUpvalues(boundary int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Location >= boundary {
		uv := vm.openUpvalues
		uv.Closed = vm.stack[uv.Location]
		uv.Location = -1
		vm.openUpvalues = uv.OpenNext
		uv.OpenNext = nil
	}
}
