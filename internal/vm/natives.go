package vm

import "time"

// defineNatives installs the single built-in the interpreter ships:
// clock(), returning fractional seconds elapsed since defineNatives ran for
// this VM. There is no broader standard library by design.
func defineNatives(vm *VM) {
	start := time.Now()
	vm.defineNative("clock", func(vm *VM, args []Value) (Value, error) {
		return NumberVal(time.Since(start).Seconds()), nil
	})
}

func (vm *VM) defineNative(name string, fn NativeFn) {
	native := &ObjNative{Name: name, Fn: fn}
	vm.push(ObjVal(native))
	vm.allocate(native, 16)
	nameStr := vm.internString(name)
	vm.globals.Set(nameStr, vm.peek(0))
	vm.pop()
}
