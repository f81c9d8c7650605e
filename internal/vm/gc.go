package vm

// Tri-color mark-and-sweep garbage collection, integrated with the intern
// table and driven by an allocation-threshold heuristic. Non-moving and
// non-incremental, matching the design in the interpreter's data model: the
// all-objects list is walked during sweep to find and unlink unreachable
// objects, after which Go's own allocator reclaims the memory — there is no
// manual free(), only unlinking, which is the memory-safe rendition of the
// reference design's intrusive pointer graph.

const (
	initialNextGC = 1024 * 1024
	gcGrowFactor  = 2
)

// allocate links a freshly created object at the head of the all-objects
// list and charges size bytes against the allocation heuristic, possibly
// triggering a collection. Every object constructor must call this exactly
// once, and the object must already be reachable from a root (typically:
// already pushed on the VM stack) before any further allocation happens,
// per the GC-safety obligations in the design.
func (vm *VM) allocate(obj Object, size int) {
	h := obj.header()
	h.next = vm.objects
	h.size = size
	vm.objects = obj
	vm.bytesAllocated += size

	if vm.stressGC || vm.bytesAllocated > vm.nextGC {
		vm.collectGarbage()
	}
}

// collectGarbage runs one full mark-sweep cycle.
func (vm *VM) collectGarbage() {
	if vm.logGC != nil {
		vm.logGC(gcEventBegin, vm.bytesAllocated, vm.nextGC)
	}

	vm.markRoots()
	vm.traceReferences()
	vm.strings.RemoveWhite()
	freed := vm.sweep()

	vm.nextGC = vm.bytesAllocated * gcGrowFactor
	if vm.nextGC < initialNextGC {
		vm.nextGC = initialNextGC
	}

	if vm.logGC != nil {
		vm.logGC(gcEventEnd, vm.bytesAllocated, freed)
	}
}

// markRoots marks everything directly reachable without tracing: the
// evaluation stack, every active call frame's closure, every open upvalue,
// the globals table, the in-flight compiler chain (so a GC triggered mid-
// compilation cannot collect functions or strings still under
// construction), and the cached "init" string.
func (vm *VM) markRoots() {
	for i := 0; i < vm.sp; i++ {
		vm.markValue(vm.stack[i])
	}

	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].closure)
	}

	for uv := vm.openUpvalues; uv != nil; uv = uv.OpenNext {
		vm.markObject(uv)
	}

	vm.globals.Range(func(key *ObjString, value Value) bool {
		vm.markObject(key)
		vm.markValue(value)
		return true
	})

	vm.markCompilerRoots()

	if vm.initString != nil {
		vm.markObject(vm.initString)
	}
}

func (vm *VM) markValue(v Value) {
	if v.Type == ValObj && v.Obj != nil {
		vm.markObject(v.Obj)
	}
}

func (vm *VM) markObject(o Object) {
	if o == nil {
		return
	}
	h := o.header()
	if h.marked {
		return
	}
	h.marked = true
	vm.grayStack = append(vm.grayStack, o)
}

// traceReferences pops from the gray worklist and blackens each object
// until the worklist is empty.
func (vm *VM) traceReferences() {
	for len(vm.grayStack) > 0 {
		n := len(vm.grayStack) - 1
		obj := vm.grayStack[n]
		vm.grayStack = vm.grayStack[:n]
		vm.blacken(obj)
	}
}

// blacken traces the outgoing references of obj according to its kind.
func (vm *VM) blacken(obj Object) {
	switch o := obj.(type) {
	case *ObjFunction:
		if o.Name != nil {
			vm.markObject(o.Name)
		}
		for _, c := range o.Chunk.Constants {
			vm.markValue(c)
		}
	case *ObjClosure:
		vm.markObject(o.Function)
		for _, uv := range o.Upvalues {
			vm.markObject(uv)
		}
	case *ObjUpvalue:
		vm.markValue(o.Closed)
	case *ObjClass:
		vm.markObject(o.Name)
		for _, m := range o.Methods {
			vm.markObject(m)
		}
	case *ObjInstance:
		vm.markObject(o.Class)
		for _, f := range o.Fields {
			vm.markValue(f)
		}
	case *ObjBoundMethod:
		vm.markValue(o.Receiver)
		vm.markObject(o.Method)
	case *ObjString, *ObjNative:
		// Leaf objects: no outgoing references.
	}
}

// sweep walks the all-objects list, unlinking and discarding every
// unmarked object and clearing the mark bit on every survivor. It returns
// the number of bytes reclaimed.
func (vm *VM) sweep() int {
	var previous Object
	obj := vm.objects
	freed := 0

	for obj != nil {
		h := obj.header()
		next := h.next

		if h.marked {
			h.marked = false
			previous = obj
		} else {
			if previous != nil {
				previous.header().next = next
			} else {
				vm.objects = next
			}
			freed += h.size
			vm.bytesAllocated -= h.size
		}

		obj = next
	}

	return freed
}

// gcEvent identifies which half of a collection a log callback observed.
type gcEvent int

const (
	gcEventBegin gcEvent = iota
	gcEventEnd
)

// GCLogger receives allocation-byte snapshots around each collection; New
// installs defaultGCLogger, which prints humanize-formatted trace lines,
// when the LogGC debug flag (-gc-log) is set.
type GCLogger func(event gcEvent, bytesAllocated, other int)
