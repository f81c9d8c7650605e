package vm

import "fmt"

// ObjKind distinguishes the heap-object variants of the data model.
type ObjKind uint8

const (
	ObjKindString ObjKind = iota
	ObjKindFunction
	ObjKindNative
	ObjKindClosure
	ObjKindUpvalue
	ObjKindClass
	ObjKindInstance
	ObjKindBoundMethod
)

// Object is satisfied by every heap-allocated Lox value. Every variant
// shares a header (mark bit, intrusive all-objects link, allocation size)
// through embedding of Obj, which is how the garbage collector walks and
// frees the heap without knowing each concrete type ahead of time.
type Object interface {
	Kind() ObjKind
	Inspect() string
	header() *Obj
}

// Obj is the common object header every heap value embeds: a mark bit for
// the collector, an intrusive link to the next object allocated (forming
// the VM's all-objects list), and the byte size charged to the allocation
// heuristic.
type Obj struct {
	marked bool
	next   Object
	size   int
}

func (o *Obj) header() *Obj { return o }

// NativeFn is the signature of a built-in function.
type NativeFn func(vm *VM, args []Value) (Value, error)

// ObjString is an interned, immutable byte string.
type ObjString struct {
	Obj
	Chars string
	Hash  uint32
}

func (s *ObjString) Kind() ObjKind   { return ObjKindString }
func (s *ObjString) Inspect() string { return s.Chars }

// ObjFunction is an immutable compiled function: its arity, its upvalue
// count, its Chunk, and an optional name (nil for the top-level script).
type ObjFunction struct {
	Obj
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	Name         *ObjString
}

func (f *ObjFunction) Kind() ObjKind { return ObjKindFunction }
func (f *ObjFunction) Inspect() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

// ObjNative wraps a host-implemented function (only `clock` in this
// interpreter).
type ObjNative struct {
	Obj
	Name string
	Fn   NativeFn
}

func (n *ObjNative) Kind() ObjKind   { return ObjKindNative }
func (n *ObjNative) Inspect() string { return "<native fn>" }

// ObjUpvalue is a cell representing a variable captured by a closure. While
// Location >= 0 it is "open": the cell still reads/writes the VM stack slot
// at that index. Once closed, Location is -1 and Closed holds the value
// directly. OpenNext links open upvalues into the VM's sorted-by-descending-
// slot list; it is independent of the all-objects link in Obj.
type ObjUpvalue struct {
	Obj
	Location int
	Closed   Value
	OpenNext *ObjUpvalue
}

func (u *ObjUpvalue) Kind() ObjKind   { return ObjKindUpvalue }
func (u *ObjUpvalue) Inspect() string { return "<upvalue>" }

func (u *ObjUpvalue) isOpen() bool { return u.Location >= 0 }

// ObjClosure pairs an ObjFunction with the upvalues it captured at creation
// time. The slice length always equals Function.UpvalueCount.
type ObjClosure struct {
	Obj
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) Kind() ObjKind { return ObjKindClosure }
func (c *ObjClosure) Inspect() string {
	return c.Function.Inspect()
}

// ObjClass is a Lox class: its name and a method table mapping method name
// to the Closure that implements it.
type ObjClass struct {
	Obj
	Name    *ObjString
	Methods map[string]*ObjClosure
}

func (c *ObjClass) Kind() ObjKind   { return ObjKindClass }
func (c *ObjClass) Inspect() string { return c.Name.Chars }

// ObjInstance is an instance of a Class: an immutable class handle and a
// mutable field table.
type ObjInstance struct {
	Obj
	Class  *ObjClass
	Fields map[string]Value
}

func (i *ObjInstance) Kind() ObjKind   { return ObjKindInstance }
func (i *ObjInstance) Inspect() string { return i.Class.Name.Chars + " instance" }

// ObjBoundMethod pairs a receiver with the Closure looked up on it,
// produced when reading `instance.method` without immediately calling it.
type ObjBoundMethod struct {
	Obj
	Receiver Value
	Method   *ObjClosure
}

func (b *ObjBoundMethod) Kind() ObjKind   { return ObjKindBoundMethod }
func (b *ObjBoundMethod) Inspect() string { return b.Method.Inspect() }
