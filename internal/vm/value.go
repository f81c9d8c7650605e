package vm

import (
	"strconv"
)

// ValueType tags the variant held by a Value.
type ValueType uint8

const (
	ValNil ValueType = iota
	ValBool
	ValNumber
	ValObj
)

// Value is the tagged union every Lox expression produces and every stack
// slot holds: Nil, Bool, Number (IEEE-754 double), or a handle to a heap
// Object.
type Value struct {
	Type   ValueType
	Bool   bool
	Number float64
	Obj    Object
}

func NilVal() Value             { return Value{Type: ValNil} }
func BoolVal(b bool) Value      { return Value{Type: ValBool, Bool: b} }
func NumberVal(n float64) Value { return Value{Type: ValNumber, Number: n} }
func ObjVal(o Object) Value     { return Value{Type: ValObj, Obj: o} }

func (v Value) IsNil() bool    { return v.Type == ValNil }
func (v Value) IsBool() bool   { return v.Type == ValBool }
func (v Value) IsNumber() bool { return v.Type == ValNumber }
func (v Value) IsObj() bool    { return v.Type == ValObj }

func (v Value) IsObjKind(kind ObjKind) bool {
	return v.Type == ValObj && v.Obj != nil && v.Obj.Kind() == kind
}

func (v Value) IsString() bool      { return v.IsObjKind(ObjKindString) }
func (v Value) IsFunction() bool    { return v.IsObjKind(ObjKindFunction) }
func (v Value) IsNative() bool      { return v.IsObjKind(ObjKindNative) }
func (v Value) IsClosure() bool     { return v.IsObjKind(ObjKindClosure) }
func (v Value) IsClass() bool       { return v.IsObjKind(ObjKindClass) }
func (v Value) IsInstance() bool    { return v.IsObjKind(ObjKindInstance) }
func (v Value) IsBoundMethod() bool { return v.IsObjKind(ObjKindBoundMethod) }

func (v Value) AsString() *ObjString           { return v.Obj.(*ObjString) }
func (v Value) AsFunction() *ObjFunction       { return v.Obj.(*ObjFunction) }
func (v Value) AsNative() *ObjNative           { return v.Obj.(*ObjNative) }
func (v Value) AsClosure() *ObjClosure         { return v.Obj.(*ObjClosure) }
func (v Value) AsClass() *ObjClass             { return v.Obj.(*ObjClass) }
func (v Value) AsInstance() *ObjInstance       { return v.Obj.(*ObjInstance) }
func (v Value) AsBoundMethod() *ObjBoundMethod { return v.Obj.(*ObjBoundMethod) }

// IsFalsey reports Lox truthiness: nil and false are falsey, everything
// else (including 0 and "") is truthy.
func (v Value) IsFalsey() bool {
	return v.IsNil() || (v.IsBool() && !v.Bool)
}

// Equals implements Lox `==`: different variants are never equal; numbers
// compare via Go's native float equality (so NaN != NaN, matching bitwise
// IEEE-754 semantics); objects compare by handle, which is sound for
// strings because of interning.
func (v Value) Equals(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case ValNil:
		return true
	case ValBool:
		return v.Bool == o.Bool
	case ValNumber:
		return v.Number == o.Number
	case ValObj:
		return v.Obj == o.Obj
	default:
		return false
	}
}

// String renders value the way Lox's `print` statement and REPL do.
func (v Value) String() string {
	switch v.Type {
	case ValNil:
		return "nil"
	case ValBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValNumber:
		return formatNumber(v.Number)
	case ValObj:
		if v.Obj == nil {
			return "nil"
		}
		return v.Obj.Inspect()
	default:
		return "<?>"
	}
}

// formatNumber renders a float64 in the shortest round-trippable decimal
// form, so that `print 2;` produces "2" rather than "2.000000".
func formatNumber(n float64) string {
	if n != n {
		return "nan"
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
