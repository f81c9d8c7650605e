package vm

import "hash/fnv"

// hashString computes the FNV-1a hash used to key interned strings.
func hashString(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

// internString returns the canonical ObjString for the given bytes: an
// existing handle if one with the same content is already interned,
// otherwise a freshly allocated one that is inserted into the intern table
// before being returned. Every live String with the same bytes is
// therefore the same handle, which is what makes string `==` sound as
// simple pointer equality.
func (vm *VM) internString(chars string) *ObjString {
	hash := hashString(chars)
	if existing := vm.strings.FindString(chars, hash); existing != nil {
		return existing
	}

	str := &ObjString{Chars: chars, Hash: hash}
	// Park the new string on the stack before the table insert can trigger
	// a GC-driven growth allocation, so it is reachable through a root the
	// whole time.
	vm.push(ObjVal(str))
	vm.allocate(str, len(chars))
	vm.strings.Set(str, NilVal())
	vm.pop()
	return str
}

// adoptString interns bytes that the caller already owns exclusively (the
// result of string concatenation, for instance): on a hit the caller's
// buffer is simply discarded in favor of the canonical handle; on a miss
// the bytes become the new canonical handle.
func (vm *VM) adoptString(chars string) *ObjString {
	return vm.internString(chars)
}
