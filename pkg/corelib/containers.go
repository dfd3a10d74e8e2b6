package corelib

import (
	"fmt"

	"github.com/kristofer/ember/pkg/value"
)

// RArray is the built-in array representation (§4.6's APOST destructure
// target, ARRAY/ARYCAT/ARYPUSH/AREF/ASET's operand).
type RArray struct{ Elems []value.Value }

// HeapKind implements value.Heap.
func (a *RArray) HeapKind() string { return "array" }

// RHash is the built-in hash representation: parallel key/value slices
// rather than a Go map, since value.Value is not comparable when it
// wraps a heap pointer to an uncomparable concrete type (e.g. a slice
// field inside RArray) — linear lookup mirrors how a small literal hash
// built by the HASH opcode is actually used. Key lookup uses
// value.Value.Equal, which for two heap-object keys is pointer
// identity rather than structural equality — two distinct String
// instances holding the same text are different keys here, a known
// simplification given no host-level hash/eql? protocol exists yet to
// dispatch structural comparison through (symbol and Fixnum keys, the
// common case, compare correctly since their payload is inline).
type RHash struct {
	Keys   []value.Value
	Values []value.Value
}

// HeapKind implements value.Heap.
func (h *RHash) HeapKind() string { return "hash" }

// RString is the built-in mutable string representation.
type RString struct{ Text string }

// HeapKind implements value.Heap.
func (s *RString) HeapKind() string { return "string" }

// RRange is the built-in range representation.
type RRange struct {
	Lo, Hi    value.Value
	Exclusive bool
}

// HeapKind implements value.Heap.
func (r *RRange) HeapKind() string { return "range" }

// NewArray implements host.Containers.
func (h *Host) NewArray(elems []value.Value) value.Value {
	cp := append([]value.Value(nil), elems...)
	return value.Obj(&RArray{Elems: cp})
}

// ArrayConcat implements host.Containers.
func (h *Host) ArrayConcat(dst, src value.Value) (value.Value, error) {
	d, ok := dst.Heap().(*RArray)
	if !ok {
		return value.Nil, fmt.Errorf("ARYCAT: not an array")
	}
	if s, ok := src.Heap().(*RArray); ok {
		d.Elems = append(d.Elems, s.Elems...)
	} else {
		d.Elems = append(d.Elems, src)
	}
	return dst, nil
}

// ArrayPush implements host.Containers.
func (h *Host) ArrayPush(dst, v value.Value) (value.Value, error) {
	d, ok := dst.Heap().(*RArray)
	if !ok {
		return value.Nil, fmt.Errorf("ARYPUSH: not an array")
	}
	d.Elems = append(d.Elems, v)
	return dst, nil
}

// ArrayRef implements host.Containers. A negative index counts from
// the end, as every mruby-style array supports; an out-of-range index
// yields nil rather than an error, matching Ruby's Array#[].
func (h *Host) ArrayRef(arr value.Value, idx int) (value.Value, error) {
	a, ok := arr.Heap().(*RArray)
	if !ok {
		return value.Nil, fmt.Errorf("AREF: not an array")
	}
	if idx < 0 {
		idx += len(a.Elems)
	}
	if idx < 0 || idx >= len(a.Elems) {
		return value.Nil, nil
	}
	return a.Elems[idx], nil
}

// ArraySet implements host.Containers, growing the array with nils if
// idx is past its current end.
func (h *Host) ArraySet(arr value.Value, idx int, v value.Value) error {
	a, ok := arr.Heap().(*RArray)
	if !ok {
		return fmt.Errorf("ASET: not an array")
	}
	if idx < 0 {
		idx += len(a.Elems)
		if idx < 0 {
			return fmt.Errorf("ASET: index out of range")
		}
	}
	for idx >= len(a.Elems) {
		a.Elems = append(a.Elems, value.Nil)
	}
	a.Elems[idx] = v
	return nil
}

// ArrayDestructure implements host.Containers, APOST's `a, *b, c = arr`
// splitting into pre leading elements, a rest array, and post trailing
// elements.
func (h *Host) ArrayDestructure(arr value.Value, pre, post int) ([]value.Value, value.Value, []value.Value, error) {
	a, ok := arr.Heap().(*RArray)
	if !ok {
		return nil, value.Nil, nil, fmt.Errorf("APOST: not an array")
	}
	n := len(a.Elems)
	head := make([]value.Value, pre)
	for i := 0; i < pre; i++ {
		if i < n {
			head[i] = a.Elems[i]
		} else {
			head[i] = value.Nil
		}
	}
	tail := make([]value.Value, post)
	for i := 0; i < post; i++ {
		srcIdx := n - post + i
		if srcIdx >= pre && srcIdx < n {
			tail[i] = a.Elems[srcIdx]
		} else {
			tail[i] = value.Nil
		}
	}
	restStart, restEnd := pre, n-post
	var rest []value.Value
	if restEnd > restStart {
		rest = append([]value.Value(nil), a.Elems[restStart:restEnd]...)
	}
	return head, h.NewArray(rest), tail, nil
}

// ArrayLen implements host.Containers.
func (h *Host) ArrayLen(arr value.Value) (int, error) {
	a, ok := arr.Heap().(*RArray)
	if !ok {
		return 0, fmt.Errorf("not an array")
	}
	return len(a.Elems), nil
}

// AsArray implements host.Containers.
func (h *Host) AsArray(v value.Value) ([]value.Value, bool) {
	a, ok := v.Heap().(*RArray)
	if !ok {
		return nil, false
	}
	return a.Elems, true
}

// NewString implements host.Containers.
func (h *Host) NewString(text string) value.Value { return value.Obj(&RString{Text: text}) }

// AsString implements host.Containers.
func (h *Host) AsString(v value.Value) (string, bool) {
	s, ok := v.Heap().(*RString)
	if !ok {
		return "", false
	}
	return s.Text, true
}

// StringConcat implements host.Containers.
func (h *Host) StringConcat(dst, src value.Value) (value.Value, error) {
	d, ok := dst.Heap().(*RString)
	if !ok {
		return value.Nil, fmt.Errorf("STRCAT: not a string")
	}
	s, ok := src.Heap().(*RString)
	if !ok {
		return value.Nil, fmt.Errorf("STRCAT: operand is not a string")
	}
	d.Text += s.Text
	return dst, nil
}

// NewHash implements host.Containers: pairs is a flat key,value,...
// sequence, the layout the HASH opcode lays down in registers.
func (h *Host) NewHash(pairs []value.Value) value.Value {
	hm := &RHash{}
	for i := 0; i+1 < len(pairs); i += 2 {
		hm.Keys = append(hm.Keys, pairs[i])
		hm.Values = append(hm.Values, pairs[i+1])
	}
	return value.Obj(hm)
}

// HashGet looks up key in a hash, used by the "[]" primitive rather
// than any opcode (hash indexing is an ordinary method send, unlike
// array indexing's dedicated AREF/ASET).
func (h *Host) HashGet(hv, key value.Value) value.Value {
	hm, ok := hv.Heap().(*RHash)
	if !ok {
		return value.Nil
	}
	for i, k := range hm.Keys {
		if k.Equal(key) {
			return hm.Values[i]
		}
	}
	return value.Nil
}

// HashSet stores key/val into a hash, used by the "[]=" primitive.
func (h *Host) HashSet(hv, key, val value.Value) {
	hm, ok := hv.Heap().(*RHash)
	if !ok {
		return
	}
	for i, k := range hm.Keys {
		if k.Equal(key) {
			hm.Values[i] = val
			return
		}
	}
	hm.Keys = append(hm.Keys, key)
	hm.Values = append(hm.Values, val)
}

// NewRange implements host.Containers.
func (h *Host) NewRange(lo, hi value.Value, exclusive bool) value.Value {
	return value.Obj(&RRange{Lo: lo, Hi: hi, Exclusive: exclusive})
}
