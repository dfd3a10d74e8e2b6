package corelib

import (
	"fmt"

	"github.com/kristofer/ember/pkg/proc"
	"github.com/kristofer/ember/pkg/value"
)

// ObjectClass implements host.Classes.
func (h *Host) ObjectClass() value.Value { return value.Obj(h.object) }

// ClassOf implements host.Classes, mapping every primitive tag and
// every corelib heap type to the RClass describing it.
func (h *Host) ClassOf(v value.Value) value.Value {
	switch {
	case v.IsNil():
		return value.Obj(h.classes["NilClass"])
	case v.IsFalse():
		return value.Obj(h.classes["FalseClass"])
	case v.IsTrue():
		return value.Obj(h.classes["TrueClass"])
	case v.IsFixnum():
		return value.Obj(h.classes["Fixnum"])
	case v.IsFloat():
		return value.Obj(h.classes["Float"])
	case v.IsSymbol():
		return value.Obj(h.classes["Symbol"])
	}
	switch o := v.Heap().(type) {
	case *RClass:
		return value.Obj(h.object) // classes are themselves instances of Object here; no metaclass tower
	case *RObject:
		return value.Obj(o.Class)
	case *RException:
		return value.Obj(o.Class)
	case *RString:
		return value.Obj(h.classes["String"])
	case *RArray:
		return value.Obj(h.classes["Array"])
	case *RHash:
		return value.Obj(h.classes["Hash"])
	case *RRange:
		return value.Obj(h.classes["Range"])
	case *proc.Proc:
		return value.Obj(h.classes["Proc"])
	default:
		return value.Obj(h.object)
	}
}

// MethodSearch implements host.Classes: a linear walk up the
// superclass chain, mirroring spec.md §6's method_search.
func (h *Host) MethodSearch(class value.Value, sym value.Symbol) (*proc.Proc, value.Value, bool) {
	c, ok := class.Heap().(*RClass)
	if !ok {
		return nil, value.Nil, false
	}
	for c != nil {
		if p, ok := c.Methods[sym]; ok {
			return p, value.Obj(c), true
		}
		c = c.Super
	}
	return nil, value.Nil, false
}

// Superclass implements host.Classes.
func (h *Host) Superclass(class value.Value) value.Value {
	c, ok := class.Heap().(*RClass)
	if !ok || c.Super == nil {
		return value.Nil
	}
	return value.Obj(c.Super)
}

// DefineClass implements host.Classes.
func (h *Host) DefineClass(sym value.Symbol, outer, super value.Value) (value.Value, error) {
	name := h.SymbolName(sym)
	superClass := h.object
	if !super.IsNil() {
		sc, ok := super.Heap().(*RClass)
		if !ok {
			return value.Nil, fmt.Errorf("superclass of %s is not a class", name)
		}
		superClass = sc
	}
	if existing, ok := h.classes[name]; ok {
		return value.Obj(existing), nil
	}
	c := newClass(name, superClass, false)
	h.classes[name] = c
	if oc, ok := outer.Heap().(*RClass); ok {
		oc.Constants[sym] = value.Obj(c)
	} else {
		h.object.Constants[sym] = value.Obj(c)
	}
	return value.Obj(c), nil
}

// DefineModule implements host.Classes.
func (h *Host) DefineModule(sym value.Symbol, outer value.Value) (value.Value, error) {
	name := h.SymbolName(sym)
	if existing, ok := h.classes[name]; ok {
		return value.Obj(existing), nil
	}
	c := newClass(name, nil, true)
	h.classes[name] = c
	if oc, ok := outer.Heap().(*RClass); ok {
		oc.Constants[sym] = value.Obj(c)
	} else {
		h.object.Constants[sym] = value.Obj(c)
	}
	return value.Obj(c), nil
}

// DefineMethod implements host.Classes.
func (h *Host) DefineMethod(class value.Value, sym value.Symbol, m *proc.Proc) error {
	c, ok := class.Heap().(*RClass)
	if !ok {
		return fmt.Errorf("METHOD target %s is not a class", class.GoString())
	}
	c.Methods[sym] = m
	return nil
}

// SingletonClass implements host.Classes: a per-object anonymous
// subclass inserted directly above its current class, created lazily
// on first request (the usual "each object has at most one singleton
// class" mruby/Ruby discipline).
func (h *Host) SingletonClass(v value.Value) (value.Value, error) {
	o, ok := v.Heap().(*RObject)
	if !ok {
		return value.Nil, fmt.Errorf("cannot create a singleton class for %s", v.GoString())
	}
	if o.Class.Singleton {
		return value.Obj(o.Class), nil
	}
	sc := newClass("#<Class:"+o.Class.Name+">", o.Class, false)
	sc.Singleton = true
	o.Class = sc
	return value.Obj(sc), nil
}

// NewInstance implements host.Classes: allocate a bare RObject whose
// class is the receiver, the body behind the "new" primitive every
// class carries.
func (h *Host) NewInstance(class value.Value) (value.Value, error) {
	c, ok := class.Heap().(*RClass)
	if !ok {
		return value.Nil, fmt.Errorf("cannot instantiate %s", class.GoString())
	}
	return value.Obj(&RObject{Class: c, IVars: make(map[value.Symbol]value.Value)}), nil
}
