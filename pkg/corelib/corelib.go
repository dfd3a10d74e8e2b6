// Package corelib is a reference implementation of host.Host: the
// class/method-table object system, the built-in container types, and
// the symbol/global/constant storage the register engine in package vm
// treats as an opaque collaborator (spec.md §1, §6).
//
// None of the retrieved register-VM examples separate their object
// system from their dispatch loop the way this module's host/vm split
// requires, so the class model here is built directly from spec.md
// §6's own vocabulary (target_class, method_search, superclass chain)
// rather than copied from a pack repo; the native primitive bindings in
// primitives.go, by contrast, are a direct port of the teacher's own
// pkg/vm/primitives.go (see DESIGN.md).
package corelib

import (
	"fmt"
	"sync"

	"github.com/kristofer/ember/pkg/proc"
	"github.com/kristofer/ember/pkg/value"
)

// RClass is a class or module object: a method table, a superclass
// link (nil for modules and for Object itself), and constant/
// class-variable tables scoped to it.
type RClass struct {
	Name      string
	Super     *RClass
	IsModule  bool
	Methods   map[value.Symbol]*proc.Proc
	Constants map[value.Symbol]value.Value
	CVars     map[value.Symbol]value.Value
	Singleton bool
}

// HeapKind implements value.Heap.
func (c *RClass) HeapKind() string { return "class" }

func newClass(name string, super *RClass, isModule bool) *RClass {
	return &RClass{
		Name:      name,
		Super:     super,
		IsModule:  isModule,
		Methods:   make(map[value.Symbol]*proc.Proc),
		Constants: make(map[value.Symbol]value.Value),
		CVars:     make(map[value.Symbol]value.Value),
	}
}

// RObject is a plain instance: a class pointer plus an instance
// variable table. RException carries its own *RClass the same way;
// the container types (array, string, hash, range) carry none, and
// ClassOf maps each of them to its built-in class by Go type.
type RObject struct {
	Class *RClass
	IVars map[value.Symbol]value.Value
}

// HeapKind implements value.Heap.
func (o *RObject) HeapKind() string { return "object" }

// RException is a raised or constructed exception value: a class (e.g.
// "ArgumentError") plus a message, the shape host.Exceptions produces
// and vm/errors.go's RuntimeError formats.
type RException struct {
	Class   *RClass
	Message string
	IVars   map[value.Symbol]value.Value
}

// HeapKind implements value.Heap.
func (e *RException) HeapKind() string { return "exception" }

// Host is the reference host.Host implementation: an interning symbol
// table, a class table rooted at Object, and global/special-variable
// stores. A fresh Host already has Object/Kernel/the standard exception
// hierarchy and every primitive group from primitives.go installed —
// the equivalent of the teacher's VM having httpGet/sha256Hash/... as
// built-in opcodes, just reached through SEND instead.
type Host struct {
	mu sync.Mutex

	symNames []string
	symIDs   map[string]value.Symbol

	classes map[string]*RClass
	object  *RClass

	globals  map[value.Symbol]value.Value
	specials map[value.Symbol]value.Value
}

// New builds a Host with the standard class hierarchy and every
// primitive group bound in, ready to pass to vm.New.
func New() *Host {
	h := &Host{
		symIDs:   make(map[string]value.Symbol),
		classes:  make(map[string]*RClass),
		globals:  make(map[value.Symbol]value.Value),
		specials: make(map[value.Symbol]value.Value),
	}
	h.bootClasses()
	h.installKernel()
	h.installPrimitives()
	return h
}

func (h *Host) defineClass(name string, super *RClass) *RClass {
	c := newClass(name, super, false)
	h.classes[name] = c
	return c
}

func (h *Host) bootClasses() {
	h.object = h.defineClass("Object", nil)
	h.defineClass("Kernel", nil).IsModule = true
	h.defineClass("NilClass", h.object)
	h.defineClass("TrueClass", h.object)
	h.defineClass("FalseClass", h.object)
	h.defineClass("Fixnum", h.object)
	h.defineClass("Float", h.object)
	h.defineClass("Symbol", h.object)
	h.defineClass("String", h.object)
	h.defineClass("Array", h.object)
	h.defineClass("Hash", h.object)
	h.defineClass("Range", h.object)
	h.defineClass("Proc", h.object)

	exc := h.defineClass("Exception", h.object)
	stdErr := h.defineClass("StandardError", exc)
	h.defineClass("RuntimeError", stdErr)
	h.defineClass("ArgumentError", stdErr)
	h.defineClass("TypeError", stdErr)
	h.defineClass("NameError", stdErr)
	h.defineClass("NoMethodError", h.classes["NameError"])
	h.defineClass("IndexError", stdErr)
	h.defineClass("RangeError", stdErr)
	h.defineClass("ZeroDivisionError", stdErr)
	h.defineClass("LocalJumpError", stdErr)
	h.defineClass("IOError", stdErr)
	h.defineClass("NotImplementedError", stdErr)
}

// --- Vars ---

// Intern implements host.Vars.
func (h *Host) Intern(name string) value.Symbol {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id, ok := h.symIDs[name]; ok {
		return id
	}
	id := value.Symbol(len(h.symNames))
	h.symNames = append(h.symNames, name)
	h.symIDs[name] = id
	return id
}

// SymbolName implements host.Vars.
func (h *Host) SymbolName(sym value.Symbol) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if int(sym) < 0 || int(sym) >= len(h.symNames) {
		return fmt.Sprintf("<sym:%d>", sym)
	}
	return h.symNames[sym]
}

// Global implements host.Vars.
func (h *Host) Global(sym value.Symbol) value.Value {
	if v, ok := h.globals[sym]; ok {
		return v
	}
	return value.Nil
}

// SetGlobal implements host.Vars.
func (h *Host) SetGlobal(sym value.Symbol, v value.Value) { h.globals[sym] = v }

// Special implements host.Vars.
func (h *Host) Special(sym value.Symbol) value.Value {
	if v, ok := h.specials[sym]; ok {
		return v
	}
	return value.Nil
}

// SetSpecial implements host.Vars.
func (h *Host) SetSpecial(sym value.Symbol, v value.Value) { h.specials[sym] = v }

func ivarsOf(self value.Value) map[value.Symbol]value.Value {
	switch o := self.Heap().(type) {
	case *RObject:
		if o.IVars == nil {
			o.IVars = make(map[value.Symbol]value.Value)
		}
		return o.IVars
	case *RException:
		if o.IVars == nil {
			o.IVars = make(map[value.Symbol]value.Value)
		}
		return o.IVars
	default:
		return nil
	}
}

// IVar implements host.Vars.
func (h *Host) IVar(self value.Value, sym value.Symbol) value.Value {
	if ivars := ivarsOf(self); ivars != nil {
		if v, ok := ivars[sym]; ok {
			return v
		}
	}
	return value.Nil
}

// SetIVar implements host.Vars.
func (h *Host) SetIVar(self value.Value, sym value.Symbol, v value.Value) {
	if ivars := ivarsOf(self); ivars != nil {
		ivars[sym] = v
	}
}

// CVar implements host.Vars.
func (h *Host) CVar(class value.Value, sym value.Symbol) value.Value {
	c, _ := class.Heap().(*RClass)
	for c != nil {
		if v, ok := c.CVars[sym]; ok {
			return v
		}
		c = c.Super
	}
	return value.Nil
}

// SetCVar implements host.Vars.
func (h *Host) SetCVar(class value.Value, sym value.Symbol, v value.Value) {
	if c, ok := class.Heap().(*RClass); ok {
		c.CVars[sym] = v
	}
}

// Const implements host.Vars: walks scope's superclass chain, falling
// back to Object's top-level constants.
func (h *Host) Const(scope value.Value, sym value.Symbol) (value.Value, bool) {
	c, _ := scope.Heap().(*RClass)
	for c != nil {
		if v, ok := c.Constants[sym]; ok {
			return v, true
		}
		c = c.Super
	}
	if v, ok := h.object.Constants[sym]; ok {
		return v, true
	}
	return value.Nil, false
}

// SetConst implements host.Vars.
func (h *Host) SetConst(scope value.Value, sym value.Symbol, v value.Value) {
	c, ok := scope.Heap().(*RClass)
	if !ok {
		c = h.object
	}
	c.Constants[sym] = v
}

// MConst implements host.Vars.
func (h *Host) MConst(mod value.Value, sym value.Symbol) (value.Value, bool) {
	c, ok := mod.Heap().(*RClass)
	if !ok {
		return value.Nil, false
	}
	v, ok := c.Constants[sym]
	return v, ok
}

// SetMConst implements host.Vars.
func (h *Host) SetMConst(mod value.Value, sym value.Symbol, v value.Value) {
	if c, ok := mod.Heap().(*RClass); ok {
		c.Constants[sym] = v
	}
}
