package corelib

import "github.com/kristofer/ember/pkg/value"

// NewException implements host.Exceptions. An unrecognized className
// falls back to RuntimeError rather than faulting, since a host-level
// error path (raiseGoError) must always be able to produce something
// raisable.
func (h *Host) NewException(className, message string) value.Value {
	c, ok := h.classes[className]
	if !ok {
		c = h.classes["RuntimeError"]
	}
	return value.Obj(&RException{Class: c, Message: message, IVars: make(map[value.Symbol]value.Value)})
}

// ExceptionMessage implements host.Exceptions.
func (h *Host) ExceptionMessage(exc value.Value) string {
	if e, ok := exc.Heap().(*RException); ok {
		return e.Message
	}
	if exc.IsNil() {
		return "unhandled exception"
	}
	return exc.GoString()
}
