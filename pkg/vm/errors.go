// Package vm - error handling with stack traces
package vm

import (
	"fmt"
	"strings"

	"github.com/kristofer/ember/pkg/value"
)

// RuntimeError is returned by Run/Funcall/Yield whenever execution
// stops because of an uncaught exception or an internal VM fault
// (stack overflow, arity mismatch never rescued, malformed bytecode).
// It carries the frame stack captured at the moment of failure so an
// embedder can render a backtrace, the same role the teacher's own
// RuntimeError/StackFrame pair played over AST call sites, now over
// register-VM frames instead.
type RuntimeError struct {
	Message string      // human-readable message
	Exc     value.Value // the language-level exception object, if any (else value.Nil)
	Trace   []Frame     // call stack at the moment of failure, outermost first
}

// Error implements the error interface, formatting the message with a
// backtrace innermost-frame-first, the convention most interpreters
// print traces in.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)

	if len(e.Trace) > 0 {
		b.WriteString("\n\nStack trace:")
		for i := len(e.Trace) - 1; i >= 0; i-- {
			f := e.Trace[i]
			name := "<toplevel>"
			if f.MID != 0 {
				name = fmt.Sprintf("method#%d", f.MID)
			}
			b.WriteString(fmt.Sprintf("\n  at %s [pc=%d]", name, f.PC))
		}
	}
	return b.String()
}

// argumentError raises the specific RuntimeError ENTER uses when a
// call's argument count cannot be reconciled with a procedure's
// declared arity (§4.6).
func (s *State) argumentError(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return &RuntimeError{
		Message: msg,
		Exc:     s.Host.NewException("ArgumentError", msg),
		Trace:   s.Backtrace(),
	}
}

// localJumpError is raised when a BLKPUSH or a non-local RETURN finds
// no enclosing block/method to target (§4.7, §8 edge cases).
func (s *State) localJumpError(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return &RuntimeError{
		Message: msg,
		Exc:     s.Host.NewException("LocalJumpError", msg),
		Trace:   s.Backtrace(),
	}
}
