// Public entry points (§6): the three ways an embedding host or a
// native procedure's own Go body re-enters the dispatch loop.
package vm

import (
	"github.com/kristofer/ember/pkg/proc"
	"github.com/kristofer/ember/pkg/value"
)

// Run executes p as the outermost program: a fresh call replacing the
// State's sentinel root frame, self bound to self, with args as its
// positional arguments and no block. It returns the value passed to
// the outermost RETURN, or a *RuntimeError if execution faulted or an
// exception propagated past the outermost frame uncaught.
func (s *State) Run(p *proc.Proc, self value.Value, args []value.Value) (value.Value, error) {
	cs := callSpec{recv: self, args: args, block: value.Nil, acc: accDiscard, tail: true}
	if err := s.enterFrame(cs, p, p.TargetClass); err != nil {
		return value.Nil, err
	}
	if err := s.runUntil(0); err != nil {
		return value.Nil, err
	}
	// The outermost RETURN leaves top at -1 to end runUntil; point it back
	// at frame 0 so a later Funcall/Yield has a frame to push above.
	s.top = 0
	return s.result, nil
}

// Funcall performs an ordinary method call from outside the dispatch
// loop — the embedding host invoking a language-level method the way
// SEND would, without any bytecode of its own to encode the call in.
// It is also what a native Proc's body uses (via its `state any`
// parameter, type-asserted back to *State) to call back into the
// language, e.g. a sort primitive invoking a user-supplied comparator.
func (s *State) Funcall(recv value.Value, mid value.Symbol, args []value.Value) (value.Value, error) {
	p, definedIn, err := s.resolveMethod(recv, mid)
	if err != nil {
		return value.Nil, err
	}
	return s.callAndCapture(p, definedIn, recv, args, value.Nil)
}

// Yield invokes block (a Proc value, native or bytecode) directly with
// args, the entry point behind a host-level "call this block" helper
// (e.g. Array#each's native body yielding once per element).
func (s *State) Yield(block value.Value, args []value.Value) (value.Value, error) {
	p, ok := block.Heap().(*proc.Proc)
	if !ok {
		return value.Nil, s.runtimeErrorf("yield target is not a procedure")
	}
	return s.callAndCapture(p, p.TargetClass, value.Nil, args, value.Nil)
}

// callAndCapture invokes p and waits for its result, whether p is
// native (synchronous, no dispatch loop involved) or bytecode (pushed
// as a frame above whatever is currently executing, run to completion
// via the same loop runEnsure uses, then its captured result read
// back). Used by both Funcall and Yield, which differ only in how they
// locate p.
func (s *State) callAndCapture(p *proc.Proc, definedIn, recv value.Value, args []value.Value, block value.Value) (value.Value, error) {
	if p.IsNative() {
		result, err := p.Native(s, recv, args)
		if err != nil {
			return value.Nil, s.raiseGoError(err)
		}
		return result, nil
	}
	cs := callSpec{recv: recv, args: args, block: block, acc: accCapture}
	if err := s.enterFrame(cs, p, definedIn); err != nil {
		return value.Nil, err
	}
	if err := s.runUntil(s.top); err != nil {
		return value.Nil, err
	}
	return s.result, nil
}
