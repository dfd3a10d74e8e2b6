package vm

import "github.com/kristofer/ember/pkg/value"

// raise implements RAISE and every internal fault path: it stores exc
// in the exception slot and unwinds frames looking for a RESCUE target
// registered at or above the current rescue watermark, running any
// ensure procedures crossed along the way (§4.7).
//
// It returns nil once a handler has been found and control transferred
// to it (the dispatch loop simply continues from the new pc), or a
// RuntimeError wrapping exc if no handler was found anywhere up to the
// outermost frame.
func (s *State) raise(exc value.Value) error {
	s.exc = exc
	for {
		cur := s.curFrame()
		if len(s.rescue) > cur.RIdx {
			target := s.rescue[len(s.rescue)-1]
			s.rescue = s.rescue[:len(s.rescue)-1]
			s.pc = target
			return nil
		}
		if len(s.ensure) > cur.EIdx {
			ent := s.ensure[len(s.ensure)-1]
			s.ensure = s.ensure[:len(s.ensure)-1]
			if err := s.runEnsure(ent); err != nil {
				return err
			}
			continue
		}
		if s.top == 0 {
			return &RuntimeError{
				Message: s.Host.ExceptionMessage(exc),
				Exc:     exc,
				Trace:   s.Backtrace(),
			}
		}
		s.popFrameUnwinding()
	}
}

// raiseGoError wraps a plain Go error surfaced by a native procedure or
// a host.Host method as a language-level exception and raises it
// exactly as RAISE would, so Go errors and RAISE share one unwind path
// (§7). If err already carries a language-level exception (because it
// originated from a failed method lookup elsewhere in this package),
// that exception is reused verbatim instead of being double-wrapped.
func (s *State) raiseGoError(err error) error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*RuntimeError); ok && re.Exc != value.Nil {
		return s.raise(re.Exc)
	}
	exc := s.Host.NewException("RuntimeError", err.Error())
	return s.raise(exc)
}

// popFrameUnwinding pops the current frame while an exception is
// propagating past it: any environment still aliasing it is promoted
// first (§4.4), then control returns to the caller's saved pc so the
// next raise() iteration re-checks that frame's own watermarks.
func (s *State) popFrameUnwinding() {
	f := s.curFrame()
	if f.Env != nil {
		f.Env.Detach()
	}
	s.popFrame()
	s.top--
	caller := s.curFrame()
	if caller.Proc != nil {
		s.irep = caller.Proc.Body
		s.pc = caller.PC
	}
}

// runEnsure invokes one ensure-stack entry's procedure for effect:
// pushes a frame for it, runs the dispatch loop to completion for
// exactly that frame (and whatever it transitively calls), and
// discards its result, implementing EPOP's "run accumulated ensure
// bodies" behavior and RAISE/RETURN's "run ensures crossed by an
// unwind" behavior with the same code path (§4.7).
func (s *State) runEnsure(ent ensureEntry) error {
	if ent.p == nil {
		return nil
	}
	cs := callSpec{recv: s.regs()[0], block: value.Nil, acc: accDiscard}
	if err := s.enterFrame(cs, ent.p, ent.p.TargetClass); err != nil {
		return err
	}
	return s.runUntil(s.top)
}
