// stepping.go - Stepping Engine: step, step_until, next
// (step-over), finish (backtrace / step-mode heuristics), built on top of
// the Control Loop and Breakpoint Engine. Next and the backtrace Finish
// heuristic both use the same shape: install a transient breakpoint at
// the computed return point, cont, wait, remove; the step-mode Finish
// heuristic single-steps instead.

package godbg

// FinishHeuristic selects how Finish locates the return point.
type FinishHeuristic int

const (
	FinishBacktrace FinishHeuristic = iota
	FinishStepMode
)

// StepUntil single-steps tid up to maxSteps times, stopping early if IP
// reaches target. Returns false, nil if the
// step budget was exhausted without reaching target; an unrelated
// breakpoint firing mid-loop is reported the same way: a StateError-free
// false return (the caller distinguishes by checking IP against target
// and against any known breakpoint address).
func (l *ControlLoop) StepUntil(tid int, target uint64, maxSteps int) (bool, error) {
	l.mu.Lock()
	if l.tracee.State != Stopped {
		l.mu.Unlock()
		return false, &StateError{Command: "step_until", State: l.tracee.State}
	}
	l.mu.Unlock()

	sig := l.takePendingSignal(tid)
	reached, err := l.gateway.StepUntil(tid, target, maxSteps, sig)
	if err != nil {
		return false, err
	}
	l.mu.Lock()
	if th := l.tracee.Threads[tid]; th != nil {
		th.Regs = nil
	}
	l.mu.Unlock()
	return reached, nil
}

// Next implements step-over: if the instruction at
// IP is a CALL, run to its fallthrough address via a transient
// breakpoint; otherwise behave as Step.
func (l *ControlLoop) Next(tid int) error {
	regs, err := l.regsForRead(tid)
	if err != nil {
		return err
	}
	code, err := l.Memory(tid).Read(regs.IP(), 16)
	if err != nil || len(code) == 0 {
		return l.Step(tid)
	}
	kind, instrLen := l.arch.ClassifyCall(code)
	if kind == NotCall {
		return l.Step(tid)
	}
	fallthroughAddr := regs.IP() + uint64(instrLen)
	return l.runToTransientBreakpoint(tid, fallthroughAddr)
}

// Finish implements "finish" under the given heuristic.
func (l *ControlLoop) Finish(tid int, heuristic FinishHeuristic) error {
	switch heuristic {
	case FinishBacktrace:
		return l.finishBacktrace(tid)
	default:
		return l.finishStepMode(tid)
	}
}

func (l *ControlLoop) finishBacktrace(tid int) error {
	regs, err := l.regsForRead(tid)
	if err != nil {
		return err
	}
	vmap, err := LoadVMAP(l.tracee.Pid)
	if err != nil {
		vmap = nil
	}
	trace := Unwind(regs, l.Memory(tid), vmap, 64)
	if len(trace) < 2 {
		return &ValueError{Msg: "no caller frame to finish into"}
	}
	return l.runToTransientBreakpoint(tid, trace[1])
}

// finishStepMode single-steps repeatedly, maintaining a CALL/RET nesting
// counter, stopping when the counter goes negative or a user breakpoint
// fires. This drives the Gateway's SteppingFinish primitive, which must
// not let sibling threads run.
func (l *ControlLoop) finishStepMode(tid int) error {
	depth := 0
	for {
		regs, err := l.regsForRead(tid)
		if err != nil {
			return err
		}
		code, err := l.Memory(tid).Read(regs.IP(), 16)
		if err != nil || len(code) == 0 {
			return &ValueError{Msg: "cannot read instruction at IP"}
		}
		if kind, _ := l.arch.ClassifyCall(code); kind != NotCall {
			depth++
		} else if l.arch.IsReturn(code) {
			depth--
			if depth < 0 {
				return l.Step(tid)
			}
		}
		sig := l.takePendingSignal(tid)
		if err := l.gateway.SteppingFinish(tid, sig); err != nil {
			return err
		}
		l.mu.Lock()
		if th := l.tracee.Threads[tid]; th != nil {
			th.Regs = nil
		}
		l.mu.Unlock()

		newRegs, err := l.regsForRead(tid)
		if err != nil {
			return err
		}
		if bp := l.bps.lookup(newRegs.IP()); bp != nil && bp.Enabled && !bp.transient {
			return nil
		}
	}
}

// runToTransientBreakpoint installs an internal breakpoint at addr, cont,
// waits, and removes it, respecting any pre-existing user breakpoint at
// the same address: must not double-free the original byte on removal.
func (l *ControlLoop) runToTransientBreakpoint(tid int, addr uint64) error {
	existing := l.bps.lookup(addr)
	var transient *Breakpoint
	if existing == nil {
		bp, err := l.bps.placeTransient(l.gateway, tid, addr)
		if err != nil {
			return err
		}
		transient = bp
	}

	if err := l.Cont(); err != nil {
		return err
	}

	if transient != nil {
		// Only remove the byte we installed; if a user breakpoint now
		// also sits at this address (placed concurrently is impossible
		// under the single-controller-thread rule, but re-entrant
		// placement during the same command is not), lookup still
		// returns the single owning record, so Remove is safe.
		if l.bps.lookup(addr) == transient {
			return l.bps.Remove(l.gateway, tid, transient)
		}
	}
	return nil
}
