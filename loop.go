// loop.go - Control Loop: owns tracee lifecycle, dispatches
// commands to the Gateway, reaps wait events, implements
// auto-interrupt-on-command. Exposes a synchronous API: every command
// that resumes the tracee blocks until the next stop or exit is
// observed, rather than delivering it via an event channel.

package godbg

import (
	"sync"

	"golang.org/x/sys/unix"
)

// ControlLoop is the single owner of one Tracee's state, its threads,
// and its Breakpoint Engine.
type ControlLoop struct {
	mu       sync.Mutex
	gateway  Gateway
	arch     Arch
	fpLayout FPLayout
	tracee   *Tracee
	bps      *BreakpointEngine
}

// NewControlLoop constructs a loop for a not-yet-attached tracee.
func NewControlLoop(gateway Gateway, arch Arch, fpLayout FPLayout) *ControlLoop {
	return &ControlLoop{
		gateway:  gateway,
		arch:     arch,
		fpLayout: fpLayout,
		bps:      newBreakpointEngine(arch),
	}
}

// Attach attaches to an already-running process by pid and blocks until
// the initial attach-stop is observed (NotStarted -> Running
// on attach, then Stopped on the attach-stop wait event).
func (l *ControlLoop) Attach(pid int) error {
	l.mu.Lock()
	l.tracee = newTracee(pid)
	l.tracee.State = Running
	l.mu.Unlock()

	if err := l.gateway.Attach(pid); err != nil {
		return err
	}
	const opts = unix.PTRACE_O_TRACECLONE | unix.PTRACE_O_TRACEEXIT |
		unix.PTRACE_O_TRACEEXEC | unix.PTRACE_O_TRACEFORK | unix.PTRACE_O_TRACEVFORK
	if err := l.gateway.SetOptions(pid, opts); err != nil {
		return err
	}
	return l.waitUntilStopped()
}

// Detach releases the tracee per mode.
func (l *ControlLoop) Detach(mode DetachMode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, tid := range l.tracee.Tids() {
		if err := l.gateway.Detach(tid, mode); err != nil {
			return err
		}
	}
	return nil
}

// State returns the current Tracee lifecycle state.
func (l *ControlLoop) State() TraceeState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tracee.State
}

// Breakpoints returns the Breakpoint Engine owned by this loop.
func (l *ControlLoop) Breakpoints() *BreakpointEngine { return l.bps }

// Registers returns a Register View scoped to tid.
func (l *ControlLoop) Registers(tid int) *RegisterView { return newRegisterView(l, tid) }

// Memory returns a Memory View scoped to tid.
func (l *ControlLoop) Memory(tid int) *MemoryView { return newMemoryView(l, tid) }

// Cont resumes every thread, transparently re-arming breakpoints and
// forwarding each thread's pending signal (if any and not suppressed),
// then blocks until the tracee next stops or exits.
func (l *ControlLoop) Cont() error {
	l.mu.Lock()
	if l.tracee.State != Stopped {
		l.mu.Unlock()
		return &StateError{Command: "cont", State: l.tracee.State}
	}
	tids := l.tracee.Tids()
	sigs := make(map[int]int, len(tids))
	for _, tid := range tids {
		if th := l.tracee.Threads[tid]; th != nil && th.PendingSignal != 0 {
			sigs[tid] = th.PendingSignal
			th.PendingSignal = 0
		}
	}
	l.mu.Unlock()

	if err := l.gateway.ContAllAndSetBPs(tids, sigs, l.bps); err != nil {
		return err
	}
	l.mu.Lock()
	l.tracee.State = Running
	for _, th := range l.tracee.Threads {
		th.Stopped = false
	}
	l.mu.Unlock()
	return l.waitUntilStopped()
}

// Step single-steps tid, forwarding its pending signal (if any and not
// suppressed), and blocks until the resulting stop is observed.
func (l *ControlLoop) Step(tid int) error {
	l.mu.Lock()
	if l.tracee.State != Stopped {
		l.mu.Unlock()
		return &StateError{Command: "step", State: l.tracee.State}
	}
	l.mu.Unlock()

	sig := l.takePendingSignal(tid)
	if err := l.gateway.SingleStep(tid, sig); err != nil {
		return err
	}
	l.mu.Lock()
	l.tracee.State = Running
	if th := l.tracee.Threads[tid]; th != nil {
		th.Stopped = false
	}
	l.mu.Unlock()
	return l.waitUntilStopped()
}

// takePendingSignal returns tid's pending signal and clears it; a signal
// is forwarded to the tracee at most once, on its very next resume.
func (l *ControlLoop) takePendingSignal(tid int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	th := l.tracee.Threads[tid]
	if th == nil {
		return 0
	}
	sig := th.PendingSignal
	th.PendingSignal = 0
	return sig
}

// Interrupt performs a user-level group-stop:
// sends SIGSTOP to the tracee and returns once wait reports it stopped.
func (l *ControlLoop) Interrupt() error {
	l.mu.Lock()
	pid := l.tracee.Pid
	state := l.tracee.State
	l.mu.Unlock()
	if state != Running {
		return nil
	}
	if err := unix.Kill(pid, unix.SIGSTOP); err != nil {
		return newGatewayError("interrupt", pid, err)
	}
	return l.waitUntilStopped()
}

// groupStopForRead implements the auto-interrupt-on-command
// read-command rule: if the tracee is Running and auto-interrupt is
// enabled, stop it so the read can be served. The tracee is left stopped
// afterward; no caller in this package resumes it once the read is done.
func (l *ControlLoop) groupStopForRead() error {
	l.mu.Lock()
	state := l.tracee.State
	autoInterrupt := l.tracee.AutoInterruptOnCmd
	l.mu.Unlock()

	if state == Stopped {
		return nil
	}
	if state != Running || !autoInterrupt {
		return &StateError{Command: "read", State: state}
	}
	return l.Interrupt()
}

// regsForRead returns tid's cached register bank, auto-interrupting first
// if required, refreshing it from the Gateway if missing.
func (l *ControlLoop) regsForRead(tid int) (*Registers, error) {
	if err := l.groupStopForRead(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	th, ok := l.tracee.Threads[tid]
	if !ok {
		return nil, &ValueError{Msg: "unknown thread"}
	}
	if th.Regs != nil {
		return th.Regs, nil
	}
	regs, err := l.gateway.GetRegs(tid)
	if err != nil {
		return nil, err
	}
	th.Regs = regs
	return regs, nil
}

// setRegister writes name on tid, flushing immediately to the kernel.
func (l *ControlLoop) setRegister(tid int, name string, value uint64) error {
	if err := l.groupStopForRead(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	th, ok := l.tracee.Threads[tid]
	if !ok {
		return &ValueError{Msg: "unknown thread"}
	}
	if th.Regs == nil {
		regs, err := l.gateway.GetRegs(tid)
		if err != nil {
			return err
		}
		th.Regs = regs
	}
	if !th.Regs.Set(name, value) {
		return &ValueError{Msg: "unknown register " + name}
	}
	return l.gateway.SetRegs(tid, th.Regs)
}

// waitUntilStopped blocks on WaitAllAndUpdateRegs until every live thread
// reports Stopped or the whole tracee has exited.
func (l *ControlLoop) waitUntilStopped() error {
	for {
		l.mu.Lock()
		pid := l.tracee.Pid
		l.mu.Unlock()

		events, err := l.gateway.WaitAllAndUpdateRegs(pid)
		if err != nil {
			return err
		}
		l.mu.Lock()
		for _, ev := range events {
			l.applyWaitEvent(ev)
		}
		done := l.tracee.State == Exited || l.tracee.AllStopped()
		l.mu.Unlock()
		if done {
			return nil
		}
	}
}

// applyWaitEvent implements per-event classification.
// Caller must hold l.mu.
func (l *ControlLoop) applyWaitEvent(ev WaitEvent) {
	switch {
	case ev.CloneEvent:
		newTid, err := l.gateway.GetEventMsg(ev.Tid)
		if err == nil {
			tid := int(newTid)
			if _, exists := l.tracee.Threads[tid]; !exists {
				l.tracee.Threads[tid] = &Thread{Tid: tid}
			}
		}
		if th := l.tracee.Threads[ev.Tid]; th != nil {
			th.Stopped = true
		}
	case ev.ExitEvent:
		delete(l.tracee.Threads, ev.Tid)
	case ev.Exited, ev.GroupExit:
		l.tracee.State = Exited
	case ev.Stopped:
		th := l.tracee.Threads[ev.Tid]
		if th == nil {
			th = &Thread{Tid: ev.Tid}
			l.tracee.Threads[ev.Tid] = th
		}
		th.Stopped = true
		th.Regs = nil // invalidate cache; next read refetches
		if !ev.IsTrap && ev.StopSignal != 0 && !l.tracee.signalSuppressed(ev.StopSignal) {
			th.PendingSignal = ev.StopSignal
		}
		if l.tracee.AllStopped() {
			l.tracee.State = Stopped
		}
	}
}
