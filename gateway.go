// gateway.go - the Ptrace Gateway: a thin, synchronous
// interface over the kernel's process-tracing primitives. Everything here
// is platform-independent; gateway_linux.go supplies the real
// golang.org/x/sys/unix-backed implementation.

package godbg

// DetachMode selects how PTRACE_DETACH (or an equivalent kernel request)
// should treat the tracee on detach.
type DetachMode int

const (
	DetachCont DetachMode = iota
	DetachKill
	DetachMigration
	DetachReattach
)

// WaitEvent is one (tid, status) pair returned from a single wait call,
// plus the decoded classification the Control Loop needs to update Tracee
// state.
type WaitEvent struct {
	Tid    int
	Status uint32

	Exited     bool
	ExitCode   int
	Signaled   bool
	Signal     int // pending signal to forward, if a signal-delivery-stop
	Stopped    bool
	StopSignal int

	CloneEvent    bool
	ExecEvent     bool
	ExitEvent     bool // PTRACE_EVENT_EXIT (thread about to exit)
	GroupExit     bool
	IsTrap        bool // generic SIGTRAP stop (breakpoint or single-step)
	IsSyscallStop bool // PTRACE_O_TRACESYSGOOD syscall-stop
}

// Gateway is the Ptrace Gateway contract consumed by every higher-level
// component. A single implementation (gateway_linux.go) backs it in
// production; tests substitute a fake that emulates the protocol over an
// in-memory byte buffer.
type Gateway interface {
	Attach(tid int) error
	Detach(tid int, mode DetachMode) error
	SetOptions(tid int, options int) error

	PeekData(tid int, addr uint64) (uint64, error)
	PokeData(tid int, addr uint64, value uint64) error
	PeekUser(tid int, offset uintptr) (uint64, error)
	PokeUser(tid int, offset uintptr, value uint64) error

	GetRegs(tid int) (*Registers, error)
	SetRegs(tid int, regs *Registers) error
	GetFPRegs(tid int, layout FPLayout) ([]byte, error)
	SetFPRegs(tid int, layout FPLayout, data []byte) error

	// SingleStep resumes tid for exactly one instruction. sig, if
	// non-zero, is delivered to the tracee as part of the resume (the
	// ptrace(2) "data" argument on PTRACE_SINGLESTEP); 0 resumes without
	// delivering any signal.
	SingleStep(tid int, sig int) error
	// StepUntil single-steps tid up to maxSteps times, stopping early and
	// returning true if the instruction pointer reaches addr. sig is
	// delivered on only the first single-step of the sequence; a
	// delivered signal is consumed by the kernel on the very next
	// resume, so later iterations always resume with no signal.
	StepUntil(tid int, addr uint64, maxSteps int, sig int) (reached bool, err error)

	// ContAllAndSetBPs is the resume-everyone primitive: re-arm any
	// software breakpoint whose address equals a stopped thread's IP
	// (restore original byte, single-step across it, reinstall 0xCC),
	// then PTRACE_CONT every thread in tids. sigs maps a tid to the
	// signal to deliver on its resume; a tid absent from sigs resumes
	// with no signal.
	ContAllAndSetBPs(tids []int, sigs map[int]int, engine *BreakpointEngine) error

	// SteppingFinish advances tid by a single instruction without
	// disturbing any other thread — used by the step-mode finish
	// heuristic, which must not let sibling threads run.
	SteppingFinish(tid int, sig int) error

	WaitAllAndUpdateRegs(pid int) ([]WaitEvent, error)
	GetEventMsg(tid int) (uint64, error)
}
