//go:build linux

// gateway_linux.go - the real Ptrace Gateway, backed by
// golang.org/x/sys/unix. A few requests (PEEKUSER/POKEUSER,
// GETREGSET/SETREGSET, and signal-carrying PTRACE_SINGLESTEP) have no
// typed wrapper in x/sys/unix, so these fall back to
// unix.Syscall6(unix.SYS_PTRACE, ...).

package godbg

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Local ptrace request numbers not exposed as typed helpers by
// golang.org/x/sys/unix (values from linux/ptrace.h).
const (
	ptracePeekUser  = 3
	ptracePokeUser  = 6
	ptraceGetRegSet = 0x4204
	ptraceSetRegSet = 0x4205
)

const ntPRStatus = 1
const ntX86XState = 0x202

// LinuxGateway is the production Gateway implementation.
type LinuxGateway struct {
	arch Arch
}

// NewLinuxGateway returns a Gateway that issues real ptrace(2) requests
// for the given target architecture.
func NewLinuxGateway(arch Arch) *LinuxGateway {
	return &LinuxGateway{arch: arch}
}

func rawPtrace(request int, tid int, addr, data uintptr) (uintptr, error) {
	ret, _, errno := unix.Syscall6(unix.SYS_PTRACE, uintptr(request), uintptr(tid), addr, data, 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return ret, nil
}

func (g *LinuxGateway) Attach(tid int) error {
	if err := unix.PtraceAttach(tid); err != nil {
		return newGatewayError("attach", tid, err)
	}
	return nil
}

func (g *LinuxGateway) Detach(tid int, mode DetachMode) error {
	switch mode {
	case DetachKill:
		if err := unix.PtraceKill(tid); err != nil {
			return newGatewayError("detach_kill", tid, err)
		}
		return nil
	default:
		// Cont, Migration, and Reattach all resume the tracee on
		// detach; migration/reattach differ only in controller-side
		// bookkeeping handled above this layer.
		if err := unix.PtraceDetach(tid); err != nil {
			return newGatewayError("detach", tid, err)
		}
		return nil
	}
}

func (g *LinuxGateway) SetOptions(tid int, options int) error {
	if err := unix.PtraceSetOptions(tid, options); err != nil {
		return newGatewayError("set_options", tid, err)
	}
	return nil
}

func (g *LinuxGateway) PeekData(tid int, addr uint64) (uint64, error) {
	var buf [8]byte
	if _, err := unix.PtracePeekData(tid, uintptr(addr), buf[:]); err != nil {
		return 0, newGatewayError("peek_data", tid, err)
	}
	return leUint64(buf[:]), nil
}

func (g *LinuxGateway) PokeData(tid int, addr uint64, value uint64) error {
	var buf [8]byte
	putLeUint64(buf[:], value)
	if _, err := unix.PtracePokeData(tid, uintptr(addr), buf[:]); err != nil {
		return newGatewayError("poke_data", tid, err)
	}
	return nil
}

func (g *LinuxGateway) PeekUser(tid int, offset uintptr) (uint64, error) {
	val, err := rawPtrace(ptracePeekUser, tid, offset, 0)
	if err != nil {
		return 0, newGatewayError("peek_user", tid, err)
	}
	return uint64(val), nil
}

func (g *LinuxGateway) PokeUser(tid int, offset uintptr, value uint64) error {
	if _, err := rawPtrace(ptracePokeUser, tid, offset, uintptr(value)); err != nil {
		return newGatewayError("poke_user", tid, err)
	}
	return nil
}

func (g *LinuxGateway) GetRegs(tid int) (*Registers, error) {
	bankSize := 0
	switch g.arch.WordSize() {
	case 8:
		bankSize = amd64RegBankSize
	default:
		bankSize = i386RegBankSize
	}
	if g.arch.Name() == "arm64" {
		bankSize = arm64RegBankSize
	}
	raw := make([]byte, bankSize)
	iov := unix.Iovec{Base: &raw[0], Len: uint64(len(raw))}
	if _, err := rawPtrace(ptraceGetRegSet, tid, ntPRStatus, uintptr(unsafe.Pointer(&iov))); err != nil {
		return nil, newGatewayError("getregset", tid, err)
	}
	return decodeRegisters(g.arch, raw), nil
}

func (g *LinuxGateway) SetRegs(tid int, regs *Registers) error {
	raw := encodeRegisters(regs)
	iov := unix.Iovec{Base: &raw[0], Len: uint64(len(raw))}
	if _, err := rawPtrace(ptraceSetRegSet, tid, ntPRStatus, uintptr(unsafe.Pointer(&iov))); err != nil {
		return newGatewayError("setregset", tid, err)
	}
	return nil
}

func (g *LinuxGateway) GetFPRegs(tid int, layout FPLayout) ([]byte, error) {
	raw := make([]byte, layout.Size())
	iov := unix.Iovec{Base: &raw[0], Len: uint64(len(raw))}
	if _, err := rawPtrace(ptraceGetRegSet, tid, ntX86XState, uintptr(unsafe.Pointer(&iov))); err != nil {
		return nil, newGatewayError("getfpregs", tid, err)
	}
	return raw, nil
}

func (g *LinuxGateway) SetFPRegs(tid int, layout FPLayout, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	iov := unix.Iovec{Base: &data[0], Len: uint64(len(data))}
	if _, err := rawPtrace(ptraceSetRegSet, tid, ntX86XState, uintptr(unsafe.Pointer(&iov))); err != nil {
		return newGatewayError("setfpregs", tid, err)
	}
	return nil
}

func (g *LinuxGateway) SingleStep(tid int, sig int) error {
	if _, err := rawPtrace(unix.PTRACE_SINGLESTEP, tid, 0, uintptr(sig)); err != nil {
		return newGatewayError("single_step", tid, err)
	}
	return nil
}

func (g *LinuxGateway) StepUntil(tid int, addr uint64, maxSteps int, sig int) (bool, error) {
	for i := 0; i < maxSteps; i++ {
		stepSig := 0
		if i == 0 {
			stepSig = sig
		}
		if err := g.SingleStep(tid, stepSig); err != nil {
			return false, err
		}
		var ws unix.WaitStatus
		if _, err := unix.Wait4(tid, &ws, 0, nil); err != nil {
			return false, newGatewayError("wait4", tid, err)
		}
		regs, err := g.GetRegs(tid)
		if err != nil {
			return false, err
		}
		if regs.IP() == addr {
			return true, nil
		}
	}
	return false, nil
}

func (g *LinuxGateway) ContAllAndSetBPs(tids []int, sigs map[int]int, engine *BreakpointEngine) error {
	for _, tid := range tids {
		regs, err := g.GetRegs(tid)
		if err != nil {
			return err
		}
		bp := engine.lookup(regs.IP())
		if bp == nil || !bp.Enabled || bp.Hardware || !bp.patchedIn {
			continue
		}
		if err := engine.stepOverPatchedByte(g, tid, bp); err != nil {
			return err
		}
	}
	for _, tid := range tids {
		if err := unix.PtraceCont(tid, sigs[tid]); err != nil {
			return newGatewayError("cont", tid, err)
		}
	}
	return nil
}

func (g *LinuxGateway) SteppingFinish(tid int, sig int) error {
	if err := g.SingleStep(tid, sig); err != nil {
		return err
	}
	var ws unix.WaitStatus
	if _, err := unix.Wait4(tid, &ws, unix.WALL, nil); err != nil {
		return newGatewayError("wait4", tid, err)
	}
	return nil
}

// WaitAllAndUpdateRegs blocks for at least one event from any thread this
// process traces, then drains any further events already pending (from
// sibling threads that stopped around the same time) with WNOHANG so a
// single wait() call never straggles one thread's stop behind another's.
//
// wait4's pid argument is -1 (any child), not -pid (process-group wait):
// cloned tracee threads are the tracer's direct children but are not
// members of its process group, so -pid would silently miss them.
func (g *LinuxGateway) WaitAllAndUpdateRegs(pid int) ([]WaitEvent, error) {
	var events []WaitEvent
	for {
		var ws unix.WaitStatus
		tid, err := unix.Wait4(-1, &ws, unix.WALL, nil)
		if err != nil {
			return events, newGatewayError("wait4", pid, err)
		}
		events = append(events, classifyWaitStatus(tid, ws))
		var more bool
		for {
			var ws2 unix.WaitStatus
			tid2, err2 := unix.Wait4(-1, &ws2, unix.WALL|unix.WNOHANG, nil)
			if err2 != nil || tid2 <= 0 {
				break
			}
			events = append(events, classifyWaitStatus(tid2, ws2))
			more = true
		}
		if !more {
			break
		}
	}
	return events, nil
}

func classifyWaitStatus(tid int, ws unix.WaitStatus) WaitEvent {
	ev := WaitEvent{Tid: tid, Status: uint32(ws)}
	switch {
	case ws.Exited():
		ev.Exited = true
		ev.ExitCode = ws.ExitStatus()
	case ws.Signaled():
		ev.Signaled = true
		ev.Signal = int(ws.Signal())
	case ws.Stopped():
		ev.Stopped = true
		ev.StopSignal = int(ws.StopSignal())
		trapCause := ws.TrapCause()
		switch {
		case ev.StopSignal == int(unix.SIGTRAP) && trapCause == unix.PTRACE_EVENT_CLONE:
			ev.CloneEvent = true
		case ev.StopSignal == int(unix.SIGTRAP) && trapCause == unix.PTRACE_EVENT_EXEC:
			ev.ExecEvent = true
		case ev.StopSignal == int(unix.SIGTRAP) && trapCause == unix.PTRACE_EVENT_EXIT:
			ev.ExitEvent = true
		case ev.StopSignal == int(unix.SIGTRAP):
			ev.IsTrap = true
		default:
			ev.Signal = ev.StopSignal
		}
	}
	return ev
}

func (g *LinuxGateway) GetEventMsg(tid int) (uint64, error) {
	msg, err := unix.PtraceGetEventMsg(tid)
	if err != nil {
		return 0, newGatewayError("get_event_msg", tid, err)
	}
	return uint64(msg), nil
}

func decodeRegisters(arch Arch, raw []byte) *Registers {
	r := newRegisters(arch)
	switch arch.Name() {
	case "amd64":
		r.Values = decodeAMD64Regs(raw)
	case "386":
		r.Values = decodeI386Regs(raw)
	case "arm64":
		r.Values = decodeARM64Regs(raw)
	}
	return r
}

func encodeRegisters(r *Registers) []byte {
	switch r.Arch.Name() {
	case "amd64":
		return encodeAMD64Regs(r.Values)
	case "386":
		return encodeI386Regs(r.Values)
	case "arm64":
		return encodeARM64Regs(r.Values)
	default:
		return nil
	}
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func putLeUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v)
		v >>= 8
	}
}
