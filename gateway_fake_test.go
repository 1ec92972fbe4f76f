package godbg

import (
	"encoding/binary"
	"sync"
	"syscall"
)

// fakeGateway is an in-memory Gateway double used by tests that exercise
// the Control Loop, Breakpoint Engine, and Views without a real ptraced
// process. It models memory as a sparse byte map shared by all threads
// and keeps one register bank per tid, which is enough for every unit
// test in this package
// (tests substitute a fake that emulates the protocol, per gateway.go's
// own doc comment).
type fakeGateway struct {
	mu   sync.Mutex
	mem  map[uint64]byte
	regs map[int]*Registers
	tids []int

	attached  map[int]bool
	stopEvent []WaitEvent // queued events returned once by WaitAllAndUpdateRegs
	exited    bool

	singleStepCalls     int
	stepUntilCalls      int
	contCalls           int
	steppingFinishCalls int

	lastSingleStepSig     int
	lastStepUntilSig      int
	lastContSigs          map[int]int
	lastSteppingFinishSig int
}

func newFakeGateway(arch Arch, tids ...int) *fakeGateway {
	g := &fakeGateway{
		mem:      make(map[uint64]byte),
		regs:     make(map[int]*Registers),
		tids:     tids,
		attached: make(map[int]bool),
	}
	for _, tid := range tids {
		g.regs[tid] = newRegisters(arch)
	}
	return g
}

func (g *fakeGateway) setMem(addr uint64, data []byte) {
	for i, b := range data {
		g.mem[addr+uint64(i)] = b
	}
}

func (g *fakeGateway) Attach(tid int) error {
	g.attached[tid] = true
	return nil
}

func (g *fakeGateway) Detach(tid int, mode DetachMode) error {
	delete(g.attached, tid)
	return nil
}

func (g *fakeGateway) SetOptions(tid int, options int) error { return nil }

func (g *fakeGateway) PeekData(tid int, addr uint64) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = g.mem[addr+uint64(i)]
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (g *fakeGateway) PokeData(tid int, addr uint64, value uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	for i := 0; i < 8; i++ {
		g.mem[addr+uint64(i)] = buf[i]
	}
	return nil
}

func (g *fakeGateway) PeekUser(tid int, offset uintptr) (uint64, error) { return 0, nil }
func (g *fakeGateway) PokeUser(tid int, offset uintptr, value uint64) error { return nil }

func (g *fakeGateway) GetRegs(tid int) (*Registers, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.regs[tid], nil
}

func (g *fakeGateway) SetRegs(tid int, regs *Registers) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.regs[tid] = regs
	return nil
}

func (g *fakeGateway) GetFPRegs(tid int, layout FPLayout) ([]byte, error) {
	return make([]byte, layout.Size()), nil
}
func (g *fakeGateway) SetFPRegs(tid int, layout FPLayout, data []byte) error { return nil }

func (g *fakeGateway) SingleStep(tid int, sig int) error {
	g.mu.Lock()
	g.singleStepCalls++
	g.lastSingleStepSig = sig
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) StepUntil(tid int, addr uint64, maxSteps int, sig int) (bool, error) {
	g.mu.Lock()
	g.stepUntilCalls++
	g.lastStepUntilSig = sig
	g.mu.Unlock()
	regs, _ := g.GetRegs(tid)
	return regs.IP() == addr, nil
}

func (g *fakeGateway) ContAllAndSetBPs(tids []int, sigs map[int]int, engine *BreakpointEngine) error {
	g.mu.Lock()
	g.contCalls++
	g.lastContSigs = sigs
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) SteppingFinish(tid int, sig int) error {
	g.mu.Lock()
	g.steppingFinishCalls++
	g.lastSteppingFinishSig = sig
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) WaitAllAndUpdateRegs(pid int) ([]WaitEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.stopEvent) == 0 {
		events := make([]WaitEvent, 0, len(g.tids))
		for _, tid := range g.tids {
			events = append(events, WaitEvent{Tid: tid, Stopped: true, IsTrap: true, StopSignal: int(syscall.SIGTRAP)})
		}
		return events, nil
	}
	events := g.stopEvent
	g.stopEvent = nil
	return events, nil
}

func (g *fakeGateway) GetEventMsg(tid int) (uint64, error) { return 0, nil }
