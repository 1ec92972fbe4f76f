package godbg

import "testing"

func newUnwindFixture(t *testing.T) (*Registers, *MemoryView, *fakeGateway) {
	t.Helper()
	gw := newFakeGateway(amd64Arch{}, 100)
	loop := NewControlLoop(gw, amd64Arch{}, FPLayoutLegacy)
	if err := loop.Attach(100); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	regs, err := loop.regsForRead(100)
	if err != nil {
		t.Fatalf("regsForRead: %v", err)
	}
	return regs, loop.Memory(100), gw
}

// Two-level frame-pointer chain: current frame at rbp=0x7000, caller frame
// at 0x7100, outermost frame terminated by a zero saved rbp.
func TestUnwindFramePointerChain(t *testing.T) {
	regs, mem, _ := newUnwindFixture(t)
	regs.Set("rip", 0x400050)
	regs.Set("rbp", 0x7000)

	if err := mem.Write(0x400050, []byte{0x90, 0x90, 0x90, 0x90}); err != nil {
		t.Fatalf("seed code: %v", err)
	}
	if err := mem.Write(0x7000, u64le(0x7100)); err != nil {
		t.Fatalf("seed saved rbp: %v", err)
	}
	if err := mem.Write(0x7008, u64le(0x400100)); err != nil {
		t.Fatalf("seed return addr: %v", err)
	}
	if err := mem.Write(0x7100, u64le(0)); err != nil {
		t.Fatalf("seed outer saved rbp: %v", err)
	}
	if err := mem.Write(0x7108, u64le(0x400200)); err != nil {
		t.Fatalf("seed outer return addr: %v", err)
	}

	trace := Unwind(regs, mem, nil, 10)
	want := []uint64{0x400050, 0x400100, 0x400200}
	if len(trace) != len(want) {
		t.Fatalf("trace = %x, want %x", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Errorf("trace[%d] = %#x, want %#x", i, trace[i], want[i])
		}
	}
}

func TestUnwindRespectsMaxDepth(t *testing.T) {
	regs, mem, _ := newUnwindFixture(t)
	regs.Set("rip", 0x400050)
	regs.Set("rbp", 0x7000)
	mem.Write(0x400050, []byte{0x90, 0x90, 0x90, 0x90})
	mem.Write(0x7000, u64le(0x7100))
	mem.Write(0x7008, u64le(0x400100))
	mem.Write(0x7100, u64le(0))
	mem.Write(0x7108, u64le(0x400200))

	trace := Unwind(regs, mem, nil, 1)
	if len(trace) != 1 {
		t.Fatalf("len(trace) = %d, want 1", len(trace))
	}
	if trace[0] != 0x400050 {
		t.Errorf("trace[0] = %#x, want %#x", trace[0], 0x400050)
	}
}

// A vmap that excludes the return address should stop the walk before
// appending it: the walk stops once the chain leaves all known mapped
// regions.
func TestUnwindStopsAtVMAPBoundary(t *testing.T) {
	regs, mem, _ := newUnwindFixture(t)
	regs.Set("rip", 0x400050)
	regs.Set("rbp", 0x7000)
	mem.Write(0x400050, []byte{0x90, 0x90, 0x90, 0x90})
	mem.Write(0x7000, u64le(0x7100))
	mem.Write(0x7008, u64le(0x400100))

	vmap := &VMap{entries: []VMapEntry{{Start: 0x500000, End: 0x600000}}}
	trace := Unwind(regs, mem, vmap, 10)
	if len(trace) != 1 {
		t.Fatalf("trace = %x, want just the IP (return addr outside vmap)", trace)
	}
}

// correctTopFrame fixes up the top frame when the IP is still at "push
// %rbp": the true return address lives at [rsp], not [rbp+8] (the
// caller's own frame hasn't been replaced by the callee's yet). Because
// rbp still points at the grandparent frame while mid-prologue, the
// naive walk's [rbp+8] read is a legitimate caller-of-caller return
// address, not garbage — it must be kept, shifted to trace[2], not
// dropped.
func TestUnwindCorrectsTopFramePushBP(t *testing.T) {
	regs, mem, _ := newUnwindFixture(t)
	regs.Set("rip", 0x400050)
	regs.Set("rsp", 0x6FF8)
	regs.Set("rbp", 0x7000) // still the caller's rbp; prologue hasn't run

	mem.Write(0x400050, []byte{0x55, 0x90, 0x90, 0x90}) // push %rbp
	mem.Write(0x6FF8, u64le(0x400999))                  // true return address, at [rsp]
	mem.Write(0x7008, u64le(0x400111))                  // caller-of-caller return address

	trace := Unwind(regs, mem, nil, 10)
	want := []uint64{0x400050, 0x400999, 0x400111}
	if len(trace) != len(want) {
		t.Fatalf("trace = %x, want %x", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Errorf("trace[%d] = %#x, want %#x", i, trace[i], want[i])
		}
	}
}

func u64le(v uint64) []byte {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	return buf
}
