// unwind.go - Stack Unwinder (amd64 and i386): frame-pointer walking
// with a prologue-aware correction for the top frame, validated against
// a VMAP snapshot. One algorithm parameterized by Arch.WordSize():
// dispatch across architectures is a capability table rather than a
// type switch.

package godbg

// Unwind walks the frame-pointer chain of a stopped thread and returns a
// sequence of return addresses, starting with the current IP. vmap is
// consulted to stop the walk once the chain leaves all known mapped
// regions; a nil vmap disables that check (useful in tests that don't
// model /proc/<pid>/maps).
func Unwind(regs *Registers, mem *MemoryView, vmap *VMap, maxDepth int) []uint64 {
	wordSize := regs.Arch.WordSize()
	trace := []uint64{regs.IP()}

	bp := regs.BP()
	for bp != 0 && len(trace) < maxDepth {
		ret, ok := readWord(mem, bp+uint64(wordSize), wordSize)
		if !ok {
			break
		}
		if vmap != nil && !vmap.Contains(ret) {
			break
		}
		nextBP, ok := readWord(mem, bp, wordSize)
		if !ok {
			break
		}
		trace = append(trace, ret)
		bp = nextBP
	}

	return correctTopFrame(regs, mem, wordSize, trace)
}

// correctTopFrame classifies the 4 bytes at the current IP into a
// preamble stage. While the IP is mid-prologue, rbp still points at the
// grandparent frame, so the naive frame-pointer walk's trace[1] is a
// legitimate caller-of-caller return address, not garbage — the real
// top-frame return address is inserted ahead of it (at position 1) via
// its true location ([rsp] or [rsp+word_size]), shifting the rest of the
// trace down rather than overwriting it.
func correctTopFrame(regs *Registers, mem *MemoryView, wordSize int, trace []uint64) []uint64 {
	if len(trace) < 2 {
		return trace
	}
	code, err := mem.Read(regs.IP(), 4)
	if err != nil || len(code) < 4 {
		return trace
	}
	stage := regs.Arch.PreambleState(code)
	if stage == PreambleNone {
		return trace
	}
	sp := regs.SP()
	var addr uint64
	switch stage {
	case PreamblePushBP:
		addr = sp
	case PreambleMovSPBP:
		addr = sp + uint64(wordSize)
	default:
		return trace
	}
	corrected, ok := readWord(mem, addr, wordSize)
	if !ok || corrected == trace[1] {
		return trace
	}
	trace = append(trace, 0)
	copy(trace[2:], trace[1:])
	trace[1] = corrected
	return trace
}

func readWord(mem *MemoryView, addr uint64, wordSize int) (uint64, bool) {
	data, err := mem.Read(addr, wordSize)
	if err != nil || len(data) < wordSize {
		return 0, false
	}
	var v uint64
	for i := wordSize - 1; i >= 0; i-- {
		v = v<<8 | uint64(data[i])
	}
	return v, true
}
