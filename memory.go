// memory.go - Memory View: address-indexed byte access over a tracee,
// coalescing word-aligned PeekData/PokeData calls over real
// PTRACE_PEEKDATA/POKEDATA words.

package godbg

import "encoding/binary"

// MemoryView is a thin, stopped-thread-scoped adapter over a Gateway.
type MemoryView struct {
	loop *ControlLoop
	tid  int
}

func newMemoryView(loop *ControlLoop, tid int) *MemoryView {
	return &MemoryView{loop: loop, tid: tid}
}

// Read returns up to size bytes starting at addr, coalescing the
// necessary number of 8-byte PEEKDATA words. Partial results are
// returned if a word read fails partway through (mirroring the
// Unwinder's "abort gracefully" policy).
func (v *MemoryView) Read(addr uint64, size int) ([]byte, error) {
	if err := v.loop.groupStopForRead(); err != nil {
		return nil, err
	}
	return readMemory(v.loop.gateway, v.tid, addr, size)
}

// Write pokes data at addr, read-modify-writing the boundary words so
// partial-word writes never clobber neighboring bytes.
func (v *MemoryView) Write(addr uint64, data []byte) error {
	if err := v.loop.groupStopForRead(); err != nil {
		return err
	}
	return writeMemory(v.loop.gateway, v.tid, addr, data)
}

func readMemory(gw Gateway, tid int, addr uint64, size int) ([]byte, error) {
	if size < 0 {
		return nil, &ValueError{Msg: "negative read size"}
	}
	if size == 0 {
		return nil, nil
	}
	base := addr &^ 7

	// Coalesce word-aligned reads: walk from the aligned base word,
	// extracting only the requested byte range from each word.
	out := make([]byte, 0, size+8)
	cur := base
	for len(out) < size+int(addr-base) {
		word, err := gw.PeekData(tid, cur)
		if err != nil {
			// Partial read: trim to what was requested and already filled.
			if len(out) > int(addr-base) {
				return out[addr-base:], nil
			}
			return nil, newGatewayError("peek_data", tid, err)
		}
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], word)
		out = append(out, buf[:]...)
		cur += 8
	}
	end := int(addr-base) + size
	if end > len(out) {
		end = len(out)
	}
	return out[addr-base : end], nil
}

func writeMemory(gw Gateway, tid int, addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	base := addr &^ 7
	end := addr + uint64(len(data))
	alignedEnd := (end + 7) &^ 7

	// Read the full aligned span first so boundary bytes outside [addr,
	// addr+len(data)) are preserved.
	span, err := readMemory(gw, tid, base, int(alignedEnd-base))
	if err != nil {
		return err
	}
	copy(span[addr-base:], data)

	for off := uint64(0); off < uint64(len(span)); off += 8 {
		word := binary.LittleEndian.Uint64(span[off : off+8])
		if err := gw.PokeData(tid, base+off, word); err != nil {
			return newGatewayError("poke_data", tid, err)
		}
	}
	return nil
}
