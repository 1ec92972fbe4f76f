// regs_386.go - contiguous register bank layout for i386, matching the
// kernel's 32-bit struct user_regs_struct: ebx, ecx, edx, esi, edi, ebp,
// eax, xds, xes, xfs, xgs, orig_eax, eip, xcs, eflags, esp, xss — 17
// contiguous 4-byte fields. Field names are normalized to the plain
// segment-register names (ds/es/fs/gs) used by arch_386.go's register
// table rather than the kernel's historical "x" prefix.

package godbg

import "encoding/binary"

var i386RegOrder = []string{
	"ebx", "ecx", "edx", "esi", "edi", "ebp", "eax",
	"ds", "es", "fs", "gs", "orig_eax", "eip", "cs", "eflags", "esp", "ss",
}

const i386RegBankSize = len(i386RegOrder) * 4

func decodeI386Regs(raw []byte) map[string]uint64 {
	values := make(map[string]uint64, len(i386RegOrder))
	for i, name := range i386RegOrder {
		off := i * 4
		if off+4 > len(raw) {
			break
		}
		values[name] = uint64(binary.LittleEndian.Uint32(raw[off : off+4]))
	}
	return values
}

func encodeI386Regs(values map[string]uint64) []byte {
	raw := make([]byte, i386RegBankSize)
	for i, name := range i386RegOrder {
		binary.LittleEndian.PutUint32(raw[i*4:i*4+4], uint32(values[name]))
	}
	return raw
}
