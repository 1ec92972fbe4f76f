// regs_amd64.go - contiguous register bank layout for x86_64, matching
// the kernel's struct user_regs_struct / NT_PRSTATUS layout exactly:
// r15, r14, r13, r12, rbp, rbx, r11, r10, r9, r8, rax, rcx, rdx,
// rsi, rdi, orig_rax, rip, cs, eflags, rsp, ss, fs_base, gs_base, ds, es,
// fs, gs — 27 contiguous 8-byte fields.

package godbg

import "encoding/binary"

var amd64RegOrder = []string{
	"r15", "r14", "r13", "r12", "rbp", "rbx", "r11", "r10",
	"r9", "r8", "rax", "rcx", "rdx", "rsi", "rdi", "orig_rax",
	"rip", "cs", "eflags", "rsp", "ss", "fs_base", "gs_base",
	"ds", "es", "fs", "gs",
}

const amd64RegBankSize = len(amd64RegOrder) * 8

func decodeAMD64Regs(raw []byte) map[string]uint64 {
	values := make(map[string]uint64, len(amd64RegOrder))
	for i, name := range amd64RegOrder {
		off := i * 8
		if off+8 > len(raw) {
			break
		}
		values[name] = binary.LittleEndian.Uint64(raw[off : off+8])
	}
	return values
}

func encodeAMD64Regs(values map[string]uint64) []byte {
	raw := make([]byte, amd64RegBankSize)
	for i, name := range amd64RegOrder {
		binary.LittleEndian.PutUint64(raw[i*8:i*8+8], values[name])
	}
	return raw
}
