// regs_arm64.go - contiguous register bank layout for aarch64, matching
// the kernel's struct user_pt_regs: x0..x30 (31 registers), sp, pc,
// pstate — 34 contiguous 8-byte fields.

package godbg

import "encoding/binary"

func arm64RegOrder() []string {
	order := make([]string, 0, 34)
	for i := 0; i <= 30; i++ {
		order = append(order, xRegName(i))
	}
	return append(order, "sp", "pc", "pstate")
}

var arm64RegBankOrder = arm64RegOrder()

const arm64RegBankSize = 34 * 8

func decodeARM64Regs(raw []byte) map[string]uint64 {
	values := make(map[string]uint64, len(arm64RegBankOrder))
	for i, name := range arm64RegBankOrder {
		off := i * 8
		if off+8 > len(raw) {
			break
		}
		values[name] = binary.LittleEndian.Uint64(raw[off : off+8])
	}
	return values
}

func encodeARM64Regs(values map[string]uint64) []byte {
	raw := make([]byte, arm64RegBankSize)
	for i, name := range arm64RegBankOrder {
		binary.LittleEndian.PutUint64(raw[i*8:i*8+8], values[name])
	}
	return raw
}
