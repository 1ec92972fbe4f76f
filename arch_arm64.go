// arch_arm64.go - aarch64 register-shape hook. This is a register-layout-complete
// but prologue-heuristic-partial Arch: fixed 4-byte instruction width
// makes BL/BLR/RET classification exact (no ModRM ambiguity to worry
// about), but PreambleState has no aarch64 prologue idiom to recognize
// (see its doc comment) — the documented limitation for this hook-level
// target.

package godbg

import (
	"encoding/binary"
	"strconv"
)

type arm64Arch struct{}

func (arm64Arch) Name() string       { return "arm64" }
func (arm64Arch) WordSize() int      { return 8 }
func (arm64Arch) IPRegister() string { return "pc" }
func (arm64Arch) SPRegister() string { return "sp" }
func (arm64Arch) BPRegister() string { return "x29" } // frame pointer register (fp)
func (arm64Arch) BreakpointSize() int { return 4 }

// HardwareSlots returns 0: aarch64 hardware breakpoints are configured via
// NT_ARM_HW_BREAK register sets, not the x86 DR0-DR3/PEEKUSER mechanism
// debugregs_amd64.go implements, so this hook-level target has none wired.
func (arm64Arch) HardwareSlots() int { return 0 }

// InstallBreakpoint replaces the low 4 bytes of the 64-bit word read at an
// address with BRK #0 (0xD4200000), the aarch64 software-breakpoint trap.
func (arm64Arch) InstallBreakpoint(original uint64) uint64 {
	return (original &^ 0xFFFFFFFF) | 0xD4200000
}

const arm64BLMask = 0xFC000000
const arm64BLOpcode = 0x94000000
const arm64BLRMask = 0xFFFFFC1F
const arm64BLROpcode = 0xD63F0000
const arm64RETMask = 0xFFFFFC1F
const arm64RETOpcode = 0xD65F0000

func (arm64Arch) ClassifyCall(code []byte) (CallKind, int) {
	if len(code) < 4 {
		return NotCall, 0
	}
	insn := binary.LittleEndian.Uint32(code)
	if insn&arm64BLMask == arm64BLOpcode {
		return CallDirect, 4
	}
	if insn&arm64BLRMask == arm64BLROpcode {
		return CallIndirect, 4
	}
	return NotCall, 0
}

func (arm64Arch) IsReturn(code []byte) bool {
	if len(code) < 4 {
		return false
	}
	insn := binary.LittleEndian.Uint32(code)
	return insn&arm64RETMask == arm64RETOpcode
}

// PreambleState on aarch64 has no push/mov-sp-bp prologue idiom; frame
// records are built with "stp x29, x30, [sp, #-N]!" followed by
// "mov x29, sp", which we do not special-case here (documented gap for
// this hook-level target — seeanalogous x86 open question).
func (arm64Arch) PreambleState(code []byte) PreambleStage { return PreambleNone }

func (arm64Arch) RegisterFields() []RegisterField {
	fields := make([]RegisterField, 0, 34)
	for i := 0; i <= 30; i++ {
		fields = append(fields, RegisterField{Name: xRegName(i), BitWidth: 64})
	}
	fields = append(fields,
		RegisterField{Name: "sp", BitWidth: 64},
		RegisterField{Name: "pc", BitWidth: 64},
		RegisterField{Name: "pstate", BitWidth: 64},
	)
	return fields
}

func xRegName(i int) string {
	switch i {
	case 29:
		return "x29" // fp
	case 30:
		return "x30" // lr
	default:
		return "x" + strconv.Itoa(i)
	}
}
