// debugregs_amd64.go - x86_64 PTRACE_PEEKUSER/POKEUSER offsets for the
// u_debugreg[8] array in struct user (linux/elf.h + sys/user.h), used by
// the Breakpoint Engine's hardware-breakpoint path. These offsets are a
// fixed part of the x86_64 ptrace ABI, named as constants here rather
// than a struct-of-uintptr table per arch (only amd64 exposes debug
// registers today; i386/arm64 hardware breakpoints are future hooks).

package godbg

const (
	debugRegisterBase = 848 // offsetof(struct user, u_debugreg[0])
	debugRegisterSize = 8
	dr7Index          = 7
)

// debugRegisterOffsets returns the PEEKUSER/POKEUSER offsets for DR<slot>
// and DR7 (the control register) on x86_64.
func debugRegisterOffsets(slot int) (drOffset, dr7Offset uintptr) {
	drOffset = uintptr(debugRegisterBase + slot*debugRegisterSize)
	dr7Offset = uintptr(debugRegisterBase + dr7Index*debugRegisterSize)
	return
}
