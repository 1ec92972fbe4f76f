// arch_amd64.go - x86_64 capability table, including the sub-register
// aliases (rsi/esi/si/sil) the Register View needs. Registers are listed
// here by family; the contiguous PTRACE_GETREGSET(NT_PRSTATUS) bank
// order lives in regs_amd64.go.

package godbg

type amd64Arch struct{}

func (amd64Arch) Name() string     { return "amd64" }
func (amd64Arch) WordSize() int    { return 8 }
func (amd64Arch) IPRegister() string { return "rip" }
func (amd64Arch) SPRegister() string { return "rsp" }
func (amd64Arch) BPRegister() string { return "rbp" }
func (amd64Arch) BreakpointSize() int { return 1 }
func (amd64Arch) HardwareSlots() int  { return 4 }

func (amd64Arch) InstallBreakpoint(original uint64) uint64 {
	return (original &^ 0xFF) | 0xCC
}

func (amd64Arch) ClassifyCall(code []byte) (CallKind, int) { return classifyCallX86(code) }
func (amd64Arch) IsReturn(code []byte) bool                { return isReturnX86(code) }
func (amd64Arch) PreambleState(code []byte) PreambleStage  { return preambleStateX86(code) }

// gpRegister64 describes one 64-bit general-purpose register with its
// 32/16/8-bit sub-register aliases, matching x86_64's rax/eax/ax/al family.
type gpRegister64 struct {
	name  string
	low32 string
	low16 string
	low8  string
}

var amd64GPRegs = []gpRegister64{
	{"rax", "eax", "ax", "al"},
	{"rbx", "ebx", "bx", "bl"},
	{"rcx", "ecx", "cx", "cl"},
	{"rdx", "edx", "dx", "dl"},
	{"rsi", "esi", "si", "sil"},
	{"rdi", "edi", "di", "dil"},
	{"rbp", "ebp", "bp", "bpl"},
	{"rsp", "esp", "sp", "spl"},
	{"r8", "r8d", "r8w", "r8b"},
	{"r9", "r9d", "r9w", "r9b"},
	{"r10", "r10d", "r10w", "r10b"},
	{"r11", "r11d", "r11w", "r11b"},
	{"r12", "r12d", "r12w", "r12b"},
	{"r13", "r13d", "r13w", "r13b"},
	{"r14", "r14d", "r14w", "r14b"},
	{"r15", "r15d", "r15w", "r15b"},
}

func (amd64Arch) RegisterFields() []RegisterField {
	var fields []RegisterField
	for _, r := range amd64GPRegs {
		fields = append(fields,
			RegisterField{Name: r.name, BitWidth: 64},
			RegisterField{Name: r.low32, BitWidth: 32, Parent: r.name, LowBytes: 4},
			RegisterField{Name: r.low16, BitWidth: 16, Parent: r.name, LowBytes: 2},
			RegisterField{Name: r.low8, BitWidth: 8, Parent: r.name, LowBytes: 1},
		)
	}
	fields = append(fields,
		RegisterField{Name: "rip", BitWidth: 64},
		RegisterField{Name: "eflags", BitWidth: 64},
		RegisterField{Name: "orig_rax", BitWidth: 64},
		RegisterField{Name: "cs", BitWidth: 64},
		RegisterField{Name: "ss", BitWidth: 64},
		RegisterField{Name: "ds", BitWidth: 64},
		RegisterField{Name: "es", BitWidth: 64},
		RegisterField{Name: "fs", BitWidth: 64},
		RegisterField{Name: "gs", BitWidth: 64},
		RegisterField{Name: "fs_base", BitWidth: 64},
		RegisterField{Name: "gs_base", BitWidth: 64},
	)
	return fields
}
