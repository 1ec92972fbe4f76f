// arch_386.go - i386 capability table: EAX/EBX/ECX/EDX/ESI/EDI/EBP/ESP/
// EIP/EFLAGS plus segment registers, with 16-bit aliases (ax, si, ...)
// for all eight GP registers and 8-bit aliases (al, bl, cl, dl) for
// eax/ebx/ecx/edx only.

package godbg

type i386Arch struct{}

func (i386Arch) Name() string       { return "386" }
func (i386Arch) WordSize() int      { return 4 }
func (i386Arch) IPRegister() string { return "eip" }
func (i386Arch) SPRegister() string { return "esp" }
func (i386Arch) BPRegister() string { return "ebp" }
func (i386Arch) BreakpointSize() int { return 1 }

// HardwareSlots returns 0: the debug-register offsets in
// debugregs_amd64.go are specific to the x86_64 struct user layout and do
// not apply to i386's, so hardware breakpoints are amd64-only here.
func (i386Arch) HardwareSlots() int { return 0 }

func (i386Arch) InstallBreakpoint(original uint64) uint64 {
	return (original &^ 0xFF) | 0xCC
}

func (i386Arch) ClassifyCall(code []byte) (CallKind, int) { return classifyCallX86(code) }
func (i386Arch) IsReturn(code []byte) bool                { return isReturnX86(code) }
func (i386Arch) PreambleState(code []byte) PreambleStage  { return preambleStateX86(code) }

// gpRegister32 describes one 32-bit GP register and its sub-register
// aliases. low8 is empty for esi/edi/ebp/esp: in 32-bit mode (no REX
// prefix available) those four have no byte-addressable form, unlike
// their amd64 sil/dil/bpl/spl counterparts.
type gpRegister32 struct {
	name  string // e.g. "eax"
	low16 string // "ax"
	low8  string // "al", or "" if this register has no 8-bit form
}

var i386GPRegs = []gpRegister32{
	{"eax", "ax", "al"},
	{"ebx", "bx", "bl"},
	{"ecx", "cx", "cl"},
	{"edx", "dx", "dl"},
	{"esi", "si", ""},
	{"edi", "di", ""},
	{"ebp", "bp", ""},
	{"esp", "sp", ""},
}

func (i386Arch) RegisterFields() []RegisterField {
	var fields []RegisterField
	for _, r := range i386GPRegs {
		fields = append(fields,
			RegisterField{Name: r.name, BitWidth: 32},
			RegisterField{Name: r.low16, BitWidth: 16, Parent: r.name, LowBytes: 2},
		)
		if r.low8 != "" {
			fields = append(fields, RegisterField{Name: r.low8, BitWidth: 8, Parent: r.name, LowBytes: 1})
		}
	}
	fields = append(fields,
		RegisterField{Name: "eip", BitWidth: 32},
		RegisterField{Name: "eflags", BitWidth: 32},
		RegisterField{Name: "cs", BitWidth: 16},
		RegisterField{Name: "ds", BitWidth: 16},
		RegisterField{Name: "es", BitWidth: 16},
		RegisterField{Name: "ss", BitWidth: 16},
		RegisterField{Name: "fs", BitWidth: 16},
		RegisterField{Name: "gs", BitWidth: 16},
	)
	return fields
}
