// decode.go - minimal x86 instruction-length decoding for the CALL/RET
// classification the Stepping Engine needs. This is deliberately not a
// disassembler: it decodes just enough of a ModRM/SIB byte to compute an
// instruction's length, covering only the two opcode families Next and
// Finish care about.

package godbg

// modRMAddrLength returns the number of bytes the addressing form of a
// ModRM byte consumes, NOT including the ModRM byte itself: the SIB byte
// (if rm==4) and any displacement. code[0] must be the ModRM byte.
func modRMAddrLength(code []byte) (int, bool) {
	if len(code) == 0 {
		return 0, false
	}
	modrm := code[0]
	mod := modrm >> 6
	rm := modrm & 7

	if mod == 3 {
		return 0, true // register-direct
	}

	extra := 0
	base := rm
	if rm == 4 {
		if len(code) < 2 {
			return 0, false
		}
		sib := code[1]
		base = sib & 7
		extra++
	}

	switch mod {
	case 0:
		if rm == 5 || (rm == 4 && base == 5) {
			extra += 4 // disp32, no base register (or RIP-relative for rm==5)
		}
	case 1:
		extra++ // disp8
	case 2:
		extra += 4 // disp32
	}
	return extra, true
}

// classifyCallX86 recognizes CALL encodings shared by amd64 and i386:
// 0xE8 rel32 (direct) and 0xFF /2 (indirect, ModRM reg field == 2).
func classifyCallX86(code []byte) (CallKind, int) {
	if len(code) == 0 {
		return NotCall, 0
	}
	switch code[0] {
	case 0xE8:
		if len(code) < 5 {
			return NotCall, 0
		}
		return CallDirect, 5
	case 0xFF:
		if len(code) < 2 {
			return NotCall, 0
		}
		modrm := code[1]
		regField := (modrm >> 3) & 7
		if regField != 2 {
			return NotCall, 0
		}
		extra, ok := modRMAddrLength(code[1:])
		if !ok {
			return NotCall, 0
		}
		length := 2 + extra // opcode byte + ModRM byte + addressing bytes
		if len(code) < length {
			return NotCall, 0
		}
		return CallIndirect, length
	}
	return NotCall, 0
}

// isReturnX86 implementsRET opcode recognition: 0xC3, 0xCB
// (no operands) and 0xC2, 0xCA (imm16 operand, not needed to recognize
// the opcode itself).
func isReturnX86(code []byte) bool {
	if len(code) == 0 {
		return false
	}
	switch code[0] {
	case 0xC3, 0xCB, 0xC2, 0xCA:
		return true
	}
	return false
}

// preambleStateX86 classifies the 4-byte window at the instruction
// pointer: whichever of 0x55 (push) or 0x89 0xE5 (the mov, possibly after
// a REX prefix) occurs first in the window decides the stage. This is a
// literal byte-window scan, known to be prone to false positives on
// immediates that happen to contain 0x55 or 0x89 0xE5; we do not attempt
// a stricter decode here.
func preambleStateX86(code []byte) PreambleStage {
	for i, b := range code {
		if b == 0x55 {
			return PreamblePushBP
		}
		if b == 0x89 && i+1 < len(code) && code[i+1] == 0xE5 {
			return PreambleMovSPBP
		}
	}
	return PreambleNone
}
