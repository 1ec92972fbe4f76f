package godbg

import (
	"encoding/binary"
	"testing"
)

func encodeA64(insn uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, insn)
	return buf
}

func TestArm64ClassifyCall(t *testing.T) {
	a := arm64Arch{}
	tests := []struct {
		name     string
		insn     uint32
		wantKind CallKind
	}{
		{"BL", 0x94000010, CallDirect},
		{"BLR x0", 0xD63F0000, CallIndirect},
		{"RET is not a call", 0xD65F03C0, NotCall},
		{"NOP", 0xD503201F, NotCall},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kind, length := a.ClassifyCall(encodeA64(tc.insn))
			if kind != tc.wantKind {
				t.Errorf("ClassifyCall(%#08x) kind = %v, want %v", tc.insn, kind, tc.wantKind)
			}
			if tc.wantKind != NotCall && length != 4 {
				t.Errorf("ClassifyCall(%#08x) length = %d, want 4", tc.insn, length)
			}
		})
	}
}

func TestArm64IsReturn(t *testing.T) {
	a := arm64Arch{}
	if !a.IsReturn(encodeA64(0xD65F03C0)) { // ret x30
		t.Errorf("IsReturn(ret x30) = false, want true")
	}
	if a.IsReturn(encodeA64(0xD503201F)) { // nop
		t.Errorf("IsReturn(nop) = true, want false")
	}
	if a.IsReturn([]byte{0x00}) {
		t.Errorf("IsReturn on a truncated buffer = true, want false")
	}
}

func TestArm64PreambleStateAlwaysNone(t *testing.T) {
	a := arm64Arch{}
	if got := a.PreambleState(encodeA64(0x94000010)); got != PreambleNone {
		t.Errorf("PreambleState = %v, want PreambleNone (no aarch64 prologue idiom recognized)", got)
	}
}

func TestArm64RegisterFieldNames(t *testing.T) {
	a := arm64Arch{}
	fields := a.RegisterFields()
	byName := make(map[string]bool)
	for _, f := range fields {
		byName[f.Name] = true
	}
	for _, want := range []string{"x0", "x29", "x30", "sp", "pc", "pstate"} {
		if !byName[want] {
			t.Errorf("RegisterFields() missing %q", want)
		}
	}
}

func TestArm64InstallBreakpoint(t *testing.T) {
	a := arm64Arch{}
	original := uint64(0x1122334455667788)
	patched := a.InstallBreakpoint(original)
	if patched&0xFFFFFFFF != 0xD4200000 {
		t.Errorf("low 32 bits = %#x, want the BRK #0 encoding 0xd4200000", patched&0xFFFFFFFF)
	}
	if patched>>32 != original>>32 {
		t.Errorf("high 32 bits disturbed: got %#x, want %#x", patched>>32, original>>32)
	}
}
