package godbg

import "testing"

// ---------------------------------------------------------------------------
// ModRM addressing length
// ---------------------------------------------------------------------------

func TestModRMAddrLength(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want int
		ok   bool
	}{
		{"empty", nil, 0, false},
		{"register-direct mod=3", []byte{0xC0}, 0, true},
		{"disp8 mod=1", []byte{0x45, 0x10}, 1, true},
		{"disp32 mod=2", []byte{0x85, 0x10, 0x20, 0x30, 0x40}, 4, true},
		{"mod=0 rm=5 rip-relative disp32", []byte{0x05, 0, 0, 0, 0}, 4, true},
		{"SIB no base (mod=0, rm=4, base=5)", []byte{0x04, 0x25, 0, 0, 0, 0}, 5, true},
		{"SIB with base (mod=0, rm=4, base!=5)", []byte{0x04, 0x03}, 1, true},
		{"SIB truncated", []byte{0x04}, 0, false},
		{"mod=0 rm=0 register-indirect, no extra", []byte{0x00}, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := modRMAddrLength(tc.code)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Errorf("length = %d, want %d", got, tc.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// CALL classification
// ---------------------------------------------------------------------------

func TestClassifyCallX86(t *testing.T) {
	tests := []struct {
		name       string
		code       []byte
		wantKind   CallKind
		wantLength int
	}{
		{"direct call rel32", []byte{0xE8, 0x01, 0x02, 0x03, 0x04}, CallDirect, 5},
		{"direct call truncated", []byte{0xE8, 0x01}, NotCall, 0},
		{"indirect call reg (FF /2)", []byte{0xFF, 0xD0}, CallIndirect, 2},
		{"indirect call [mem] disp8 (FF /2)", []byte{0xFF, 0x50, 0x08}, CallIndirect, 3},
		{"FF /6 is PUSH, not CALL", []byte{0xFF, 0xF0}, NotCall, 0},
		{"unrelated opcode", []byte{0x90}, NotCall, 0},
		{"empty", nil, NotCall, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kind, length := classifyCallX86(tc.code)
			if kind != tc.wantKind {
				t.Errorf("kind = %v, want %v", kind, tc.wantKind)
			}
			if length != tc.wantLength {
				t.Errorf("length = %d, want %d", length, tc.wantLength)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// RET recognition
// ---------------------------------------------------------------------------

func TestIsReturnX86(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want bool
	}{
		{"near ret", []byte{0xC3}, true},
		{"far ret", []byte{0xCB}, true},
		{"near ret imm16", []byte{0xC2, 0x08, 0x00}, true},
		{"far ret imm16", []byte{0xCA, 0x08, 0x00}, true},
		{"not a ret", []byte{0x90}, false},
		{"empty", nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := isReturnX86(tc.code); got != tc.want {
				t.Errorf("isReturnX86(%x) = %v, want %v", tc.code, got, tc.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Preamble-state window scan
// ---------------------------------------------------------------------------

func TestPreambleStateX86(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want PreambleStage
	}{
		{"mov esp,ebp exact window", []byte{0x89, 0xE5, 0x90, 0x90}, PreambleMovSPBP},
		{"push rbp byte present", []byte{0x55, 0x48, 0x89, 0xE5}, PreamblePushBP},
		{"neither present", []byte{0x90, 0x90, 0x90, 0x90}, PreambleNone},
		{"empty", nil, PreambleNone},
		{"mov-sp-bp takes priority over a later 0x55", []byte{0x89, 0xE5, 0x55, 0x90}, PreambleMovSPBP},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := preambleStateX86(tc.code); got != tc.want {
				t.Errorf("preambleStateX86(%x) = %v, want %v", tc.code, got, tc.want)
			}
		})
	}
}
