// registers.go - Register View: named register access keyed by an
// architecture's capability table, including sub-register aliasing
// (rsi/esi/si/sil). A thin adapter over the currently stopped thread,
// doing a table-driven lookup against Arch.RegisterFields() rather than
// a hand-written switch per architecture.

package godbg

// Registers holds the raw (non-aliased) register values for one stopped
// thread, keyed by the parent register name a RegisterField chain
// bottoms out at (e.g. "rsi", never "esi"/"si"/"sil" directly).
type Registers struct {
	Arch   Arch
	Values map[string]uint64
}

func newRegisters(arch Arch) *Registers {
	return &Registers{Arch: arch, Values: make(map[string]uint64)}
}

func (r *Registers) fieldFor(name string) (RegisterField, bool) {
	for _, f := range r.Arch.RegisterFields() {
		if f.Name == name {
			return f, true
		}
	}
	return RegisterField{}, false
}

// Get returns a named register's value, resolving sub-register aliases
// by masking the parent's stored value.
func (r *Registers) Get(name string) (uint64, bool) {
	f, ok := r.fieldFor(name)
	if !ok {
		return 0, false
	}
	if f.Parent == "" {
		v, ok := r.Values[f.Name]
		return v, ok
	}
	parent, ok := r.Values[f.Parent]
	if !ok {
		return 0, false
	}
	if f.LowBytes == 0 {
		return parent, true
	}
	mask := uint64(1)<<(uint(f.LowBytes)*8) - 1
	return parent & mask, true
}

// Set writes a named register's value, merging sub-register aliases into
// the parent's stored value without disturbing its high bytes.
func (r *Registers) Set(name string, value uint64) bool {
	f, ok := r.fieldFor(name)
	if !ok {
		return false
	}
	if f.Parent == "" {
		r.Values[f.Name] = value
		return true
	}
	if f.LowBytes == 0 {
		r.Values[f.Parent] = value
		return true
	}
	mask := uint64(1)<<(uint(f.LowBytes)*8) - 1
	r.Values[f.Parent] = (r.Values[f.Parent] &^ mask) | (value & mask)
	return true
}

// IP, SP, BP return the architecture's instruction pointer, stack
// pointer, and frame pointer register values.
func (r *Registers) IP() uint64 { v, _ := r.Get(r.Arch.IPRegister()); return v }
func (r *Registers) SP() uint64 { v, _ := r.Get(r.Arch.SPRegister()); return v }
func (r *Registers) BP() uint64 { v, _ := r.Get(r.Arch.BPRegister()); return v }

// SetIP sets the instruction pointer register.
func (r *Registers) SetIP(addr uint64) { r.Set(r.Arch.IPRegister(), addr) }

// RegisterView is the thin, stopped-thread-scoped adapter over a Gateway
// used by callers that want named register access without touching the
// Gateway directly. It refuses to operate unless the owning Control Loop
// reports the thread stopped (views refuse to operate on a running
// tracee unless auto-interrupt is enabled), mirroring the
// "weak back-reference + borrowed handle" ownership model in this
// package.
type RegisterView struct {
	loop *ControlLoop
	tid  int
}

func newRegisterView(loop *ControlLoop, tid int) *RegisterView {
	return &RegisterView{loop: loop, tid: tid}
}

// Get reads a named register from the thread's cached register bank,
// auto-interrupting first if the loop is configured to do so.
func (v *RegisterView) Get(name string) (uint64, error) {
	regs, err := v.loop.regsForRead(v.tid)
	if err != nil {
		return 0, err
	}
	val, ok := regs.Get(name)
	if !ok {
		return 0, &ValueError{Msg: "unknown register " + name}
	}
	return val, nil
}

// Set writes a named register and flushes it to the kernel immediately.
func (v *RegisterView) Set(name string, value uint64) error {
	return v.loop.setRegister(v.tid, name, value)
}

// All returns every named register exposed by the thread's architecture.
func (v *RegisterView) All() (map[string]uint64, error) {
	regs, err := v.loop.regsForRead(v.tid)
	if err != nil {
		return nil, err
	}
	out := make(map[string]uint64)
	for _, f := range regs.Arch.RegisterFields() {
		if val, ok := regs.Get(f.Name); ok {
			out[f.Name] = val
		}
	}
	return out, nil
}
