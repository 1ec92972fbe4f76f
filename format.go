// format.go - register/breakpoint formatting: pure presentation helpers
// over tablewriter for tabular CLI output, no control-flow semantics.

package godbg

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
)

// FormatRegisters renders a register bank as an aligned two-column table
// (name, hex value), in the architecture's canonical field order.
func FormatRegisters(w io.Writer, regs *Registers) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Register", "Value"})
	for _, f := range regs.Arch.RegisterFields() {
		val, ok := regs.Get(f.Name)
		if !ok {
			continue
		}
		table.Append([]string{f.Name, fmt.Sprintf("0x%x", val)})
	}
	table.Render()
}

// FormatBreakpoints renders every breakpoint in engine as a table sorted
// by address.
func FormatBreakpoints(w io.Writer, engine *BreakpointEngine) {
	engine.mu.Lock()
	bps := make([]*Breakpoint, 0, len(engine.byAddr))
	for _, bp := range engine.byAddr {
		bps = append(bps, bp)
	}
	engine.mu.Unlock()

	sort.Slice(bps, func(i, j int) bool { return bps[i].Addr < bps[j].Addr })

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Addr", "Enabled", "Hardware", "HitCount", "Condition"})
	for _, bp := range bps {
		table.Append([]string{
			fmt.Sprintf("0x%x", bp.Addr),
			fmt.Sprintf("%v", bp.Enabled),
			fmt.Sprintf("%v", bp.Hardware),
			fmt.Sprintf("%d", bp.HitCount),
			FormatCondition(bp.Condition),
		})
	}
	table.Render()
}

// FormatBacktrace renders an unwound call stack as a two-column table
// (frame index, return address), frame 0 first.
func FormatBacktrace(w io.Writer, trace []uint64) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Frame", "Address"})
	for i, addr := range trace {
		table.Append([]string{fmt.Sprintf("#%d", i), fmt.Sprintf("0x%x", addr)})
	}
	table.Render()
}
