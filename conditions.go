// conditions.go - breakpoint condition evaluation, including scripted
// conditions: a source/op/value comparison evaluated against the
// RegisterView/MemoryView of a real ptraced thread, with the hit count
// passed in as a plain function parameter.

package godbg

import "fmt"

// evaluateCondition reports whether cond holds for the stopped thread
// behind regs/mem. A nil condition is always satisfied (unconditional
// breakpoint). Register/memory read failures are treated as "not met"
// rather than propagated: an unknown register should never fire.
func evaluateCondition(cond *BreakpointCondition, regs *RegisterView, mem *MemoryView, hitCount uint64) bool {
	if cond == nil {
		return true
	}
	if cond.Source == CondSourceScript {
		return evaluateScriptCondition(cond.Script, regs, mem, hitCount)
	}

	var actual uint64
	switch cond.Source {
	case CondSourceRegister:
		val, err := regs.Get(cond.RegName)
		if err != nil {
			return false
		}
		actual = val
	case CondSourceMemory:
		data, err := mem.Read(cond.MemAddr, 1)
		if err != nil || len(data) == 0 {
			return false
		}
		actual = uint64(data[0])
	case CondSourceHitCount:
		actual = hitCount
	}
	return compareValues(actual, cond.Op, cond.Value)
}

func compareValues(actual uint64, op ConditionOp, expected uint64) bool {
	switch op {
	case CondOpEqual:
		return actual == expected
	case CondOpNotEqual:
		return actual != expected
	case CondOpLess:
		return actual < expected
	case CondOpGreater:
		return actual > expected
	case CondOpLessEqual:
		return actual <= expected
	case CondOpGreaterEqual:
		return actual >= expected
	default:
		return false
	}
}

// FormatCondition renders cond for display.
func FormatCondition(cond *BreakpointCondition) string {
	if cond == nil {
		return ""
	}
	if cond.Source == CondSourceScript {
		return "script(...)"
	}
	var lhs string
	switch cond.Source {
	case CondSourceRegister:
		lhs = cond.RegName
	case CondSourceMemory:
		lhs = fmt.Sprintf("[0x%x]", cond.MemAddr)
	case CondSourceHitCount:
		lhs = "hitcount"
	}
	var opStr string
	switch cond.Op {
	case CondOpEqual:
		opStr = "=="
	case CondOpNotEqual:
		opStr = "!="
	case CondOpLess:
		opStr = "<"
	case CondOpGreater:
		opStr = ">"
	case CondOpLessEqual:
		opStr = "<="
	case CondOpGreaterEqual:
		opStr = ">="
	}
	return fmt.Sprintf("%s%s0x%x", lhs, opStr, cond.Value)
}
