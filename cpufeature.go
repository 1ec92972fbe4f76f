// cpufeature.go - CPU-feature probing for FP register layout selection.
// CPU-feature detection is treated as an external collaborator,
// specified only by the contract it must uphold; we model that
// contract as the CPUFeatureProber interface below and inject a default
// /proc/cpuinfo-based implementation, rather than hard-wiring the probe
// into the Gateway or Control Loop. This state is global and determined
// once at startup — ProbeOnce does exactly that and memoizes the result.

package godbg

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// CPUFeatureProber reports which FP register layout the running CPU (and
// kernel XSAVE support) implies.
type CPUFeatureProber interface {
	Probe() (FPLayout, error)
}

// ProcCPUInfoProber reads /proc/cpuinfo's "flags" line, looking for
// avx512, avx, and xsave.
type ProcCPUInfoProber struct{}

func (ProcCPUInfoProber) Probe() (FPLayout, error) {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return FPLayoutLegacy, fmt.Errorf("cpufeature: %w", err)
	}
	defer f.Close()

	var flags map[string]bool
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "flags") {
			continue
		}
		_, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		flags = make(map[string]bool)
		for _, f := range strings.Fields(rest) {
			flags[f] = true
		}
		break
	}
	if err := scanner.Err(); err != nil {
		return FPLayoutLegacy, fmt.Errorf("cpufeature: %w", err)
	}
	if flags == nil {
		return FPLayoutLegacy, fmt.Errorf("cpufeature: no flags line found in /proc/cpuinfo")
	}
	if !flags["xsave"] {
		return FPLayoutLegacy, fmt.Errorf("cpufeature: xsave not supported by this CPU")
	}
	switch {
	case flags["avx512f"]:
		return FPLayoutAVX512, nil
	case flags["avx"]:
		return FPLayoutAVX, nil
	default:
		return FPLayoutLegacy, nil
	}
}

var (
	cpuFeatureOnce   sync.Once
	cpuFeatureResult FPLayout
	cpuFeatureErr    error
)

// ProbeOnce runs prober.Probe() exactly once per process and memoizes the
// result, matching the process-wide, startup-time nature of this state
//.
func ProbeOnce(prober CPUFeatureProber) (FPLayout, error) {
	cpuFeatureOnce.Do(func() {
		cpuFeatureResult, cpuFeatureErr = prober.Probe()
	})
	return cpuFeatureResult, cpuFeatureErr
}
