// vmap.go - VMAP Provider: a snapshot of
// a tracee's virtual-memory regions parsed from /proc/<pid>/maps, used
// only for the membership test the Stack Unwinder needs.

package godbg

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// VMapEntry is one [Start, End) region of a tracee's address space.
type VMapEntry struct {
	Start, End uint64
	Perms      string
	Offset     uint64
	Device     string
	Inode      uint64
	Path       string
}

// Contains reports whether addr falls within [Start, End).
func (e VMapEntry) Contains(addr uint64) bool { return addr >= e.Start && addr < e.End }

// VMap is an immutable snapshot of a process's memory map.
type VMap struct {
	entries []VMapEntry
}

// Contains reports whether any region in the snapshot contains addr.
func (m *VMap) Contains(addr uint64) bool {
	if m == nil {
		return false
	}
	for _, e := range m.entries {
		if e.Contains(addr) {
			return true
		}
	}
	return false
}

// Entries returns the parsed regions in file order.
func (m *VMap) Entries() []VMapEntry { return m.entries }

// LoadVMAP parses /proc/<pid>/maps into a VMap snapshot.
func LoadVMAP(pid int) (*VMap, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, fmt.Errorf("vmap: %w", err)
	}
	defer f.Close()
	return parseVMAP(f)
}

func parseVMAP(r io.Reader) (*VMap, error) {
	scanner := bufio.NewScanner(r)
	var entries []VMapEntry
	for scanner.Scan() {
		entry, ok := parseVMAPLine(scanner.Text())
		if ok {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vmap: %w", err)
	}
	return &VMap{entries: entries}, nil
}

// parseVMAPLine parses one "/proc/pid/maps" line:
// start-end perms offset dev inode path
func parseVMAPLine(line string) (VMapEntry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return VMapEntry{}, false
	}
	bounds := strings.SplitN(fields[0], "-", 2)
	if len(bounds) != 2 {
		return VMapEntry{}, false
	}
	start, err := strconv.ParseUint(bounds[0], 16, 64)
	if err != nil {
		return VMapEntry{}, false
	}
	end, err := strconv.ParseUint(bounds[1], 16, 64)
	if err != nil {
		return VMapEntry{}, false
	}
	offset, _ := strconv.ParseUint(fields[2], 16, 64)
	inode, _ := strconv.ParseUint(fields[4], 10, 64)

	entry := VMapEntry{
		Start:  start,
		End:    end,
		Perms:  fields[1],
		Offset: offset,
		Device: fields[3],
		Inode:  inode,
	}
	if len(fields) >= 6 {
		entry.Path = strings.Join(fields[5:], " ")
	}
	return entry, true
}
