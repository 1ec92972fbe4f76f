// pipe.go - Pipe Manager: non-blocking reads from tracee
// stdin/stdout/stderr with timeout and delimiter primitives. Reads use a
// syscall.SetNonblock + EAGAIN/EWOULDBLOCK retry loop with a short sleep
// between polls, bounded by the caller's timeout budget.

package godbg

import (
	"bytes"
	"os"
	"syscall"
	"time"
)

// PipeSet holds the three file descriptors a spawned tracee's I/O is
// wired through.
type PipeSet struct {
	StdinWrite *os.File
	StdoutRead *os.File
	StderrRead *os.File
}

// PipeManager implements send/recv primitives over a
// PipeSet. Not safe for concurrent recv calls on the same stream; the
// Control Loop's single-controller-thread rule makes that unnecessary in
// practice.
type PipeManager struct {
	pipes  PipeSet
	closed bool
}

// NewPipeManager wraps an already-open PipeSet.
func NewPipeManager(pipes PipeSet) *PipeManager {
	return &PipeManager{pipes: pipes}
}

// Send writes data to the tracee's stdin.
func (p *PipeManager) Send(data []byte) error {
	if p.closed {
		return &BrokenPipe{Stream: "stdin", Err: os.ErrClosed}
	}
	_, err := p.pipes.StdinWrite.Write(data)
	if err != nil {
		return &BrokenPipe{Stream: "stdin", Err: err}
	}
	return nil
}

// Sendline writes data followed by a newline.
func (p *PipeManager) Sendline(data []byte) error {
	return p.Send(append(append([]byte{}, data...), '\n'))
}

// Recv reads at most n bytes from stdout across possibly multiple kernel
// reads, each guarded by the remaining timeout budget.
func (p *PipeManager) Recv(n int, timeout time.Duration) ([]byte, error) {
	return p.recvN(p.pipes.StdoutRead, "stdout", n, timeout)
}

// RecvErr is the stderr-symmetric variant of Recv.
func (p *PipeManager) RecvErr(n int, timeout time.Duration) ([]byte, error) {
	return p.recvN(p.pipes.StderrRead, "stderr", n, timeout)
}

func (p *PipeManager) recvN(f *os.File, stream string, n int, timeout time.Duration) ([]byte, error) {
	if n < 0 {
		return nil, &ValueError{Msg: "negative byte count"}
	}
	if p.closed {
		return nil, &BrokenPipe{Stream: stream, Err: os.ErrClosed}
	}
	fd := int(f.Fd())
	if err := syscall.SetNonblock(fd, true); err != nil {
		return nil, &BrokenPipe{Stream: stream, Err: err}
	}

	deadline := time.Now().Add(timeout)
	out := make([]byte, 0, n)
	buf := make([]byte, 4096)
	for len(out) < n {
		readLen := len(buf)
		if want := n - len(out); want < readLen {
			readLen = want
		}
		read, err := syscall.Read(fd, buf[:readLen])
		if read > 0 {
			out = append(out, buf[:read]...)
			continue
		}
		if read == 0 && err == nil {
			// EOF: return what has accumulated.
			return out, nil
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			if timeout > 0 && time.Now().After(deadline) {
				return out, &Timeout{Op: "recv:" + stream}
			}
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return out, &BrokenPipe{Stream: stream, Err: err}
		}
	}
	return out, nil
}

// Recvuntil reads one byte at a time, appending, until delim appears
// occurrences times; with drop set, the final delimiter is
// stripped from the result.
func (p *PipeManager) Recvuntil(delim []byte, occurrences int, drop bool, timeout time.Duration) ([]byte, error) {
	if occurrences <= 0 {
		return nil, &ValueError{Msg: "occurrences must be positive"}
	}
	return p.recvUntilOn(p.pipes.StdoutRead, "stdout", delim, occurrences, drop, 0, timeout)
}

func (p *PipeManager) recvUntilOn(f *os.File, stream string, delim []byte, occurrences int, drop bool, maxLen int, timeout time.Duration) ([]byte, error) {
	if p.closed {
		return nil, &BrokenPipe{Stream: stream, Err: os.ErrClosed}
	}
	fd := int(f.Fd())
	if err := syscall.SetNonblock(fd, true); err != nil {
		return nil, &BrokenPipe{Stream: stream, Err: err}
	}
	deadline := time.Now().Add(timeout)
	var out []byte
	seen := 0
	one := make([]byte, 1)
	for {
		n, err := syscall.Read(fd, one)
		if n > 0 {
			out = append(out, one[0])
			if bytes.HasSuffix(out, delim) {
				seen++
				if seen >= occurrences {
					if drop {
						out = out[:len(out)-len(delim)]
					}
					return out, nil
				}
			}
			if maxLen > 0 && len(out) >= maxLen {
				return out, nil
			}
			continue
		}
		if n == 0 && err == nil {
			return out, nil
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			if timeout > 0 && time.Now().After(deadline) {
				return out, &Timeout{Op: "recvuntil:" + stream}
			}
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return out, &BrokenPipe{Stream: stream, Err: err}
		}
	}
}

// Recvline reads until a newline has appeared numLines times; drop
// strips the trailing newline from the result.
func (p *PipeManager) Recvline(numLines int, drop bool, timeout time.Duration) ([]byte, error) {
	if numLines <= 0 {
		return nil, &ValueError{Msg: "numLines must be positive"}
	}
	return p.recvUntilOn(p.pipes.StdoutRead, "stdout", []byte("\n"), numLines, drop, 0, timeout)
}

// RecvlineErr is the stderr-symmetric variant of Recvline.
func (p *PipeManager) RecvlineErr(numLines int, drop bool, timeout time.Duration) ([]byte, error) {
	if numLines <= 0 {
		return nil, &ValueError{Msg: "numLines must be positive"}
	}
	return p.recvUntilOn(p.pipes.StderrRead, "stderr", []byte("\n"), numLines, drop, 0, timeout)
}

// RecvuntilErr is the stderr-symmetric variant of Recvuntil.
func (p *PipeManager) RecvuntilErr(delim []byte, occurrences int, drop bool, timeout time.Duration) ([]byte, error) {
	if occurrences <= 0 {
		return nil, &ValueError{Msg: "occurrences must be positive"}
	}
	return p.recvUntilOn(p.pipes.StderrRead, "stderr", delim, occurrences, drop, 0, timeout)
}

// Sendafter waits for delim on stdout, then sends data.
func (p *PipeManager) Sendafter(delim []byte, data []byte, timeout time.Duration) error {
	if _, err := p.Recvuntil(delim, 1, false, timeout); err != nil {
		return err
	}
	return p.Send(data)
}

// Sendlineafter waits for delim on stdout, then sends data plus a newline.
func (p *PipeManager) Sendlineafter(delim []byte, data []byte, timeout time.Duration) error {
	if _, err := p.Recvuntil(delim, 1, false, timeout); err != nil {
		return err
	}
	return p.Sendline(data)
}

// Close releases the pipe set. Safe to call multiple times.
func (p *PipeManager) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	var firstErr error
	for _, f := range []*os.File{p.pipes.StdinWrite, p.pipes.StdoutRead, p.pipes.StderrRead} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
