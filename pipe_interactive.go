// pipe_interactive.go - interactive mode: shuttles bytes between the
// controlling terminal and the tracee's pipes. Puts the controlling
// terminal into raw mode via term.MakeRaw/term.Restore, with scoped
// acquire and unconditional release on every exit path, and runs the
// reader side as an errgroup goroutine (golang.org/x/sync/errgroup).

package godbg

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// Interactive puts the terminal into raw mode and shuttles bytes between
// the controlling terminal and the tracee's stdin/stdout/stderr until
// Ctrl+C (0x03) is read from the terminal. prompt is
// written once before the loop starts.
func (p *PipeManager) Interactive(prompt string) error {
	if prompt != "" {
		fmt.Fprint(os.Stdout, prompt)
	}
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("interactive: %w", err)
	}
	defer term.Restore(fd, oldState)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return p.pumpStream(ctx, p.pipes.StdoutRead, os.Stdout) })
	g.Go(func() error { return p.pumpStream(ctx, p.pipes.StderrRead, os.Stderr) })
	g.Go(func() error { return p.pumpKeystrokes(ctx, cancel) })

	return g.Wait()
}

// pumpStream drains one tracee stream one byte at a time, yielding on
// newline to keep stdout/stderr fairly interleaved.
func (p *PipeManager) pumpStream(ctx context.Context, f *os.File, out *os.File) error {
	if f == nil {
		<-ctx.Done()
		return nil
	}
	fd := int(f.Fd())
	if err := syscall.SetNonblock(fd, true); err != nil {
		return err
	}
	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		n, err := syscall.Read(fd, buf)
		if n > 0 {
			out.Write(buf[:1])
			if buf[0] == '\n' {
				runtime.Gosched()
			}
			continue
		}
		if n == 0 && err == nil {
			return nil // EOF
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			time.Sleep(2 * time.Millisecond)
			continue
		}
		if err != nil {
			return &BrokenPipe{Stream: f.Name(), Err: err}
		}
	}
}

// pumpKeystrokes forwards raw keystrokes from stdin, accumulating a line
// until CR, then sending it; Ctrl+C cancels the interactive session and
// lets the deferred term.Restore run.
func (p *PipeManager) pumpKeystrokes(ctx context.Context, cancel context.CancelFunc) error {
	fd := int(os.Stdin.Fd())
	if err := syscall.SetNonblock(fd, true); err != nil {
		return err
	}
	var line []byte
	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		n, err := syscall.Read(fd, buf)
		if n > 0 {
			b := buf[0]
			if b == 0x03 { // Ctrl+C
				cancel()
				return nil
			}
			if b == '\r' || b == '\n' {
				if sendErr := p.Sendline(line); sendErr != nil {
					return sendErr
				}
				line = line[:0]
				continue
			}
			line = append(line, b)
			continue
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			time.Sleep(2 * time.Millisecond)
			continue
		}
		if err != nil {
			return nil
		}
	}
}
