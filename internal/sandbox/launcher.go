package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// Launcher starts a worker instance and returns the host end of its
// connection. Closing the connection must terminate the instance.
type Launcher interface {
	Launch(ctx context.Context, generation int64) (io.ReadWriteCloser, error)
}

// ProcessLauncher starts workers as child processes speaking on stdin/stdout.
type ProcessLauncher struct {
	// Binary defaults to the running executable.
	Binary string
	// Args precede the generated --instance and --memory-limit-mib flags.
	Args           []string
	MemoryLimitMiB int
	// Stderr receives worker diagnostics; nil discards them.
	Stderr io.Writer
}

// ResolveBinary returns the worker executable path.
func (l *ProcessLauncher) ResolveBinary() (string, error) {
	if l.Binary != "" {
		return exec.LookPath(l.Binary)
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func (l *ProcessLauncher) Launch(ctx context.Context, generation int64) (io.ReadWriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	binary, err := l.ResolveBinary()
	if err != nil {
		return nil, err
	}
	args := append([]string{}, l.Args...)
	args = append(args,
		"--instance", strconv.FormatInt(generation, 10),
		"--memory-limit-mib", strconv.Itoa(l.MemoryLimitMiB),
	)
	// The process outlives ctx; it ends when the connection is closed.
	cmd := exec.Command(binary, args...)
	cmd.Stderr = l.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}
	return &processConn{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

type processConn struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	once sync.Once
	err  error
}

func (c *processConn) Read(p []byte) (int, error)  { return c.stdout.Read(p) }
func (c *processConn) Write(p []byte) (int, error) { return c.stdin.Write(p) }

// Close hangs up, gives the worker a moment to exit on EOF, then kills and
// reaps it.
func (c *processConn) Close() error {
	c.once.Do(func() {
		_ = c.stdin.Close()
		done := make(chan error, 1)
		go func() { done <- c.cmd.Wait() }()
		select {
		case err := <-done:
			c.err = exitError(err)
		case <-time.After(500 * time.Millisecond):
			_ = c.cmd.Process.Kill()
			<-done
		}
	})
	return c.err
}

func exitError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
