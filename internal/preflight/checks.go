package preflight

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"bayloe/internal/sandbox"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckWorkerBinary verifies the decoder worker executable resolves and is
// executable.
func CheckWorkerBinary(l *sandbox.ProcessLauncher) Result {
	const name = "Decoder worker"
	path, err := l.ResolveBinary()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("not found (%v)", err)}
	}
	if err := unix.Access(path, unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not executable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDecoder launches a worker through launcher and completes the
// handshake, then tears it down.
func CheckDecoder(ctx context.Context, launcher sandbox.Launcher, timeout time.Duration) Result {
	const name = "HEIC decoder"
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	host := sandbox.NewHost(launcher, sandbox.Options{CallTimeout: timeout})
	defer host.Close()
	start := time.Now()
	if err := host.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("handshake failed (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("worker ready in %s", time.Since(start).Round(time.Millisecond))}
}
