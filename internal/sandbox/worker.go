package sandbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"bayloe/internal/logging"
)

// WorkerOptions configures RunWorker.
type WorkerOptions struct {
	Instance       int64
	MemoryLimitMiB int
	Logger         *slog.Logger
}

type stdioConn struct {
	io.Reader
	io.Writer
	closers []io.Closer
}

func (c stdioConn) Close() error {
	for _, cl := range c.closers {
		_ = cl.Close()
	}
	return nil
}

// RunWorker caps the process address space and serves decode requests on
// in/out until in reaches EOF or ctx ends.
func RunWorker(ctx context.Context, in io.ReadCloser, out io.WriteCloser, backend Backend, opts WorkerOptions) error {
	logger := logging.NewComponentLogger(opts.Logger, "decoder-worker")
	if opts.MemoryLimitMiB > 0 {
		if err := limitAddressSpace(uint64(opts.MemoryLimitMiB) << 20); err != nil {
			return fmt.Errorf("apply memory limit: %w", err)
		}
	}
	conn := stdioConn{Reader: in, Writer: out, closers: []io.Closer{in, out}}
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	logger.Debug("worker ready",
		logging.Int("instance", int(opts.Instance)),
		logging.Int("memory_limit_mib", opts.MemoryLimitMiB))
	return Serve(conn, opts.Instance, os.Getpid(), backend, logger)
}
